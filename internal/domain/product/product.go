package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/nazmunsakib/discountkit/internal/domain/settings"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is the minimal catalog view the pricing engine needs: the two
// price points a discount can be computed from.
type Product struct {
	ID           int64
	Name         string
	SKU          string
	RegularPrice decimal.Decimal
	SalePrice    decimal.Decimal // zero means no independent sale price
}

// HasSalePrice reports whether the product carries its own sale price.
func (p Product) HasSalePrice() bool {
	return p.SalePrice.IsPositive()
}

// BasePrice returns the price discounts are computed against for the
// given basis. The sale basis only applies when a sale price exists.
func (p Product) BasePrice(basis settings.PriceBasis) decimal.Decimal {
	if basis == settings.BasisSalePrice && p.HasSalePrice() {
		return p.SalePrice
	}
	return p.RegularPrice
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
}
