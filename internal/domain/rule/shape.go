package rule

import "github.com/shopspring/decimal"

// Shape is the tagged variant describing how a rule discounts. It is
// decoded once when the rule is loaded, so evaluation code can switch on
// the concrete type instead of sniffing loose fields.
type Shape interface {
	shape()
}

// FlatPercentage discounts each matching product by a percentage of its
// base price.
type FlatPercentage struct {
	Value decimal.Decimal
}

// FlatFixed discounts each matching product by a flat amount; the
// resulting price is clamped at zero.
type FlatFixed struct {
	Value decimal.Decimal
}

// BulkTiered discounts based on quantity tiers. Ranges are kept in
// authored order; the first satisfying range wins.
type BulkTiered struct {
	Operator BulkOperator
	Ranges   []BulkRange
}

// CartAdjustment applies the rule as a cart-level fee line against the
// subtotal of matching items instead of changing per-item prices.
type CartAdjustment struct {
	Type  DiscountType
	Value decimal.Decimal
	Label string
}

func (FlatPercentage) shape() {}
func (FlatFixed) shape()      {}
func (BulkTiered) shape()     {}
func (CartAdjustment) shape() {}

// decodeShape resolves the mutually exclusive discount shape from the
// loose stored fields. Cart-adjustment wins over bulk ranges, bulk
// ranges win over the flat type/value pair; unknown discount types fall
// back to a zero-percent flat rule rather than failing.
func decodeShape(discountType DiscountType, value decimal.Decimal, ranges []BulkRange, operator BulkOperator, asCartRule bool, cartLabel string) Shape {
	if asCartRule {
		t := discountType
		if t != DiscountFixed {
			t = DiscountPercentage
		}
		return CartAdjustment{Type: t, Value: value, Label: cartLabel}
	}

	if len(ranges) > 0 {
		op := operator
		if op != OperatorCumulative {
			op = OperatorIndividual
		}
		return BulkTiered{Operator: op, Ranges: ranges}
	}

	if discountType == DiscountFixed {
		return FlatFixed{Value: value}
	}
	return FlatPercentage{Value: value}
}
