// Package pricing implements the discount evaluation engine: condition
// matching, per-rule discount calculation, and conflict resolution
// between simultaneously matching rules.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/nazmunsakib/discountkit/internal/domain/rule"
)

// Item is one cart line as supplied by the host for an evaluation.
type Item struct {
	ProductID int64
	Quantity  int
	LineTotal decimal.Decimal
}

// Line is a cart line without pricing, used when the engine itself
// resolves base prices from the catalog.
type Line struct {
	ProductID int64
	Quantity  int
}

// PricedLine is the engine's pricing result for one cart line.
type PricedLine struct {
	ProductID int64
	Quantity  int
	BasePrice decimal.Decimal
	UnitPrice decimal.Decimal
}

// RuleDiscount pairs a matching rule with its computed discount amount.
type RuleDiscount struct {
	Rule   *rule.Rule
	Amount decimal.Decimal
}

// CartDiscount is one entry of the cart discount summary.
type CartDiscount struct {
	RuleID       int64           `json:"rule_id"`
	RuleTitle    string          `json:"rule_title"`
	DiscountType string          `json:"discount_type"`
	Amount       decimal.Decimal `json:"discount_amount"`
}

// Fee is one cart-level adjustment line. Fees from different rules
// always stack; they are never subject to conflict resolution.
type Fee struct {
	RuleID int64           `json:"rule_id"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// AppliedRule identifies a rule that contributed to an order, reported
// back by the host at order completion.
type AppliedRule struct {
	RuleID   int64           `json:"rule_id"`
	Discount decimal.Decimal `json:"discount"`
}

// BulkTable is the quantity tier table the host renders on a product page.
type BulkTable struct {
	RuleTitle string           `json:"rule_title"`
	BasePrice decimal.Decimal  `json:"base_price"`
	Ranges    []rule.BulkRange `json:"ranges"`
}

var hundred = decimal.NewFromInt(100)

// floorAtZero clamps negative amounts to zero.
func floorAtZero(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// shapeLabel names a rule's discount shape for summary output.
func shapeLabel(s rule.Shape) string {
	switch v := s.(type) {
	case rule.FlatPercentage:
		return string(rule.DiscountPercentage)
	case rule.FlatFixed:
		return string(rule.DiscountFixed)
	case rule.BulkTiered:
		return "bulk"
	case rule.CartAdjustment:
		return "cart_" + string(v.Type)
	default:
		return ""
	}
}
