package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/nazmunsakib/discountkit/internal/domain/rule"
)

// cartDiscount computes the discount amount one rule contributes to a
// cart, dispatching on the rule's discount shape. Percentage shapes are
// computed against the subtotal of filter-matching items; flat amounts
// are not scaled by how many items matched.
func cartDiscount(r *rule.Rule, items []Item) decimal.Decimal {
	switch s := r.Shape.(type) {
	case rule.FlatPercentage:
		return matchingSubtotal(r.Filter, items).Mul(s.Value).Div(hundred)
	case rule.FlatFixed:
		return s.Value
	case rule.BulkTiered:
		return bulkCartDiscount(s, r.Filter, items)
	case rule.CartAdjustment:
		if s.Type == rule.DiscountFixed {
			return s.Value
		}
		return matchingSubtotal(r.Filter, items).Mul(s.Value).Div(hundred)
	default:
		return decimal.Zero
	}
}

// bulkCartDiscount selects the tier from the cumulative quantity of
// matching items and applies it across the matching subtotal.
func bulkCartDiscount(s rule.BulkTiered, f rule.Filter, items []Item) decimal.Decimal {
	tier, ok := selectTier(s.Ranges, matchingQuantity(f, items))
	if !ok {
		return decimal.Zero
	}

	switch tier.DiscountType {
	case rule.DiscountPercentage:
		return matchingSubtotal(f, items).Mul(tier.DiscountValue).Div(hundred)
	case rule.DiscountFixed:
		return tier.DiscountValue
	case rule.DiscountFixedPrice:
		// Tier value is the target unit price; the discount is whatever
		// each matching line currently pays above it.
		sum := decimal.Zero
		for _, item := range items {
			if !f.MatchesProduct(item.ProductID) || item.Quantity <= 0 {
				continue
			}
			unit := item.LineTotal.Div(decimal.NewFromInt(int64(item.Quantity)))
			perUnit := floorAtZero(unit.Sub(tier.DiscountValue))
			sum = sum.Add(perUnit.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		return sum
	default:
		return decimal.Zero
	}
}

// productDiscount computes the discount amount one rule yields for a
// single product at the given base price and quantity. Cart-adjustment
// rules never affect per-product prices and yield zero here.
func productDiscount(r *rule.Rule, basePrice decimal.Decimal, qty int, cart []Item) decimal.Decimal {
	switch s := r.Shape.(type) {
	case rule.FlatPercentage:
		return basePrice.Mul(s.Value).Div(hundred)
	case rule.FlatFixed:
		return s.Value
	case rule.BulkTiered:
		return bulkProductDiscount(s, r.Filter, basePrice, qty, cart)
	default:
		return decimal.Zero
	}
}

// bulkProductDiscount selects a tier from the effective quantity and
// converts it to a discount against the unit base price.
func bulkProductDiscount(s rule.BulkTiered, f rule.Filter, basePrice decimal.Decimal, qty int, cart []Item) decimal.Decimal {
	tier, ok := selectTier(s.Ranges, effectiveQuantity(s.Operator, f, qty, cart))
	if !ok {
		return decimal.Zero
	}

	switch tier.DiscountType {
	case rule.DiscountPercentage:
		return basePrice.Mul(tier.DiscountValue).Div(hundred)
	case rule.DiscountFixedPrice:
		// Tier value is the final unit price.
		return floorAtZero(basePrice.Sub(tier.DiscountValue))
	case rule.DiscountFixed:
		return tier.DiscountValue
	default:
		return decimal.Zero
	}
}

// selectTier scans ranges in authored order and returns the first one
// containing qty. Later ranges are never considered once one matches,
// even if they would yield a larger discount.
func selectTier(ranges []rule.BulkRange, qty int) (rule.BulkRange, bool) {
	for _, r := range ranges {
		if r.Contains(qty) {
			return r, true
		}
	}
	return rule.BulkRange{}, false
}

// effectiveQuantity returns the quantity used for tier selection: the
// cumulative quantity of all filter-matching cart items for the
// cumulative operator (when a cart is available), otherwise the item's
// own quantity.
func effectiveQuantity(op rule.BulkOperator, f rule.Filter, qty int, cart []Item) int {
	if op == rule.OperatorCumulative && len(cart) > 0 {
		return matchingQuantity(f, cart)
	}
	return qty
}
