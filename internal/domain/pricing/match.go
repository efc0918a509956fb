package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nazmunsakib/discountkit/internal/domain/rule"
)

// applicable reports whether a rule is eligible for the given cart:
// inside its date window, above the cart minimums, and matching at
// least one cart item. Status and usage-limit exclusion happen earlier,
// at active-rule retrieval; rules arriving here are already usable.
func applicable(r *rule.Rule, now time.Time, items []Item) bool {
	return dateOK(r.Conditions, now) &&
		cartOK(r.Conditions, items) &&
		anyItemMatches(r.Filter, items)
}

// productApplicable is the single-product variant: date window plus
// filter match, no cart aggregates.
func productApplicable(r *rule.Rule, now time.Time, productID int64) bool {
	return dateOK(r.Conditions, now) && r.Filter.MatchesProduct(productID)
}

func dateOK(c rule.Conditions, now time.Time) bool {
	if c.DateFrom != nil && now.Before(*c.DateFrom) {
		return false
	}
	if c.DateTo != nil && now.After(*c.DateTo) {
		return false
	}
	return true
}

// cartOK checks min_subtotal and min_quantity. Both aggregate over the
// WHOLE cart, not just filter-matching items, while the discount amount
// later is computed over the matching subset only. That asymmetry is
// long-standing observed behavior that stores author rules against;
// do not "fix" it to filter-scoped aggregation.
func cartOK(c rule.Conditions, items []Item) bool {
	if c.MinSubtotal.IsPositive() && cartSubtotal(items).LessThan(c.MinSubtotal) {
		return false
	}
	if c.MinQuantity > 0 && cartQuantity(items) < c.MinQuantity {
		return false
	}
	return true
}

func anyItemMatches(f rule.Filter, items []Item) bool {
	for _, item := range items {
		if f.MatchesProduct(item.ProductID) {
			return true
		}
	}
	return false
}

func cartSubtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal)
	}
	return sum
}

func cartQuantity(items []Item) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

// matchingSubtotal sums line totals over filter-matching items only.
func matchingSubtotal(f rule.Filter, items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		if f.MatchesProduct(item.ProductID) {
			sum = sum.Add(item.LineTotal)
		}
	}
	return sum
}

// matchingQuantity sums quantities over filter-matching items only.
func matchingQuantity(f rule.Filter, items []Item) int {
	total := 0
	for _, item := range items {
		if f.MatchesProduct(item.ProductID) {
			total += item.Quantity
		}
	}
	return total
}
