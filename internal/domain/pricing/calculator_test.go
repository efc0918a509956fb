package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nazmunsakib/discountkit/internal/domain/rule"
)

func TestCartDiscount(t *testing.T) {
	items := []Item{
		{ProductID: 1, Quantity: 2, LineTotal: d("100")},
		{ProductID: 2, Quantity: 1, LineTotal: d("50")},
	}

	tests := []struct {
		name string
		r    *rule.Rule
		want string
	}{
		{
			name: "percentage over whole cart",
			r:    &rule.Rule{Shape: rule.FlatPercentage{Value: d("20")}, Filter: allProducts()},
			want: "30",
		},
		{
			name: "percentage over matching items only",
			r:    &rule.Rule{Shape: rule.FlatPercentage{Value: d("20")}, Filter: include(1)},
			want: "20",
		},
		{
			name: "fixed independent of match count",
			r:    &rule.Rule{Shape: rule.FlatFixed{Value: d("15")}, Filter: allProducts()},
			want: "15",
		},
		{
			name: "cart adjustment fixed",
			r:    &rule.Rule{Shape: rule.CartAdjustment{Type: rule.DiscountFixed, Value: d("5")}, Filter: allProducts()},
			want: "5",
		},
		{
			name: "cart adjustment percentage over matching items",
			r:    &rule.Rule{Shape: rule.CartAdjustment{Type: rule.DiscountPercentage, Value: d("10")}, Filter: include(1)},
			want: "10",
		},
		{
			name: "bulk tier from cumulative matching quantity",
			r: &rule.Rule{
				Shape: rule.BulkTiered{
					Operator: rule.OperatorCumulative,
					Ranges: []rule.BulkRange{
						{Min: 1, Max: 2, DiscountType: rule.DiscountPercentage, DiscountValue: d("10")},
						{Min: 3, Max: 0, DiscountType: rule.DiscountPercentage, DiscountValue: d("20")},
					},
				},
				Filter: allProducts(),
			},
			want: "30",
		},
		{
			name: "bulk fixed price tier pays down to target unit price",
			r: &rule.Rule{
				Shape: rule.BulkTiered{
					Operator: rule.OperatorCumulative,
					Ranges: []rule.BulkRange{
						{Min: 1, Max: 0, DiscountType: rule.DiscountFixedPrice, DiscountValue: d("40")},
					},
				},
				Filter: include(1),
			},
			// Product 1 pays 50/unit over 2 units; 10 above target each.
			want: "20",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cartDiscount(tt.r, items).String())
		})
	}
}

func TestProductDiscount(t *testing.T) {
	cart := []Item{
		{ProductID: 1, Quantity: 3, LineTotal: d("150")},
		{ProductID: 2, Quantity: 4, LineTotal: d("100")},
	}
	bulkRanges := []rule.BulkRange{
		{Min: 1, Max: 4, DiscountType: rule.DiscountPercentage, DiscountValue: d("10")},
		{Min: 5, Max: 0, DiscountType: rule.DiscountPercentage, DiscountValue: d("20")},
	}

	tests := []struct {
		name string
		r    *rule.Rule
		base string
		qty  int
		want string
	}{
		{
			name: "percentage of base",
			r:    &rule.Rule{Shape: rule.FlatPercentage{Value: d("20")}, Filter: allProducts()},
			base: "100", qty: 1, want: "20",
		},
		{
			name: "flat fixed",
			r:    &rule.Rule{Shape: rule.FlatFixed{Value: d("15")}, Filter: allProducts()},
			base: "50", qty: 1, want: "15",
		},
		{
			name: "bulk individual quantity picks lower tier",
			r: &rule.Rule{
				Shape:  rule.BulkTiered{Operator: rule.OperatorIndividual, Ranges: bulkRanges},
				Filter: allProducts(),
			},
			base: "50", qty: 3, want: "5",
		},
		{
			name: "bulk cumulative sums matching cart quantities",
			r: &rule.Rule{
				Shape:  rule.BulkTiered{Operator: rule.OperatorCumulative, Ranges: bulkRanges},
				Filter: allProducts(),
			},
			// 3 + 4 across the cart lands in the 5+ tier.
			base: "50", qty: 3, want: "10",
		},
		{
			name: "bulk fixed price clamps at zero",
			r: &rule.Rule{
				Shape: rule.BulkTiered{Operator: rule.OperatorIndividual, Ranges: []rule.BulkRange{
					{Min: 1, Max: 0, DiscountType: rule.DiscountFixedPrice, DiscountValue: d("60")},
				}},
				Filter: allProducts(),
			},
			base: "50", qty: 1, want: "0",
		},
		{
			name: "cart adjustment contributes nothing per product",
			r:    &rule.Rule{Shape: rule.CartAdjustment{Type: rule.DiscountFixed, Value: d("5")}, Filter: allProducts()},
			base: "50", qty: 1, want: "0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := productDiscount(tt.r, d(tt.base), tt.qty, cart)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

// The first tier containing the quantity wins even when a later tier
// would discount more.
func TestSelectTierFirstMatchWins(t *testing.T) {
	ranges := []rule.BulkRange{
		{Min: 1, Max: 5, DiscountType: rule.DiscountPercentage, DiscountValue: d("10")},
		{Min: 3, Max: 10, DiscountType: rule.DiscountPercentage, DiscountValue: d("50")},
	}

	tier, ok := selectTier(ranges, 4)
	assert.True(t, ok)
	assert.Equal(t, "10", tier.DiscountValue.String())

	tier, ok = selectTier(ranges, 7)
	assert.True(t, ok)
	assert.Equal(t, "50", tier.DiscountValue.String())

	_, ok = selectTier(ranges, 11)
	assert.False(t, ok)
}

func TestEffectiveQuantity(t *testing.T) {
	cart := []Item{
		{ProductID: 1, Quantity: 3, LineTotal: d("30")},
		{ProductID: 2, Quantity: 4, LineTotal: d("40")},
		{ProductID: 3, Quantity: 9, LineTotal: d("90")},
	}
	f := include(1, 2)

	assert.Equal(t, 7, effectiveQuantity(rule.OperatorCumulative, f, 3, cart))
	assert.Equal(t, 3, effectiveQuantity(rule.OperatorIndividual, f, 3, cart))
	// Without a cart the cumulative operator falls back to the item's
	// own quantity.
	assert.Equal(t, 3, effectiveQuantity(rule.OperatorCumulative, f, 3, nil))
}
