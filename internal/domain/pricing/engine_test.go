package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nazmunsakib/discountkit/internal/domain/product"
	"github.com/nazmunsakib/discountkit/internal/domain/rule"
	"github.com/nazmunsakib/discountkit/internal/domain/settings"
)

type mockRules struct {
	rules      []*rule.Rule
	increments map[int64]int
	usages     []rule.Usage
}

func (m *mockRules) ActiveRules(context.Context) ([]*rule.Rule, error) { return m.rules, nil }
func (m *mockRules) List(context.Context) ([]*rule.Rule, error)       { return m.rules, nil }

func (m *mockRules) Get(_ context.Context, id int64) (*rule.Rule, error) {
	for _, r := range m.rules {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, rule.ErrNotFound
}

func (m *mockRules) Save(_ context.Context, r *rule.Rule) (int64, error) { return r.ID, nil }
func (m *mockRules) Delete(context.Context, int64) error                 { return nil }

func (m *mockRules) IncrementUsage(_ context.Context, id int64) error {
	if m.increments == nil {
		m.increments = make(map[int64]int)
	}
	m.increments[id]++
	return nil
}

func (m *mockRules) RecordUsage(_ context.Context, u rule.Usage) error {
	m.usages = append(m.usages, u)
	return nil
}

type mockProducts struct {
	products map[int64]product.Product
}

func (m *mockProducts) List(context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockProducts) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProducts) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mapStore struct {
	values map[string]string
}

func (s *mapStore) All(context.Context) (map[string]string, error) { return s.values, nil }

func (s *mapStore) Set(_ context.Context, key, value string) error {
	s.values[key] = value
	return nil
}

func (s *mapStore) Reset(context.Context) error {
	s.values = map[string]string{}
	return nil
}

func newTestEngine(rules []*rule.Rule, products map[int64]product.Product, overrides map[string]string) (*Engine, *mockRules) {
	values := settings.Defaults().Map()
	for k, v := range overrides {
		values[k] = v
	}
	repo := &mockRules{rules: rules}
	svc := settings.NewService(&mapStore{values: values}, settings.DefaultTTL)
	return NewEngine(repo, &mockProducts{products: products}, svc), repo
}

func percentRule(id int64, priority int, value string) *rule.Rule {
	return &rule.Rule{
		ID:       id,
		Title:    "rule",
		Shape:    rule.FlatPercentage{Value: d(value)},
		Filter:   allProducts(),
		Priority: priority,
		Status:   rule.StatusActive,
	}
}

func TestCalculateCartDiscountsFirst(t *testing.T) {
	eng, _ := newTestEngine([]*rule.Rule{
		percentRule(1, 1, "10"),
		percentRule(2, 2, "20"),
	}, nil, nil)

	items := []Item{{ProductID: 1, Quantity: 1, LineTotal: d("100")}}
	got, err := eng.CalculateCartDiscounts(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].RuleID)
	assert.Equal(t, "10", got[0].Amount.String())
	assert.Equal(t, "percentage", got[0].DiscountType)
}

func TestCalculateCartDiscountsBiggest(t *testing.T) {
	eng, _ := newTestEngine([]*rule.Rule{
		percentRule(1, 1, "10"),
		percentRule(2, 2, "20"),
	}, nil, map[string]string{
		settings.KeyApplyDiscountTo: string(settings.MethodBiggest),
	})

	items := []Item{{ProductID: 1, Quantity: 1, LineTotal: d("100")}}
	got, err := eng.CalculateCartDiscounts(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].RuleID)
	assert.Equal(t, "20", got[0].Amount.String())
}

// Cart adjustments stack on top of the resolved price-rule winner
// instead of competing with it.
func TestCalculateCartDiscountsAdjustmentsStack(t *testing.T) {
	fee := &rule.Rule{
		ID:     3,
		Title:  "Loyalty credit",
		Shape:  rule.CartAdjustment{Type: rule.DiscountFixed, Value: d("5"), Label: "Loyalty"},
		Filter: allProducts(),
		Status: rule.StatusActive,
	}
	eng, _ := newTestEngine([]*rule.Rule{
		percentRule(1, 1, "10"),
		percentRule(2, 2, "20"),
		fee,
	}, nil, nil)

	items := []Item{{ProductID: 1, Quantity: 1, LineTotal: d("100")}}
	got, err := eng.CalculateCartDiscounts(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].RuleID)
	assert.Equal(t, int64(3), got[1].RuleID)
	assert.Equal(t, "cart_fixed", got[1].DiscountType)
}

func TestComputeCartFees(t *testing.T) {
	eng, _ := newTestEngine([]*rule.Rule{
		percentRule(1, 1, "10"),
		{
			ID:     2,
			Title:  "Summer promo",
			Shape:  rule.CartAdjustment{Type: rule.DiscountPercentage, Value: d("10"), Label: "Summer"},
			Filter: include(1),
			Status: rule.StatusActive,
		},
		{
			ID:     3,
			Title:  "Accessories credit",
			Shape:  rule.CartAdjustment{Type: rule.DiscountFixed, Value: d("4")},
			Filter: include(99),
			Status: rule.StatusActive,
		},
	}, nil, nil)

	items := []Item{{ProductID: 1, Quantity: 2, LineTotal: d("80")}}
	fees, err := eng.ComputeCartFees(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, fees, 1)
	assert.Equal(t, int64(2), fees[0].RuleID)
	assert.Equal(t, "Summer", fees[0].Label)
	assert.Equal(t, "8", fees[0].Amount.String())
}

func TestProductDiscountPriceClamped(t *testing.T) {
	products := map[int64]product.Product{
		1: {ID: 1, RegularPrice: d("50")},
		2: {ID: 2, RegularPrice: d("10")},
	}
	eng, _ := newTestEngine([]*rule.Rule{
		{
			ID:     1,
			Shape:  rule.FlatFixed{Value: d("15")},
			Filter: allProducts(),
			Status: rule.StatusActive,
		},
	}, products, nil)

	got, err := eng.ProductDiscountPrice(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "35", got.String())

	got, err = eng.ProductDiscountPrice(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, "0", got.String())
}

// Under "all" every matching rule's amount is summed and subtracted
// from the base price once.
func TestProductDiscountPriceAllMethod(t *testing.T) {
	products := map[int64]product.Product{1: {ID: 1, RegularPrice: d("100")}}
	eng, _ := newTestEngine([]*rule.Rule{
		percentRule(1, 1, "10"),
		percentRule(2, 2, "20"),
	}, products, map[string]string{
		settings.KeyApplyDiscountTo: string(settings.MethodAll),
	})

	got, err := eng.ProductDiscountPrice(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "70", got.String())
}

func TestProductDiscountPriceSaleBasis(t *testing.T) {
	products := map[int64]product.Product{
		1: {ID: 1, RegularPrice: d("100"), SalePrice: d("80")},
	}
	eng, _ := newTestEngine([]*rule.Rule{
		percentRule(1, 1, "10"),
	}, products, map[string]string{
		settings.KeyCalculateFrom: string(settings.BasisSalePrice),
	})

	got, err := eng.ProductDiscountPrice(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "72", got.String())
}

func TestPriceLineItemsCumulativeBulk(t *testing.T) {
	products := map[int64]product.Product{
		1: {ID: 1, RegularPrice: d("10")},
		2: {ID: 2, RegularPrice: d("25")},
	}
	eng, _ := newTestEngine([]*rule.Rule{
		{
			ID: 1,
			Shape: rule.BulkTiered{
				Operator: rule.OperatorCumulative,
				Ranges: []rule.BulkRange{
					{Min: 1, Max: 6, DiscountType: rule.DiscountPercentage, DiscountValue: d("10")},
					{Min: 7, Max: 0, DiscountType: rule.DiscountPercentage, DiscountValue: d("20")},
				},
			},
			Filter: allProducts(),
			Status: rule.StatusActive,
		},
	}, products, nil)

	lines := []Line{
		{ProductID: 1, Quantity: 3},
		{ProductID: 2, Quantity: 4},
	}
	got, err := eng.PriceLineItems(context.Background(), lines)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// 3 + 4 units reach the 20% tier for both lines.
	assert.Equal(t, "8", got[0].UnitPrice.String())
	assert.Equal(t, "20", got[1].UnitPrice.String())
}

// Lines covered by a cart-adjustment rule keep their base price; their
// discount is surfaced as a fee instead.
func TestPriceLineItemsSkipsCartRuleLines(t *testing.T) {
	products := map[int64]product.Product{
		1: {ID: 1, RegularPrice: d("40")},
		2: {ID: 2, RegularPrice: d("60")},
	}
	eng, _ := newTestEngine([]*rule.Rule{
		percentRule(1, 1, "10"),
		{
			ID:     2,
			Shape:  rule.CartAdjustment{Type: rule.DiscountFixed, Value: d("5")},
			Filter: include(2),
			Status: rule.StatusActive,
		},
	}, products, nil)

	got, err := eng.PriceLineItems(context.Background(), []Line{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "36", got[0].UnitPrice.String())
	assert.Equal(t, "60", got[1].UnitPrice.String())
}

func TestIsProductOnSale(t *testing.T) {
	eng, _ := newTestEngine([]*rule.Rule{
		{
			ID:     1,
			Shape:  rule.FlatPercentage{Value: d("10")},
			Filter: include(1),
			Status: rule.StatusActive,
		},
	}, nil, nil)

	onSale, err := eng.IsProductOnSale(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, onSale)

	onSale, err = eng.IsProductOnSale(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, onSale)
}

func TestIsProductOnSaleBadgeDisabled(t *testing.T) {
	eng, _ := newTestEngine([]*rule.Rule{
		percentRule(1, 1, "10"),
	}, nil, map[string]string{
		settings.KeyShowSaleBadge: string(settings.BadgeDisabled),
	})

	onSale, err := eng.IsProductOnSale(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, onSale)
}

func TestIsProductOnSaleOutsideDateWindow(t *testing.T) {
	future := time.Now().Add(48 * time.Hour)
	eng, _ := newTestEngine([]*rule.Rule{
		{
			ID:         1,
			Shape:      rule.FlatPercentage{Value: d("10")},
			Conditions: rule.Conditions{DateFrom: &future},
			Filter:     include(1),
			Status:     rule.StatusActive,
		},
	}, nil, nil)

	onSale, err := eng.IsProductOnSale(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, onSale)
}

func TestBulkPricingTable(t *testing.T) {
	products := map[int64]product.Product{1: {ID: 1, RegularPrice: d("50")}}
	ranges := []rule.BulkRange{
		{Min: 2, Max: 5, DiscountType: rule.DiscountPercentage, DiscountValue: d("10"), Label: "2-5"},
		{Min: 6, Max: 0, DiscountType: rule.DiscountPercentage, DiscountValue: d("20"), Label: "6+"},
	}
	eng, _ := newTestEngine([]*rule.Rule{
		{
			ID:     1,
			Title:  "Volume deal",
			Shape:  rule.BulkTiered{Operator: rule.OperatorIndividual, Ranges: ranges},
			Filter: include(1),
			Status: rule.StatusActive,
		},
	}, products, nil)

	table, err := eng.BulkPricingTable(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, table)
	assert.Equal(t, "Volume deal", table.RuleTitle)
	assert.Equal(t, "50", table.BasePrice.String())
	assert.Len(t, table.Ranges, 2)

	table, err = eng.BulkPricingTable(context.Background(), 2)
	require.NoError(t, err)
	assert.Nil(t, table)
}

// A rule reported multiple times for one order counts a single use.
func TestOnOrderCompletedDedupes(t *testing.T) {
	eng, repo := newTestEngine([]*rule.Rule{
		percentRule(1, 1, "10"),
		percentRule(2, 2, "20"),
	}, nil, nil)

	err := eng.OnOrderCompleted(context.Background(), "order-77", []AppliedRule{
		{RuleID: 1, Discount: d("5")},
		{RuleID: 1, Discount: d("3")},
		{RuleID: 2, Discount: d("2")},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.increments[1])
	assert.Equal(t, 1, repo.increments[2])
	require.Len(t, repo.usages, 2)
	assert.Equal(t, "order-77", repo.usages[0].OrderID)
	assert.Equal(t, "8", repo.usages[0].Discount.String())
	assert.Equal(t, "2", repo.usages[1].Discount.String())
}
