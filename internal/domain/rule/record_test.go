package rule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRule_ShapePrecedence(t *testing.T) {
	tests := []struct {
		name      string
		rec       Record
		wantShape any
	}{
		{
			name: "flat percentage by default",
			rec:  Record{DiscountType: "percentage", DiscountValue: d("10")},
			wantShape: FlatPercentage{
				Value: d("10"),
			},
		},
		{
			name: "flat fixed",
			rec:  Record{DiscountType: "fixed", DiscountValue: d("5")},
			wantShape: FlatFixed{
				Value: d("5"),
			},
		},
		{
			name: "bulk ranges override flat fields",
			rec: Record{
				DiscountType:  "percentage",
				DiscountValue: d("99"),
				BulkRanges:    []byte(`[{"min":1,"max":5,"discount_type":"percentage","discount_value":10,"label":""}]`),
				BulkOperator:  "product_cumulative",
			},
			wantShape: BulkTiered{
				Operator: OperatorCumulative,
				Ranges: []BulkRange{
					{Min: 1, Max: 5, DiscountType: DiscountPercentage, DiscountValue: d("10")},
				},
			},
		},
		{
			name: "cart rule wins over bulk ranges",
			rec: Record{
				DiscountType:    "fixed",
				DiscountValue:   d("3"),
				BulkRanges:      []byte(`[{"min":1,"discount_value":10}]`),
				ApplyAsCartRule: true,
				CartLabel:       "Cart deal",
			},
			wantShape: CartAdjustment{
				Type:  DiscountFixed,
				Value: d("3"),
				Label: "Cart deal",
			},
		},
		{
			name: "unknown discount type degrades to percentage",
			rec:  Record{DiscountType: "mystery", DiscountValue: d("7")},
			wantShape: FlatPercentage{
				Value: d("7"),
			},
		},
		{
			name: "unknown bulk operator degrades to individual",
			rec: Record{
				BulkRanges:   []byte(`[{"min":2,"discount_type":"fixed","discount_value":1,"label":"pair"}]`),
				BulkOperator: "whatever",
			},
			wantShape: BulkTiered{
				Operator: OperatorIndividual,
				Ranges: []BulkRange{
					{Min: 2, DiscountType: DiscountFixed, DiscountValue: d("1"), Label: "pair"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.rec.Rule()
			assert.Equal(t, tt.wantShape, r.Shape)
		})
	}
}

func TestRecordRule_LooseDecoding(t *testing.T) {
	t.Run("string-typed numbers in bulk ranges", func(t *testing.T) {
		rec := Record{
			BulkRanges: []byte(`[{"min":"1","max":"5","discount_type":"percentage","discount_value":"12.5"}]`),
		}
		bulk, ok := rec.Rule().Shape.(BulkTiered)
		require.True(t, ok)
		require.Len(t, bulk.Ranges, 1)
		assert.Equal(t, 1, bulk.Ranges[0].Min)
		assert.Equal(t, 5, bulk.Ranges[0].Max)
		assert.True(t, d("12.5").Equal(bulk.Ranges[0].DiscountValue))
	})

	t.Run("null max means unbounded", func(t *testing.T) {
		rec := Record{
			BulkRanges: []byte(`[{"min":6,"max":null,"discount_value":20}]`),
		}
		bulk := rec.Rule().Shape.(BulkTiered)
		assert.Zero(t, bulk.Ranges[0].Max)
		assert.True(t, bulk.Ranges[0].Contains(5000))
	})

	t.Run("legacy discount key", func(t *testing.T) {
		rec := Record{
			BulkRanges: []byte(`[{"min":1,"discount":15}]`),
		}
		bulk := rec.Rule().Shape.(BulkTiered)
		assert.True(t, d("15").Equal(bulk.Ranges[0].DiscountValue))
		assert.Equal(t, DiscountPercentage, bulk.Ranges[0].DiscountType)
	})

	t.Run("malformed bulk ranges fail open to flat shape", func(t *testing.T) {
		rec := Record{
			DiscountType:  "fixed",
			DiscountValue: d("5"),
			BulkRanges:    []byte(`{"not":"an array`),
		}
		assert.Equal(t, FlatFixed{Value: d("5")}, rec.Rule().Shape)
	})

	t.Run("malformed filters fail open to all products", func(t *testing.T) {
		rec := Record{Filters: []byte(`[[[`)}
		f := rec.Rule().Filter
		assert.Equal(t, ApplyAllProducts, f.ApplyTo)
		assert.True(t, f.MatchesProduct(123))
	})

	t.Run("malformed conditions fail open to no conditions", func(t *testing.T) {
		rec := Record{Conditions: []byte(`{"min_subtotal":`)}
		assert.Equal(t, Conditions{}, rec.Rule().Conditions)
	})

	t.Run("selected products as bare ids or objects", func(t *testing.T) {
		rec := Record{
			Filters: []byte(`{"apply_to":"specific_products","filter_method":"include","selected_products":[7,{"id":9},{"id":"11","name":"X"}]}`),
		}
		f := rec.Rule().Filter
		assert.Equal(t, []int64{7, 9, 11}, f.ProductIDs)
	})

	t.Run("condition dates in stored layouts", func(t *testing.T) {
		rec := Record{
			Conditions: []byte(`{"date_from":"2026-03-01 10:00:00","date_to":"2026-04-01"}`),
		}
		c := rec.Rule().Conditions
		require.NotNil(t, c.DateFrom)
		require.NotNil(t, c.DateTo)
		assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), *c.DateFrom)
	})

	t.Run("unparsable date treated as absent", func(t *testing.T) {
		rec := Record{Conditions: []byte(`{"date_from":"next tuesday"}`)}
		assert.Nil(t, rec.Rule().Conditions.DateFrom)
	})
}

func TestRecordRoundTrip(t *testing.T) {
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	orig := &Rule{
		ID:    3,
		Title: "Tier deal",
		Shape: BulkTiered{
			Operator: OperatorIndividual,
			Ranges: []BulkRange{
				{Min: 1, Max: 5, DiscountType: DiscountPercentage, DiscountValue: d("10"), Label: ""},
			},
		},
		Conditions: Conditions{DateFrom: &from, MinSubtotal: d("50"), MinQuantity: 2},
		Filter: Filter{
			ApplyTo:    ApplySpecificProducts,
			Method:     MethodExclude,
			ProductIDs: []int64{7},
		},
		UsageLimit: 100,
		UsageCount: 1,
		Priority:   10,
		Status:     StatusActive,
	}

	got := MakeRecord(orig).Rule()

	assert.Equal(t, orig.ID, got.ID)
	assert.Equal(t, orig.Title, got.Title)
	assert.Equal(t, orig.Filter, got.Filter)
	assert.Equal(t, orig.UsageLimit, got.UsageLimit)
	assert.Equal(t, orig.Priority, got.Priority)
	assert.Equal(t, orig.Status, got.Status)
	require.NotNil(t, got.Conditions.DateFrom)
	assert.True(t, orig.Conditions.DateFrom.Equal(*got.Conditions.DateFrom))
	assert.True(t, orig.Conditions.MinSubtotal.Equal(got.Conditions.MinSubtotal))
	assert.Equal(t, orig.Conditions.MinQuantity, got.Conditions.MinQuantity)

	wantBulk := orig.Shape.(BulkTiered)
	gotBulk, ok := got.Shape.(BulkTiered)
	require.True(t, ok)
	assert.Equal(t, wantBulk.Operator, gotBulk.Operator)
	require.Len(t, gotBulk.Ranges, 1)
	assert.Equal(t, wantBulk.Ranges[0].Min, gotBulk.Ranges[0].Min)
	assert.Equal(t, wantBulk.Ranges[0].Max, gotBulk.Ranges[0].Max)
	assert.True(t, wantBulk.Ranges[0].DiscountValue.Equal(gotBulk.Ranges[0].DiscountValue))
}
