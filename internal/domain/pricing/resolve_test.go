package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nazmunsakib/discountkit/internal/domain/rule"
	"github.com/nazmunsakib/discountkit/internal/domain/settings"
)

func candidateSet(amounts ...string) []RuleDiscount {
	out := make([]RuleDiscount, 0, len(amounts))
	for i, a := range amounts {
		out = append(out, RuleDiscount{
			Rule:   &rule.Rule{ID: int64(i + 1), Priority: i},
			Amount: d(a),
		})
	}
	return out
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		amounts []string
		method  settings.Method
		wantIDs []int64
	}{
		{"first keeps priority order winner", []string{"5", "12", "3"}, settings.MethodFirst, []int64{1}},
		{"biggest", []string{"5", "12", "3"}, settings.MethodBiggest, []int64{2}},
		{"biggest tie keeps earlier candidate", []string{"5", "12", "12", "3"}, settings.MethodBiggest, []int64{2}},
		{"lowest", []string{"5", "12", "3"}, settings.MethodLowest, []int64{3}},
		{"lowest tie keeps earlier candidate", []string{"3", "5", "3"}, settings.MethodLowest, []int64{1}},
		{"all keeps everything", []string{"5", "12", "3"}, settings.MethodAll, []int64{1, 2, 3}},
		{"unknown method behaves as first", []string{"5", "12"}, settings.Method("bogus"), []int64{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(candidateSet(tt.amounts...), tt.method)
			require.Len(t, got, len(tt.wantIDs))
			for i, id := range tt.wantIDs {
				assert.Equal(t, id, got[i].Rule.ID)
			}
		})
	}
}

func TestResolveEmpty(t *testing.T) {
	assert.Nil(t, Resolve(nil, settings.MethodBiggest))
	assert.Nil(t, Resolve([]RuleDiscount{}, settings.MethodAll))
}
