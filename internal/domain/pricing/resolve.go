package pricing

import (
	"github.com/nazmunsakib/discountkit/internal/domain/settings"
)

// Resolve reduces matched candidates to the set that actually applies
// under the configured method. Candidates must already be sorted by
// rule priority. Ties keep the earlier candidate.
func Resolve(candidates []RuleDiscount, method settings.Method) []RuleDiscount {
	if len(candidates) == 0 {
		return nil
	}

	switch method {
	case settings.MethodAll:
		return candidates
	case settings.MethodBiggest:
		best := candidates[0]
		for _, cand := range candidates[1:] {
			if cand.Amount.GreaterThan(best.Amount) {
				best = cand
			}
		}
		return []RuleDiscount{best}
	case settings.MethodLowest:
		best := candidates[0]
		for _, cand := range candidates[1:] {
			if cand.Amount.LessThan(best.Amount) {
				best = cand
			}
		}
		return []RuleDiscount{best}
	default:
		// MethodFirst, and anything unrecognized.
		return candidates[:1]
	}
}
