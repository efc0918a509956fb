package pricing

import (
	"encoding/binary"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/nazmunsakib/discountkit/internal/domain/rule"
)

// saleIndex is a bloom filter over the product ids named by
// include-scoped price rules. It answers "can this product possibly be
// on sale" without walking every rule per storefront request.
//
// The filter is only authoritative for negatives when every active
// price rule is include-scoped: an all-products or exclude-scoped rule
// can put arbitrary products on sale, so exhaustive turns false and
// MayMatch always answers true.
type saleIndex struct {
	filter     *bloom.BloomFilter
	exhaustive bool
}

func buildSaleIndex(rules []*rule.Rule) *saleIndex {
	n := 0
	exhaustive := true
	for _, r := range rules {
		if _, cart := r.Shape.(rule.CartAdjustment); cart {
			continue
		}
		if r.Filter.ApplyTo != rule.ApplySpecificProducts || r.Filter.Method != rule.MethodInclude {
			exhaustive = false
			continue
		}
		n += len(r.Filter.ProductIDs)
	}
	if n == 0 {
		n = 1
	}

	f := bloom.NewWithEstimates(uint(n), 0.01)
	for _, r := range rules {
		if _, cart := r.Shape.(rule.CartAdjustment); cart {
			continue
		}
		if r.Filter.ApplyTo != rule.ApplySpecificProducts || r.Filter.Method != rule.MethodInclude {
			continue
		}
		for _, id := range r.Filter.ProductIDs {
			f.Add(productKey(id))
		}
	}

	return &saleIndex{filter: f, exhaustive: exhaustive}
}

// MayMatch reports whether productID could be covered by a price rule.
// False positives are possible; false negatives are not.
func (s *saleIndex) MayMatch(productID int64) bool {
	if !s.exhaustive {
		return true
	}
	return s.filter.Test(productKey(productID))
}

func productKey(id int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}
