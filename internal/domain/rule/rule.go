package rule

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status marks whether a rule participates in evaluation.
type Status string

const (
	// StatusActive means the rule is considered during evaluation.
	StatusActive Status = "active"
	// StatusInactive means the rule is ignored entirely.
	StatusInactive Status = "inactive"
)

// DiscountType enumerates the ways a discount magnitude is interpreted.
type DiscountType string

const (
	// DiscountPercentage interprets the value as a percentage of the base price (0-100).
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed interprets the value as a flat monetary discount.
	DiscountFixed DiscountType = "fixed"
	// DiscountFixedPrice interprets the value as the final price; only valid inside bulk tiers.
	DiscountFixedPrice DiscountType = "fixed_price"
)

// BulkOperator selects how the effective quantity for tier selection is computed.
type BulkOperator string

const (
	// OperatorIndividual selects the tier from each line item's own quantity.
	OperatorIndividual BulkOperator = "product_individual"
	// OperatorCumulative sums quantities across all filter-matching line items
	// and applies that single tier uniformly.
	OperatorCumulative BulkOperator = "product_cumulative"
)

// ApplyTo scopes a rule's product filter.
type ApplyTo string

const (
	// ApplyAllProducts matches every product.
	ApplyAllProducts ApplyTo = "all_products"
	// ApplySpecificProducts matches against the selected product list.
	ApplySpecificProducts ApplyTo = "specific_products"
)

// FilterMethod flips selected-product matching between allow and deny.
type FilterMethod string

const (
	// MethodInclude matches products that are in the selected list.
	MethodInclude FilterMethod = "include"
	// MethodExclude matches products that are not in the selected list.
	MethodExclude FilterMethod = "exclude"
)

// ErrNotFound is returned when a requested rule does not exist.
var ErrNotFound = errors.New("rule not found")

// BulkRange is one quantity tier of a bulk rule. Tiers are evaluated in
// listed order and the first satisfying tier wins; the engine never
// re-sorts or picks the best tier.
type BulkRange struct {
	Min           int
	Max           int // zero means no upper bound
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	Label         string
}

// Contains reports whether qty falls inside the tier.
func (b BulkRange) Contains(qty int) bool {
	return qty >= b.Min && (b.Max == 0 || qty <= b.Max)
}

// Conditions holds a rule's eligibility constraints. Zero values mean
// the constraint is absent.
type Conditions struct {
	DateFrom    *time.Time
	DateTo      *time.Time
	MinSubtotal decimal.Decimal
	MinQuantity int
}

// Filter scopes a rule to a subset of products.
type Filter struct {
	ApplyTo    ApplyTo
	Method     FilterMethod
	ProductIDs []int64
}

// MatchesProduct reports whether the filter admits the given product.
// An empty or all-products filter admits everything.
func (f Filter) MatchesProduct(productID int64) bool {
	if f.ApplyTo != ApplySpecificProducts {
		return true
	}

	inList := false
	for _, id := range f.ProductIDs {
		if id == productID {
			inList = true
			break
		}
	}

	if f.Method == MethodExclude {
		return !inList
	}
	return inList
}

// DefaultPriority is assigned to rules created without an explicit
// priority. Lower values sort first.
const DefaultPriority = 10

// Rule is a configured discount definition: who it applies to, when, and
// what discount shape it carries.
type Rule struct {
	ID          int64
	Title       string
	Description string
	Shape       Shape
	Conditions  Conditions
	Filter      Filter
	UsageLimit  int // zero means unlimited
	UsageCount  int
	Priority    int
	Status      Status
}

// Usable reports whether the rule may still be applied: either no usage
// limit is set or the counter has not reached it.
func (r *Rule) Usable() bool {
	return r.UsageLimit == 0 || r.UsageCount < r.UsageLimit
}

// Active reports whether the rule belongs to the active rule set.
func (r *Rule) Active() bool {
	return r.Status == StatusActive && r.Usable()
}

// Duplicate returns a deep copy of the rule with cleared identity and
// usage state. Copies always start inactive so they cannot silently
// begin discounting before review.
func (r *Rule) Duplicate() *Rule {
	cp := *r
	cp.ID = 0
	cp.Title = r.Title + " (Copy)"
	cp.Status = StatusInactive
	cp.UsageCount = 0

	cp.Filter.ProductIDs = append([]int64(nil), r.Filter.ProductIDs...)
	if r.Conditions.DateFrom != nil {
		t := *r.Conditions.DateFrom
		cp.Conditions.DateFrom = &t
	}
	if r.Conditions.DateTo != nil {
		t := *r.Conditions.DateTo
		cp.Conditions.DateTo = &t
	}
	if bulk, ok := r.Shape.(BulkTiered); ok {
		dup := bulk
		dup.Ranges = append([]BulkRange(nil), bulk.Ranges...)
		cp.Shape = dup
	}

	return &cp
}

// CartLabel returns the display label for a cart-adjustment fee line,
// falling back to the rule title.
func (r *Rule) CartLabel() string {
	if adj, ok := r.Shape.(CartAdjustment); ok && adj.Label != "" {
		return adj.Label
	}
	return r.Title
}

// Usage is one audit record of a rule being applied to an order.
type Usage struct {
	RuleID   int64
	OrderID  string
	Discount decimal.Decimal
}

// Repository provides persistence for rules. ActiveRules must return only
// status=active rules whose usage limit is not exhausted, ordered by
// ascending priority; the evaluation pipeline relies on that ordering.
type Repository interface {
	ActiveRules(ctx context.Context) ([]*Rule, error)
	List(ctx context.Context) ([]*Rule, error)
	Get(ctx context.Context, id int64) (*Rule, error)
	Save(ctx context.Context, r *Rule) (int64, error)
	Delete(ctx context.Context, id int64) error
	IncrementUsage(ctx context.Context, id int64) error
	RecordUsage(ctx context.Context, u Usage) error
}
