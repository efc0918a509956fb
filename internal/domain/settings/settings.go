// Package settings holds the global engine policy knobs and a cached
// read-through provider over the key/value settings store.
package settings

import "context"

// Setting keys as stored in the settings table.
const (
	KeyCalculateFrom      = "calculate_from"
	KeyApplyDiscountTo    = "apply_product_discount_to"
	KeyCouponBehavior     = "coupon_behavior"
	KeyShowSaleBadge      = "show_sale_badge"
	KeyShowStrikeout      = "show_strikeout"
	KeyShowBulkTable      = "show_bulk_table"
	KeySuppressThirdParty = "suppress_third_party"
)

// PriceBasis selects which product price discounts are computed against.
type PriceBasis string

const (
	BasisRegularPrice PriceBasis = "regular_price"
	BasisSalePrice    PriceBasis = "sale_price"
)

// Method is the conflict-resolution policy when several rules match.
type Method string

const (
	MethodFirst   Method = "first"
	MethodBiggest Method = "biggest_discount"
	MethodLowest  Method = "lowest_discount"
	MethodAll     Method = "all"
)

// CouponBehavior controls how discount rules interact with host coupons.
type CouponBehavior string

const (
	CouponRunBoth  CouponBehavior = "run_both"
	CouponDisabled CouponBehavior = "disable_coupon"
	RulesDisabled  CouponBehavior = "disable_rules"
)

// BadgeMode controls when the host should render a sale badge.
type BadgeMode string

const (
	BadgeDisabled  BadgeMode = "disabled"
	BadgeOnMatch   BadgeMode = "when_condition_matches"
	BadgeOnAnyRule BadgeMode = "at_least_has_any_rules"
)

// Settings is one immutable snapshot of the global policy, threaded
// explicitly into each evaluation instead of read ambiently.
type Settings struct {
	CalculateFrom      PriceBasis
	ApplyDiscountTo    Method
	CouponBehavior     CouponBehavior
	ShowSaleBadge      BadgeMode
	ShowStrikeout      bool
	ShowBulkTable      bool
	SuppressThirdParty bool
}

// Defaults returns the settings used when nothing is stored yet.
func Defaults() Settings {
	return Settings{
		CalculateFrom:   BasisRegularPrice,
		ApplyDiscountTo: MethodFirst,
		CouponBehavior:  CouponRunBoth,
		ShowSaleBadge:   BadgeOnMatch,
		ShowStrikeout:   true,
		ShowBulkTable:   true,
	}
}

// FromMap builds a snapshot from raw stored values. Unknown keys are
// ignored and unrecognized values fall back to the default, so a
// corrupted settings row can never break evaluation.
func FromMap(m map[string]string) Settings {
	s := Defaults()

	switch PriceBasis(m[KeyCalculateFrom]) {
	case BasisRegularPrice, BasisSalePrice:
		s.CalculateFrom = PriceBasis(m[KeyCalculateFrom])
	}
	switch Method(m[KeyApplyDiscountTo]) {
	case MethodFirst, MethodBiggest, MethodLowest, MethodAll:
		s.ApplyDiscountTo = Method(m[KeyApplyDiscountTo])
	}
	switch CouponBehavior(m[KeyCouponBehavior]) {
	case CouponRunBoth, CouponDisabled, RulesDisabled:
		s.CouponBehavior = CouponBehavior(m[KeyCouponBehavior])
	}
	switch BadgeMode(m[KeyShowSaleBadge]) {
	case BadgeDisabled, BadgeOnMatch, BadgeOnAnyRule:
		s.ShowSaleBadge = BadgeMode(m[KeyShowSaleBadge])
	}
	if v, ok := m[KeyShowStrikeout]; ok {
		s.ShowStrikeout = truthy(v)
	}
	if v, ok := m[KeyShowBulkTable]; ok {
		s.ShowBulkTable = truthy(v)
	}
	if v, ok := m[KeySuppressThirdParty]; ok {
		s.SuppressThirdParty = truthy(v)
	}

	return s
}

// Map converts the snapshot back to stored key/value form.
func (s Settings) Map() map[string]string {
	return map[string]string{
		KeyCalculateFrom:      string(s.CalculateFrom),
		KeyApplyDiscountTo:    string(s.ApplyDiscountTo),
		KeyCouponBehavior:     string(s.CouponBehavior),
		KeyShowSaleBadge:      string(s.ShowSaleBadge),
		KeyShowStrikeout:      boolValue(s.ShowStrikeout),
		KeyShowBulkTable:      boolValue(s.ShowBulkTable),
		KeySuppressThirdParty: boolValue(s.SuppressThirdParty),
	}
}

func truthy(v string) bool {
	switch v {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func boolValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Store is the persistence contract for raw settings values.
type Store interface {
	All(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
	Reset(ctx context.Context) error
}
