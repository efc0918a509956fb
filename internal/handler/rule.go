package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/nazmunsakib/discountkit/internal/domain/rule"
)

// rulePayload is the wire form of a rule. The JSON sub-fields keep the
// loose stored shape, so exports from older authoring tools can be
// POSTed back unchanged.
type rulePayload struct {
	ID              int64           `json:"id,omitempty"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	DiscountType    string          `json:"discount_type"`
	DiscountValue   decimal.Decimal `json:"discount_value"`
	Conditions      json.RawMessage `json:"conditions,omitempty"`
	Filters         json.RawMessage `json:"filters,omitempty"`
	BulkRanges      json.RawMessage `json:"bulk_ranges,omitempty"`
	BulkOperator    string          `json:"bulk_operator,omitempty"`
	ApplyAsCartRule bool            `json:"apply_as_cart_rule,omitempty"`
	CartLabel       string          `json:"cart_label,omitempty"`
	UsageLimit      int             `json:"usage_limit,omitempty"`
	UsageCount      int             `json:"usage_count"`
	Priority        *int            `json:"priority,omitempty"`
	Status          string          `json:"status"`
}

func (p rulePayload) record() rule.Record {
	priority := rule.DefaultPriority
	if p.Priority != nil {
		priority = *p.Priority
	}
	return rule.Record{
		ID:              p.ID,
		Title:           p.Title,
		Description:     p.Description,
		DiscountType:    p.DiscountType,
		DiscountValue:   p.DiscountValue,
		Conditions:      p.Conditions,
		Filters:         p.Filters,
		BulkRanges:      p.BulkRanges,
		BulkOperator:    p.BulkOperator,
		ApplyAsCartRule: p.ApplyAsCartRule,
		CartLabel:       p.CartLabel,
		UsageLimit:      p.UsageLimit,
		UsageCount:      p.UsageCount,
		Priority:        priority,
		Status:          p.Status,
	}
}

func payloadFromRule(r *rule.Rule) rulePayload {
	rec := rule.MakeRecord(r)
	return rulePayload{
		ID:              rec.ID,
		Title:           rec.Title,
		Description:     rec.Description,
		DiscountType:    rec.DiscountType,
		DiscountValue:   rec.DiscountValue,
		Conditions:      json.RawMessage(rec.Conditions),
		Filters:         json.RawMessage(rec.Filters),
		BulkRanges:      json.RawMessage(rec.BulkRanges),
		BulkOperator:    rec.BulkOperator,
		ApplyAsCartRule: rec.ApplyAsCartRule,
		CartLabel:       rec.CartLabel,
		UsageLimit:      rec.UsageLimit,
		UsageCount:      rec.UsageCount,
		Priority:        &rec.Priority,
		Status:          rec.Status,
	}
}

// validatePayload rejects rules that could never apply correctly.
// Anything it accepts decodes tolerantly on the way in.
func validatePayload(p rulePayload) string {
	if p.Title == "" {
		return "title is required"
	}
	switch rule.DiscountType(p.DiscountType) {
	case rule.DiscountPercentage, rule.DiscountFixed, "":
	case rule.DiscountFixedPrice:
		return "fixed_price is only valid inside bulk ranges"
	default:
		return "unknown discount_type"
	}
	if p.DiscountValue.IsNegative() {
		return "discount_value must not be negative"
	}
	if rule.DiscountType(p.DiscountType) == rule.DiscountPercentage &&
		p.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return "percentage discount_value must not exceed 100"
	}
	if p.UsageLimit < 0 {
		return "usage_limit must not be negative"
	}
	return ""
}

func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.List(r.Context())
	if err != nil {
		h.internalError(w, err)
		return
	}

	out := make([]rulePayload, 0, len(rules))
	for _, ru := range rules {
		out = append(out, payloadFromRule(ru))
	}
	h.respond(w, http.StatusOK, out)
}

func (h *Handler) createRule(w http.ResponseWriter, r *http.Request) {
	var p rulePayload
	if !h.decode(w, r, &p) {
		return
	}
	if msg := validatePayload(p); msg != "" {
		h.respondError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	p.ID = 0
	p.UsageCount = 0
	ru := p.record().Rule()
	id, err := h.rules.Save(r.Context(), ru)
	if err != nil {
		h.internalError(w, err)
		return
	}
	ru.ID = id
	h.engine.InvalidateSaleIndex()
	h.respond(w, http.StatusCreated, payloadFromRule(ru))
}

func (h *Handler) getRule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ruleID(w, r)
	if !ok {
		return
	}

	ru, err := h.rules.Get(r.Context(), id)
	if err != nil {
		h.ruleError(w, err)
		return
	}
	h.respond(w, http.StatusOK, payloadFromRule(ru))
}

func (h *Handler) updateRule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ruleID(w, r)
	if !ok {
		return
	}

	var p rulePayload
	if !h.decode(w, r, &p) {
		return
	}
	if msg := validatePayload(p); msg != "" {
		h.respondError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	stored, err := h.rules.Get(r.Context(), id)
	if err != nil {
		h.ruleError(w, err)
		return
	}

	// The counter belongs to the order pipeline, not the authoring
	// surface. Edits must never roll it back.
	p.ID = id
	p.UsageCount = stored.UsageCount
	ru := p.record().Rule()
	if _, err := h.rules.Save(r.Context(), ru); err != nil {
		h.ruleError(w, err)
		return
	}
	h.engine.InvalidateSaleIndex()
	h.respond(w, http.StatusOK, payloadFromRule(ru))
}

func (h *Handler) deleteRule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ruleID(w, r)
	if !ok {
		return
	}

	if err := h.rules.Delete(r.Context(), id); err != nil {
		h.ruleError(w, err)
		return
	}
	h.engine.InvalidateSaleIndex()
	h.respond(w, http.StatusNoContent, nil)
}

// duplicateRule creates an inactive deep copy of an existing rule.
func (h *Handler) duplicateRule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ruleID(w, r)
	if !ok {
		return
	}

	ru, err := h.rules.Get(r.Context(), id)
	if err != nil {
		h.ruleError(w, err)
		return
	}

	cp := ru.Duplicate()
	newID, err := h.rules.Save(r.Context(), cp)
	if err != nil {
		h.internalError(w, err)
		return
	}
	cp.ID = newID
	h.respond(w, http.StatusCreated, payloadFromRule(cp))
}

func (h *Handler) ruleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusNotFound, "rule not found")
		return 0, false
	}
	return id, true
}

func (h *Handler) ruleError(w http.ResponseWriter, err error) {
	if errors.Is(err, rule.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "rule not found")
		return
	}
	h.internalError(w, err)
}
