package handler

import (
	"net/http"

	"github.com/nazmunsakib/discountkit/internal/domain/pricing"
)

type orderCompletedRequest struct {
	OrderID      string                `json:"order_id"`
	AppliedRules []pricing.AppliedRule `json:"applied_rules"`
}

// orderCompleted records rule usage for a completed order. Duplicate
// rule entries in the payload count a single use.
func (h *Handler) orderCompleted(w http.ResponseWriter, r *http.Request) {
	var req orderCompletedRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.OrderID == "" {
		h.respondError(w, http.StatusUnprocessableEntity, "order_id is required")
		return
	}
	for _, a := range req.AppliedRules {
		if a.RuleID <= 0 {
			h.respondError(w, http.StatusUnprocessableEntity, "rule_id must be positive")
			return
		}
	}

	if err := h.engine.OnOrderCompleted(r.Context(), req.OrderID, req.AppliedRules); err != nil {
		h.internalError(w, err)
		return
	}
	h.respond(w, http.StatusNoContent, nil)
}
