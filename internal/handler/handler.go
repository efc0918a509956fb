// Package handler exposes the admin and pricing HTTP API.
package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/nazmunsakib/discountkit/internal/domain/auth"
	"github.com/nazmunsakib/discountkit/internal/domain/pricing"
	"github.com/nazmunsakib/discountkit/internal/domain/rule"
	"github.com/nazmunsakib/discountkit/internal/domain/settings"
)

// Handler serves the HTTP API, delegating business logic to the pricing
// engine and domain repositories.
type Handler struct {
	rules    rule.Repository
	engine   *pricing.Engine
	settings *settings.Service
	verifier *auth.Verifier
	log      *zap.Logger
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	rules rule.Repository,
	engine *pricing.Engine,
	svc *settings.Service,
	verifier *auth.Verifier,
	log *zap.Logger,
) *Handler {
	return &Handler{
		rules:    rules,
		engine:   engine,
		settings: svc,
		verifier: verifier,
		log:      log,
	}
}

// Routes returns the API route table. Every route requires an API key.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/rules", h.listRules)
	mux.HandleFunc("POST /api/v1/rules", h.createRule)
	mux.HandleFunc("GET /api/v1/rules/{id}", h.getRule)
	mux.HandleFunc("PUT /api/v1/rules/{id}", h.updateRule)
	mux.HandleFunc("DELETE /api/v1/rules/{id}", h.deleteRule)
	mux.HandleFunc("POST /api/v1/rules/{id}/duplicate", h.duplicateRule)

	mux.HandleFunc("GET /api/v1/settings", h.getSettings)
	mux.HandleFunc("PUT /api/v1/settings", h.updateSettings)
	mux.HandleFunc("POST /api/v1/settings/reset", h.resetSettings)

	mux.HandleFunc("POST /api/v1/cart/discounts", h.cartDiscounts)
	mux.HandleFunc("POST /api/v1/cart/fees", h.cartFees)
	mux.HandleFunc("GET /api/v1/products/{id}/price", h.productPrice)
	mux.HandleFunc("GET /api/v1/products/{id}/bulk-table", h.productBulkTable)

	mux.HandleFunc("POST /api/v1/orders/completed", h.orderCompleted)

	return h.requireAPIKey(mux)
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("encode response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respond(w, status, errorResponse{Code: status, Message: msg})
}

// internalError logs the cause and hides it from the client.
func (h *Handler) internalError(w http.ResponseWriter, err error) {
	h.log.Error("internal error", zap.Error(err))
	h.respondError(w, http.StatusInternalServerError, "internal server error")
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
