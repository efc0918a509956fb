package handler

import (
	"net/http"

	"go.uber.org/zap"
)

const apiKeyHeader = "X-API-Key"

// requireAPIKey authenticates every request by hashing the presented
// key and looking it up in the key store. The comparison happens on
// HMAC output, so lookup timing reveals nothing about stored secrets.
func (h *Handler) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)
		if _, err := h.verifier.Verify(r.Context(), key); err != nil {
			h.log.Debug("rejected api key", zap.String("path", r.URL.Path))
			h.respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
