package handler

import (
	"net/http"

	"github.com/nazmunsakib/discountkit/internal/domain/settings"
)

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Current(r.Context())
	if err != nil {
		h.internalError(w, err)
		return
	}
	h.respond(w, http.StatusOK, s.Map())
}

// updateSettings accepts a partial key/value map; unknown keys are
// rejected rather than stored, so typos surface immediately instead of
// silently never taking effect.
func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if !h.decode(w, r, &req) {
		return
	}

	known := h.settingsKeys()
	for k := range req {
		if !known[k] {
			h.respondError(w, http.StatusUnprocessableEntity, "unknown setting: "+k)
			return
		}
	}

	for k, v := range req {
		if err := h.settings.Update(r.Context(), k, v); err != nil {
			h.internalError(w, err)
			return
		}
	}

	s, err := h.settings.Current(r.Context())
	if err != nil {
		h.internalError(w, err)
		return
	}
	h.respond(w, http.StatusOK, s.Map())
}

func (h *Handler) resetSettings(w http.ResponseWriter, r *http.Request) {
	if err := h.settings.Reset(r.Context()); err != nil {
		h.internalError(w, err)
		return
	}

	s, err := h.settings.Current(r.Context())
	if err != nil {
		h.internalError(w, err)
		return
	}
	h.respond(w, http.StatusOK, s.Map())
}

func (h *Handler) settingsKeys() map[string]bool {
	known := make(map[string]bool)
	for k := range settings.Defaults().Map() {
		known[k] = true
	}
	return known
}
