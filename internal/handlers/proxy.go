package handlers

import (
	"log"
	"net/http"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/proxy"
)

// Proxy relays /api/python/{path} to the generation backend. The body and
// status come back untouched; only a transport failure is answered here.
func (h *Handler) Proxy(w http.ResponseWriter, r *http.Request) {
	if h.proxy == nil {
		h.unavailable(w, "Backend")
		return
	}
	path := pathVar(r, "path")
	if err := h.proxy.Forward(r.Context(), w, r, path); err != nil {
		log.Printf("[Proxy] error method=%s path=%s err=%v", r.Method, path, err)
		if h.errs != nil {
			h.errs.Record("Proxy", err)
		}
		writeJSONError(w, http.StatusInternalServerError, proxy.FailureMessage)
	}
}
