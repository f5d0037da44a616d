package handlers

import (
	"log"
	"net/http"
)

// Credits returns the backend's balance for ?email.
func (h *Handler) Credits(w http.ResponseWriter, r *http.Request) {
	if h.credits == nil {
		h.unavailable(w, "Credits")
		return
	}
	email := queryParam(r, "email")
	bal, err := h.credits.Balance(r.Context(), email)
	if err != nil {
		log.Printf("[Credits] error email=%s err=%v", email, err)
		writeAppError(w, err, "Failed to fetch credits")
		return
	}
	writeJSON(w, http.StatusOK, bal)
}
