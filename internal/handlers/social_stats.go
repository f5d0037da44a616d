package handlers

import (
	"net/http"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/credentials"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
)

// SocialStats summarises audience numbers for the posted handles. YouTube uses
// the caller's credential when one resolves; everything else is simulated.
func (h *Handler) SocialStats(w http.ResponseWriter, r *http.Request) {
	var req models.SocialStatsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAppError(w, err, "")
		return
	}
	lookup := func(network string) *credentials.Credential {
		if h.creds == nil {
			return nil
		}
		p, ok := credentials.ParseProvider(network)
		if !ok {
			return nil
		}
		cred, err := h.creds.Resolve(r, p)
		if err != nil {
			return nil
		}
		return cred
	}
	writeJSON(w, http.StatusOK, h.stats.Collect(r.Context(), req.Profiles, lookup))
}
