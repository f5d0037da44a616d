package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/apperr"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/credentials"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
)

func providerVar(r *http.Request) (credentials.Provider, error) {
	p, ok := credentials.ParseProvider(pathVar(r, "provider"))
	if !ok {
		return "", apperr.NewValidation("provider", "Unknown provider")
	}
	return p, nil
}

// ListCredentials reports which providers resolve for this caller.
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	connected := []credentials.Provider{}
	if h.creds != nil {
		connected = credentials.Connected(h.creds, r)
	}
	writeJSON(w, http.StatusOK, map[string]any{"connected": connected})
}

// ConnectCredential stores an already obtained token for {provider}.
func (h *Handler) ConnectCredential(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		h.unavailable(w, "Credential storage")
		return
	}
	p, err := providerVar(r)
	if err != nil {
		writeAppError(w, err, "")
		return
	}
	var req models.ConnectCredentialRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAppError(w, err, "")
		return
	}
	cred := &credentials.Credential{
		Provider:     p,
		AccessToken:  strings.TrimSpace(req.AccessToken),
		RefreshToken: strings.TrimSpace(req.RefreshToken),
		TokenType:    strings.TrimSpace(req.TokenType),
		AccountID:    strings.TrimSpace(req.AccountID),
		Scope:        strings.TrimSpace(req.Scope),
	}
	if exp := strings.TrimSpace(req.Expiry); exp != "" {
		t, err := time.Parse(time.RFC3339, exp)
		if err != nil {
			writeAppError(w, apperr.NewValidation("expiry", "expiry must be an RFC 3339 timestamp"), "")
			return
		}
		cred.SetExpiry(t)
	}
	if !cred.Usable() && cred.RefreshToken == "" {
		writeAppError(w, apperr.NewValidation("accessToken", "accessToken, refreshToken or accountId is required"), "")
		return
	}
	if err := h.sessions.Save(w, r, cred); err != nil {
		log.Printf("[Session][Connect] error provider=%s err=%v", p, err)
		writeAppError(w, apperr.Wrap(apperr.Internal, "Failed to save credentials", err), "")
		return
	}
	log.Printf("[Session][Connect] saved provider=%s account=%s", p, cred.AccountID)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "provider": p})
}

// DisconnectCredential forgets {provider}. Unknown sessions are not an error.
func (h *Handler) DisconnectCredential(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		h.unavailable(w, "Credential storage")
		return
	}
	p, err := providerVar(r)
	if err != nil {
		writeAppError(w, err, "")
		return
	}
	if err := h.sessions.Clear(w, r, p); err != nil && !errors.Is(err, credentials.ErrNotConnected) {
		log.Printf("[Session][Disconnect] error provider=%s err=%v", p, err)
		writeAppError(w, apperr.Wrap(apperr.Internal, "Failed to clear credentials", err), "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "provider": p})
}
