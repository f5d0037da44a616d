package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/apperr"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/credits"
)

// DefaultGatedPaths are the backend generation calls that spend credits.
var DefaultGatedPaths = []string{
	"api/generate-script",
	"api/repurpose",
	"video/generate",
}

// CreditsGate refuses generation calls from users with no credits left.
// Every other request passes through untouched.
type CreditsGate struct {
	Checker credits.Checker
	Prefix  string
	Paths   []string
}

func NewCreditsGate(checker credits.Checker) *CreditsGate {
	return &CreditsGate{Checker: checker, Prefix: "/api/python/", Paths: DefaultGatedPaths}
}

func (g *CreditsGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.shouldSkip(r) {
			next.ServeHTTP(w, r)
			return
		}

		email := g.extractEmail(r)
		if email == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}

		bal, err := g.Checker.Balance(r.Context(), email)
		if err != nil {
			log.Printf("[CreditsGate] balance lookup failed path=%s err=%v", r.URL.Path, err)
			writeJSON(w, apperr.Status(err), map[string]string{"error": apperr.Message(err, "Failed to fetch credits")})
			return
		}
		if bal.CreditsBalance <= 0 {
			g.respondInsufficient(w, bal.SubscriptionTier)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// shouldSkip is true for anything but a POST to a gated backend path.
func (g *CreditsGate) shouldSkip(r *http.Request) bool {
	if g.Checker == nil || r.Method != http.MethodPost {
		return true
	}
	if !strings.HasPrefix(r.URL.Path, g.Prefix) {
		return true
	}
	sub := strings.Trim(strings.TrimPrefix(r.URL.Path, g.Prefix), "/")
	for _, p := range g.Paths {
		if sub == p {
			return false
		}
	}
	return true
}

func (g *CreditsGate) extractEmail(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Email"))
}

func (g *CreditsGate) respondInsufficient(w http.ResponseWriter, tier string) {
	writeJSON(w, http.StatusPaymentRequired, map[string]any{
		"error":       "insufficient_credits",
		"message":     "You have no credits left",
		"tier":        tier,
		"upgrade_url": "/pricing",
	})
}
