// Package analytics estimates audience numbers for the dashboard's linked
// social profiles, one provider per network.
package analytics

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/credentials"
	"golang.org/x/time/rate"
)

// Audience is what a provider reports for one profile. Views may be
// fractional for networks whose views are estimated from followers.
type Audience struct {
	Count  int64
	Views  float64
	Source string
}

// Provider looks up one profile. cred is nil when the user has not linked the
// network; providers that need it should return ErrNoCredential.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, handle string, cred *credentials.Credential, client *http.Client, limiter *rate.Limiter) (Audience, error)
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

func DefaultRateLimits() map[string]RateLimitConfig {
	return map[string]RateLimitConfig{
		"twitter":   {RequestsPerSecond: 1, Burst: 2},
		"linkedin":  {RequestsPerSecond: 1, Burst: 2},
		"instagram": {RequestsPerSecond: 1, Burst: 2},
		"youtube":   {RequestsPerSecond: 3, Burst: 3},
	}
}

// rateLimitFromEnv applies SOCIAL_STATS_<PROVIDER>_RPS and _BURST overrides.
func rateLimitFromEnv(getenv func(string) string, provider string, def RateLimitConfig) RateLimitConfig {
	prefix := "SOCIAL_STATS_" + upper(provider) + "_"
	if v := getenv(prefix + "RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			def.RequestsPerSecond = f
		}
	}
	if v := getenv(prefix + "BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			def.Burst = n
		}
	}
	if def.RequestsPerSecond <= 0 {
		def.RequestsPerSecond = 1
	}
	if def.Burst <= 0 {
		def.Burst = 1
	}
	return def
}

// Runner owns the per-network limiters. Limiters live as long as the Runner
// so the budgets hold across requests.
type Runner struct {
	Client    *http.Client
	Logger    *log.Logger
	Getenv    func(string) string
	Providers map[string]Provider

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func (r *Runner) EnsureDefaults() {
	if r.Client == nil {
		r.Client = &http.Client{Timeout: 20 * time.Second}
	}
	if r.Logger == nil {
		r.Logger = log.Default()
	}
	if r.Getenv == nil {
		r.Getenv = os.Getenv
	}
}

func (r *Runner) limiterForProvider(provider string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lim, ok := r.limiters[provider]; ok {
		return lim
	}
	cfg := rateLimitFromEnv(r.Getenv, provider, DefaultRateLimits()[provider])
	lim := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	if r.limiters == nil {
		r.limiters = map[string]*rate.Limiter{}
	}
	r.limiters[provider] = lim
	return lim
}

func upper(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			out = append(out, c-32)
		} else if c == '-' {
			out = append(out, '_')
		} else {
			out = append(out, c)
		}
	}
	return string(out)
}
