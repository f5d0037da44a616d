package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig is a per-client token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerSecond: 20, Burst: 40}
}

type clientLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// ClientRateLimiter keeps one limiter per client id in memory.
type ClientRateLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

func NewClientRateLimiter(cfg RateLimitConfig) *ClientRateLimiter {
	def := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	return &ClientRateLimiter{cfg: cfg, now: time.Now, clients: map[string]*clientLimiter{}}
}

func (l *ClientRateLimiter) limiter(id string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if len(l.clients) > 10000 {
		cutoff := now.Add(-10 * time.Minute)
		for k, c := range l.clients {
			if c.seen.Before(cutoff) {
				delete(l.clients, k)
			}
		}
	}
	c, ok := l.clients[id]
	if !ok {
		c = &clientLimiter{lim: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.clients[id] = c
	}
	c.seen = now
	return c.lim
}

// Middleware answers 429 once a client has spent its burst.
func (l *ClientRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.limiter(getClientID(r)).Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(1))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// getClientID prefers the signed-in user, then the first forwarded address,
// then the socket peer.
func getClientID(r *http.Request) string {
	if uid := strings.TrimSpace(r.Header.Get("X-User-ID")); uid != "" {
		return "user:" + uid
	}
	return "ip:" + getRealIP(r)
}

func getRealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return strings.TrimSpace(xrip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
