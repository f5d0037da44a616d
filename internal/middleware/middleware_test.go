package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/apperr"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
	"github.com/gorilla/mux"
)

type fakeChecker struct {
	balance models.CreditsBalance
	err     error
	calls   int
	email   string
}

func (f *fakeChecker) Balance(_ context.Context, email string) (models.CreditsBalance, error) {
	f.calls++
	f.email = email
	return f.balance, f.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestCreditsGate(t *testing.T) {
	cases := []struct {
		name       string
		method     string
		path       string
		email      string
		checker    *fakeChecker
		wantStatus int
		wantCalls  int
	}{
		{"gated with credits", http.MethodPost, "/api/python/api/generate-script", "a@x.io", &fakeChecker{balance: models.CreditsBalance{CreditsBalance: 3}}, http.StatusNoContent, 1},
		{"gated empty balance", http.MethodPost, "/api/python/video/generate", "a@x.io", &fakeChecker{balance: models.CreditsBalance{SubscriptionTier: "free"}}, http.StatusPaymentRequired, 1},
		{"gated missing email", http.MethodPost, "/api/python/api/repurpose", "", &fakeChecker{}, http.StatusUnauthorized, 0},
		{"gated backend down", http.MethodPost, "/api/python/api/repurpose", "a@x.io", &fakeChecker{err: apperr.NewUpstream("Failed to fetch credits", errors.New("boom"))}, http.StatusInternalServerError, 1},
		{"not a generation path", http.MethodPost, "/api/python/user/profile", "", &fakeChecker{}, http.StatusNoContent, 0},
		{"GET passes", http.MethodGet, "/api/python/api/generate-script", "", &fakeChecker{}, http.StatusNoContent, 0},
		{"outside proxy", http.MethodPost, "/api/local/planner", "", &fakeChecker{}, http.StatusNoContent, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gate := NewCreditsGate(tc.checker)
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.email != "" {
				req.Header.Set("X-User-Email", tc.email)
			}
			rr := httptest.NewRecorder()
			gate.Middleware(okHandler()).ServeHTTP(rr, req)
			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tc.wantStatus, rr.Body.String())
			}
			if tc.checker.calls != tc.wantCalls {
				t.Fatalf("checker calls = %d, want %d", tc.checker.calls, tc.wantCalls)
			}
		})
	}
}

func TestCreditsGate_InsufficientBody(t *testing.T) {
	gate := NewCreditsGate(&fakeChecker{})
	req := httptest.NewRequest(http.MethodPost, "/api/python/api/generate-script", nil)
	req.Header.Set("X-User-Email", "a@x.io")
	rr := httptest.NewRecorder()
	gate.Middleware(okHandler()).ServeHTTP(rr, req)

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "insufficient_credits" {
		t.Fatalf("body = %v", body)
	}
}

func TestLogging_SetsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	var seen string
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusAccepted)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if seen == "" || rr.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("request id not propagated: ctx=%q header=%q", seen, rr.Header().Get(RequestIDHeader))
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line not JSON: %v (%s)", err, buf.String())
	}
	if line["status"] != float64(http.StatusAccepted) || line["path"] != "/health" || line["request_id"] != seen {
		t.Fatalf("unexpected log line %v", line)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if seen != "abc" {
		t.Fatalf("incoming id should be reused, got %q", seen)
	}
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Internal server error") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestClientRateLimiter(t *testing.T) {
	l := NewClientRateLimiter(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2})
	l.now = func() time.Time { return time.Unix(0, 0) }
	h := l.Middleware(okHandler())

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:5555"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, other)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("other client should have its own budget, got %d", rr.Code)
	}
}

func TestGetClientID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := getClientID(req); got != "ip:192.0.2.1" {
		t.Fatalf("got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := getClientID(req); got != "ip:203.0.113.9" {
		t.Fatalf("got %q", got)
	}
	req.Header.Set("X-User-ID", "u1")
	if got := getClientID(req); got != "user:u1" {
		t.Fatalf("got %q", got)
	}
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	var tpl string
	r.HandleFunc("/api/local/planner/{id}", func(w http.ResponseWriter, req *http.Request) {
		tpl = routeTemplate(req)
	})
	r.Use(Metrics)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/local/planner/abc", nil))
	if tpl != "/api/local/planner/{id}" {
		t.Fatalf("template = %q", tpl)
	}
}
