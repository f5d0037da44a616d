// Package proxy forwards browser calls to the content-generation backend.
package proxy

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// FailureMessage is the body of every proxy failure.
const FailureMessage = "Failed to proxy request"

var upstreamTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "nocturnal_proxy_upstream_total",
	Help: "Proxied backend calls by upstream status (or \"error\").",
}, []string{"status"})

// passthrough are the only request headers copied to the backend.
var passthrough = []string{"Authorization", "Content-Type"}

// Forwarder relays one request to Base and streams the answer back unchanged.
type Forwarder struct {
	Base   string
	APIKey string
	Client *http.Client
}

func New(base, apiKey string, timeout time.Duration) *Forwarder {
	return &Forwarder{
		Base:   strings.TrimRight(base, "/"),
		APIKey: apiKey,
		Client: &http.Client{Timeout: timeout},
	}
}

// Target builds the upstream URL for a sub-path and raw query string.
func (f *Forwarder) Target(path, rawQuery string) string {
	u := f.Base + "/" + strings.TrimLeft(path, "/")
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}

// Forward sends r to the backend under path. Errors are returned only when
// nothing has been written to w yet.
func (f *Forwarder) Forward(ctx context.Context, w http.ResponseWriter, r *http.Request, path string) error {
	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		body = r.Body
	}
	target := f.Target(path, r.URL.RawQuery)
	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		upstreamTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("proxy_request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for _, h := range passthrough {
		if v := r.Header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}
	if f.APIKey != "" {
		req.Header.Set("X-API-Key", f.APIKey)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		upstreamTotal.WithLabelValues("error").Inc()
		log.Printf("[Proxy] upstream error method=%s path=%s err=%v", r.Method, path, err)
		return fmt.Errorf("proxy_upstream: %w", err)
	}
	defer res.Body.Close()
	upstreamTotal.WithLabelValues(strconv.Itoa(res.StatusCode)).Inc()

	ct := res.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(res.StatusCode)
	if _, err := io.Copy(w, res.Body); err != nil {
		log.Printf("[Proxy] stream interrupted method=%s path=%s err=%v", r.Method, path, err)
	}
	return nil
}
