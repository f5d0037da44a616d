// Package google talks to Drive, Docs and Sheets over their public REST
// endpoints with an OAuth2 bearer client. One Client is built per request.
package google

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/apperr"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/credentials"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/errorlog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	MimeFolder      = "application/vnd.google-apps.folder"
	MimeDocument    = "application/vnd.google-apps.document"
	MimeSpreadsheet = "application/vnd.google-apps.spreadsheet"

	maxResponseBytes = 8 << 20
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "nocturnal_google_requests_total",
	Help: "Google REST calls by operation and status class.",
}, []string{"op", "status"})

type Endpoints struct {
	Drive   string
	Upload  string
	Docs    string
	Sheets  string
	YouTube string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Drive:   "https://www.googleapis.com/drive/v3",
		Upload:  "https://www.googleapis.com/upload/drive/v3",
		Docs:    "https://docs.googleapis.com/v1",
		Sheets:  "https://sheets.googleapis.com/v4",
		YouTube: "https://www.googleapis.com/youtube/v3",
	}
}

// Factory builds a Client for an already resolved credential. Handlers only
// call it after the credential lookup succeeded.
type Factory interface {
	ForCredential(ctx context.Context, cred *credentials.Credential) *Client
}

// ClientFactory shares the limiter and the singleflight group between the
// per-request clients it builds.
type ClientFactory struct {
	OAuth     *oauth2.Config
	Base      *http.Client
	Limiter   *rate.Limiter
	Endpoints Endpoints
	Errors    errorlog.Recorder

	group singleflight.Group
}

func NewClientFactory(oauth *oauth2.Config, timeout time.Duration, rps float64, burst int, ep Endpoints, rec errorlog.Recorder) *ClientFactory {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 1
	}
	return &ClientFactory{
		OAuth:     oauth,
		Base:      &http.Client{Timeout: timeout},
		Limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		Endpoints: ep,
		Errors:    rec,
	}
}

func (f *ClientFactory) ForCredential(ctx context.Context, cred *credentials.Credential) *Client {
	return &Client{
		HTTP:      credentials.HTTPClient(ctx, f.OAuth, cred, f.Base),
		Limiter:   f.Limiter,
		Endpoints: f.Endpoints,
		Errors:    f.Errors,
		owner:     ownerKey(cred),
		group:     &f.group,
	}
}

// ownerKey identifies whose Drive a call touches without keeping the token.
func ownerKey(cred *credentials.Credential) string {
	if cred.AccountID != "" {
		return cred.AccountID
	}
	seed := cred.RefreshToken
	if seed == "" {
		seed = cred.AccessToken
	}
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:8])
}

type Client struct {
	HTTP      *http.Client
	Limiter   *rate.Limiter
	Endpoints Endpoints
	Errors    errorlog.Recorder

	owner string
	group *singleflight.Group
}

// NewClient is the direct constructor used by tests and tools.
func NewClient(httpClient *http.Client, ep Endpoints) *Client {
	return &Client{HTTP: httpClient, Endpoints: ep, group: &singleflight.Group{}}
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// do performs one call. body may be nil; out may be nil.
func (c *Client) do(ctx context.Context, op, method, url string, body io.Reader, contentType string, out any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("google_%s_request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(op, "transport_error").Inc()
		log.Printf("[Google][%s] transport error err=%v", op, err)
		return apperr.NewUpstream(transportMessage(err), err)
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	requestsTotal.WithLabelValues(op, strconv.Itoa(res.StatusCode/100)+"xx").Inc()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := apiErrorMessage(res.StatusCode, b)
		log.Printf("[Google][%s] non_2xx status=%d msg=%q", op, res.StatusCode, msg)
		if res.StatusCode == http.StatusUnauthorized {
			return &apperr.Error{Kind: apperr.Unauthorized, Message: "Unauthorized", Err: fmt.Errorf("google_%s_401: %s", op, msg)}
		}
		return apperr.NewUpstream(msg, fmt.Errorf("google_%s_non_2xx status=%d", op, res.StatusCode))
	}
	if out == nil || len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return apperr.NewUpstream("Invalid response from Google", fmt.Errorf("google_%s_decode: %w", op, err))
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, op, method, url string, in, out any) error {
	var body io.Reader
	ct := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
		ct = "application/json"
	}
	return c.do(ctx, op, method, url, body, ct, out)
}

func apiErrorMessage(status int, body []byte) string {
	var e apiErrorBody
	if err := json.Unmarshal(body, &e); err == nil && strings.TrimSpace(e.Error.Message) != "" {
		return e.Error.Message
	}
	if s := strings.TrimSpace(string(body)); s != "" && len(s) <= 300 {
		return s
	}
	return fmt.Sprintf("Google API returned status %d", status)
}

// transportMessage unwraps oauth2 refresh failures into something readable.
func transportMessage(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.ErrorDescription != "" {
		return re.ErrorDescription
	}
	return err.Error()
}

func (c *Client) record(source string, err error) {
	if c.Errors != nil {
		c.Errors.Record(source, err)
	}
}

// quote escapes a value for a Drive query string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
