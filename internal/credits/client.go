// Package credits reads a user's generation balance from the backend.
package credits

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/apperr"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
)

// Checker is what the credits gate needs.
type Checker interface {
	Balance(ctx context.Context, email string) (models.CreditsBalance, error)
}

type Client struct {
	Base   string
	APIKey string
	HTTP   *http.Client
}

func NewClient(base, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{Base: strings.TrimRight(base, "/"), APIKey: apiKey, HTTP: &http.Client{Timeout: timeout}}
}

// Balance calls GET <base>/user/credits?email=.
func (c *Client) Balance(ctx context.Context, email string) (models.CreditsBalance, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return models.CreditsBalance{}, apperr.NewValidation("email", "Email is required")
	}
	q := url.Values{}
	q.Set("email", email)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+"/user/credits?"+q.Encode(), nil)
	if err != nil {
		return models.CreditsBalance{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return models.CreditsBalance{}, apperr.NewUpstream("Failed to fetch credits", err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return models.CreditsBalance{}, apperr.NewUpstream("Failed to fetch credits",
			fmt.Errorf("credits_non_2xx status=%d body=%s", res.StatusCode, truncate(string(body), 300)))
	}
	var out models.CreditsBalance
	if err := json.Unmarshal(body, &out); err != nil {
		return models.CreditsBalance{}, apperr.NewUpstream("Failed to fetch credits", err)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
