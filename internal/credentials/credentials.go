// Package credentials looks up the OAuth credential a request acts with.
// Handlers ask a Resolver explicitly instead of reading ambient session state.
package credentials

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

type Provider string

const (
	Google    Provider = "google"
	YouTube   Provider = "youtube"
	LinkedIn  Provider = "linkedin"
	Canva     Provider = "canva"
	Instagram Provider = "instagram"
)

var AllProviders = []Provider{Google, YouTube, LinkedIn, Canva, Instagram}

func ParseProvider(s string) (Provider, bool) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllProviders {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// SettingsKey is the user_settings key a provider's token is stored under.
func (p Provider) SettingsKey() string { return string(p) + "_oauth" }

// Credential is an already-obtained token. For LinkedIn, Canva and Instagram
// AccountID is what the dashboard links; for Google and YouTube the access
// token is the bearer.
type Credential struct {
	Provider     Provider `json:"provider"`
	AccessToken  string   `json:"accessToken"`
	TokenType    string   `json:"tokenType,omitempty"`
	RefreshToken string   `json:"refreshToken,omitempty"`
	ExpiresAt    string   `json:"expiresAt,omitempty"` // RFC3339
	AccountID    string   `json:"accountId,omitempty"`
	Scope        string   `json:"scope,omitempty"`
}

func (c *Credential) Usable() bool {
	if c == nil {
		return false
	}
	return strings.TrimSpace(c.AccessToken) != "" || strings.TrimSpace(c.AccountID) != ""
}

// Expiry parses ExpiresAt; unparsable or empty means unknown (zero).
func (c *Credential) Expiry() time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(c.ExpiresAt))
	if err != nil {
		return time.Time{}
	}
	return t
}

// SetExpiry stores t as RFC3339; the zero time clears it.
func (c *Credential) SetExpiry(t time.Time) {
	if t.IsZero() {
		c.ExpiresAt = ""
		return
	}
	c.ExpiresAt = t.UTC().Format(time.RFC3339)
}

// Token converts to an oauth2 token; a zero expiry means "never expires" to oauth2.
func (c *Credential) Token() *oauth2.Token {
	tt := c.TokenType
	if tt == "" {
		tt = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    tt,
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry(),
	}
}

var ErrNotConnected = errors.New("provider not connected")

type Resolver interface {
	Resolve(r *http.Request, p Provider) (*Credential, error)
}

// Writer is implemented by resolvers that can also persist a credential.
type Writer interface {
	Save(w http.ResponseWriter, r *http.Request, cred *Credential) error
	Clear(w http.ResponseWriter, r *http.Request, p Provider) error
}

// Chain asks each resolver in order and returns the first usable credential.
// Errors other than ErrNotConnected stop the walk.
type Chain []Resolver

func (c Chain) Resolve(r *http.Request, p Provider) (*Credential, error) {
	for _, res := range c {
		if res == nil {
			continue
		}
		cred, err := res.Resolve(r, p)
		if errors.Is(err, ErrNotConnected) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if cred.Usable() {
			return cred, nil
		}
	}
	return nil, ErrNotConnected
}

// Connected lists the providers resolvable for r.
func Connected(res Resolver, r *http.Request) []Provider {
	out := make([]Provider, 0, len(AllProviders))
	for _, p := range AllProviders {
		if cred, err := res.Resolve(r, p); err == nil && cred.Usable() {
			out = append(out, p)
		}
	}
	return out
}

// UserID reads the dashboard user id forwarded by the frontend.
func UserID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}
