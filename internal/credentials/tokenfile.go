package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// TokenFile serves a single Google credential from a desktop-style
// credentials.json and token.json pair. Refreshed tokens are written back.
type TokenFile struct {
	CredentialsPath string
	TokenPath       string
	Scopes          []string

	mu sync.Mutex
}

var DefaultGoogleScopes = []string{
	"https://www.googleapis.com/auth/drive.file",
	"https://www.googleapis.com/auth/drive.readonly",
	"https://www.googleapis.com/auth/documents.readonly",
	"https://www.googleapis.com/auth/spreadsheets",
}

func (f *TokenFile) Resolve(r *http.Request, p Provider) (*Credential, error) {
	if p != Google {
		return nil, ErrNotConnected
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	tok, err := f.readToken()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, err
	}

	cfg, err := f.Config()
	if err == nil && cfg != nil && tok.RefreshToken != "" && !tok.Valid() {
		fresh, rerr := cfg.TokenSource(r.Context(), tok).Token()
		if rerr != nil {
			return nil, fmt.Errorf("refresh token.json: %w", rerr)
		}
		if fresh.AccessToken != tok.AccessToken {
			_ = f.writeToken(fresh)
		}
		tok = fresh
	}
	if tok.AccessToken == "" {
		return nil, ErrNotConnected
	}
	cred := &Credential{
		Provider:     Google,
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
	}
	cred.SetExpiry(tok.Expiry)
	return cred, nil
}

// Config loads the OAuth client from credentials.json, or nil when absent.
func (f *TokenFile) Config() (*oauth2.Config, error) {
	b, err := os.ReadFile(f.CredentialsPath)
	if err != nil {
		return nil, err
	}
	scopes := f.Scopes
	if len(scopes) == 0 {
		scopes = DefaultGoogleScopes
	}
	return google.ConfigFromJSON(b, scopes...)
}

func (f *TokenFile) readToken() (*oauth2.Token, error) {
	b, err := os.ReadFile(f.TokenPath)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.TokenPath, err)
	}
	return &tok, nil
}

func (f *TokenFile) writeToken(tok *oauth2.Token) error {
	b, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.TokenPath, b, 0o600)
}

// ClientConfig is the OAuth client used to refresh tokens from any resolver.
// It is nil when no client secret is configured; tokens are then used as-is.
func ClientConfig(clientID, clientSecret string, scopes []string) *oauth2.Config {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	if len(scopes) == 0 {
		scopes = DefaultGoogleScopes
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       scopes,
	}
}

// HTTPClient builds an authorized client for cred. With a refresh token and a
// client config the token refreshes itself; otherwise it is used verbatim.
func HTTPClient(ctx context.Context, cfg *oauth2.Config, cred *Credential, base *http.Client) *http.Client {
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	var ts oauth2.TokenSource
	if cfg != nil && cred.RefreshToken != "" {
		ts = cfg.TokenSource(ctx, cred.Token())
	} else {
		ts = oauth2.StaticTokenSource(cred.Token())
	}
	c := oauth2.NewClient(ctx, ts)
	if base != nil {
		c.Timeout = base.Timeout
	}
	return c
}
