package credentials

import (
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
)

// SettingsStore reads tokens saved per user in public.user_settings under
// "<provider>_oauth". The user is identified by the X-User-ID header, which is
// only believed when the request also carries Secret in X-Internal-Secret.
// An empty Secret disables the store.
type SettingsStore struct {
	DB     *sql.DB
	Secret string
}

const InternalSecretHeader = "X-Internal-Secret"

// userID returns the X-User-ID of a trusted caller, or "".
func (s *SettingsStore) userID(r *http.Request) string {
	if s.Secret == "" {
		return ""
	}
	got := strings.TrimSpace(r.Header.Get(InternalSecretHeader))
	if subtle.ConstantTimeCompare([]byte(got), []byte(s.Secret)) != 1 {
		return ""
	}
	return UserID(r)
}

func (s *SettingsStore) Resolve(r *http.Request, p Provider) (*Credential, error) {
	if s == nil || s.DB == nil {
		return nil, ErrNotConnected
	}
	userID := s.userID(r)
	if userID == "" {
		return nil, ErrNotConnected
	}
	var raw []byte
	err := s.DB.QueryRowContext(r.Context(),
		`SELECT value FROM public.user_settings WHERE user_id = $1 AND key = $2 AND value IS NOT NULL`,
		userID, p.SettingsKey()).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotConnected
	}
	if err != nil {
		log.Printf("[Credentials][Settings] query error userId=%s provider=%s err=%v", userID, p, err)
		return nil, fmt.Errorf("load %s: %w", p.SettingsKey(), err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrNotConnected
	}
	var cred Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		log.Printf("[Credentials][Settings] invalid payload userId=%s provider=%s err=%v", userID, p, err)
		return nil, ErrNotConnected
	}
	cred.Provider = p
	if strings.TrimSpace(cred.AccessToken) == "" && strings.TrimSpace(cred.AccountID) == "" {
		return nil, ErrNotConnected
	}
	return &cred, nil
}

func (s *SettingsStore) Save(w http.ResponseWriter, r *http.Request, cred *Credential) error {
	userID := s.userID(r)
	if userID == "" {
		return fmt.Errorf("trusted X-User-ID header is required")
	}
	b, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(r.Context(), `
		INSERT INTO public.user_settings (user_id, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, userID, cred.Provider.SettingsKey(), b)
	return err
}

func (s *SettingsStore) Clear(w http.ResponseWriter, r *http.Request, p Provider) error {
	userID := s.userID(r)
	if userID == "" {
		return fmt.Errorf("trusted X-User-ID header is required")
	}
	_, err := s.DB.ExecContext(r.Context(),
		`DELETE FROM public.user_settings WHERE user_id = $1 AND key = $2`, userID, p.SettingsKey())
	return err
}
