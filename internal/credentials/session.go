package credentials

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/sessions"
)

// SessionStore keeps credentials in an encrypted, signed cookie.
type SessionStore struct {
	Store sessions.Store
	Name  string
}

func NewSessionStore(name string, hashKey, blockKey []byte, secure bool) *SessionStore {
	keys := [][]byte{hashKey}
	if len(blockKey) > 0 {
		keys = append(keys, blockKey)
	}
	store := sessions.NewCookieStore(keys...)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if name == "" {
		name = "nocturnal_session"
	}
	return &SessionStore{Store: store, Name: name}
}

func (s *SessionStore) Resolve(r *http.Request, p Provider) (*Credential, error) {
	sess, err := s.Store.Get(r, s.Name)
	if err != nil {
		// A cookie signed with an old key is the same as no session.
		log.Printf("[Credentials][Session] decode failed provider=%s err=%v", p, err)
		return nil, ErrNotConnected
	}
	raw, ok := sess.Values[p.SettingsKey()].(string)
	if !ok || raw == "" {
		return nil, ErrNotConnected
	}
	var cred Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		return nil, ErrNotConnected
	}
	cred.Provider = p
	if !cred.Usable() {
		return nil, ErrNotConnected
	}
	return &cred, nil
}

func (s *SessionStore) Save(w http.ResponseWriter, r *http.Request, cred *Credential) error {
	sess, _ := s.Store.Get(r, s.Name)
	b, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	sess.Values[cred.Provider.SettingsKey()] = string(b)
	return sess.Save(r, w)
}

func (s *SessionStore) Clear(w http.ResponseWriter, r *http.Request, p Provider) error {
	sess, _ := s.Store.Get(r, s.Name)
	delete(sess.Values, p.SettingsKey())
	return sess.Save(r, w)
}
