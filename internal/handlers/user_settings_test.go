package handlers

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestUserSettings_GetOne(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	r := newTestRouter(New(Deps{DB: db}))

	mock.ExpectQuery(`SELECT value FROM public\.user_settings WHERE user_id = \$1 AND key = \$2`).
		WithArgs("u1", "theme").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`"dark"`)))
	rr := do(t, r, http.MethodGet, "/api/user-settings/u1/theme", "")
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != `{"key":"theme","value":"dark"}` {
		t.Fatalf("unexpected: %d %s", rr.Code, rr.Body.String())
	}

	mock.ExpectQuery(`SELECT value FROM public\.user_settings`).
		WithArgs("u1", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	rr = do(t, r, http.MethodGet, "/api/user-settings/u1/missing", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	mock.ExpectQuery(`SELECT value FROM public\.user_settings`).
		WithArgs("u1", "boom").
		WillReturnError(errors.New("conn reset"))
	rr = do(t, r, http.MethodGet, "/api/user-settings/u1/boom", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}

	// Token rows never leave through this route.
	rr = do(t, r, http.MethodGet, "/api/user-settings/u1/google_oauth", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for token key, got %d", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserSettings_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	r := newTestRouter(New(Deps{DB: db}))

	mock.ExpectExec(`INSERT INTO public\.user_settings .* ON CONFLICT \(user_id, key\) DO UPDATE`).
		WithArgs("u1", "defaultPlatform", []byte(`"linkedin"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	rr := do(t, r, http.MethodPut, "/api/user-settings/u1/defaultPlatform", `{"value":"linkedin"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	if m := decodeMap(t, rr); m["ok"] != true || m["value"] != "linkedin" {
		t.Fatalf("unexpected body %v", m)
	}

	rr = do(t, r, http.MethodPut, "/api/user-settings/u1/youtube_oauth", `{"value":{"accessToken":"x"}}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for token key, got %d", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserSettings_GetAllSkipsTokens(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	r := newTestRouter(New(Deps{DB: db}))

	mock.ExpectQuery(`SELECT key, value FROM public\.user_settings WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow("theme", []byte(`"dark"`)).
			AddRow("google_oauth", []byte(`{"accessToken":"secret"}`)))
	rr := do(t, r, http.MethodGet, "/api/user-settings/u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "secret") || !strings.Contains(rr.Body.String(), `"theme":"dark"`) {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserSettings_NoDatabase(t *testing.T) {
	rr := do(t, newTestRouter(New(Deps{})), http.MethodGet, "/api/user-settings/u1", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
