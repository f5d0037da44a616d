package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/apperr"
	"github.com/gorilla/mux"
)

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusCreated, map[string]any{"ok": true})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", ct)
	}
	if body := rr.Body.String(); body == "" || body[0] != '{' {
		t.Fatalf("expected json body, got %q", body)
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		A string `json:"a"`
	}
	req := httptest.NewRequest(http.MethodPost, "/x", bytes.NewBufferString(`{"a":"b"}`))

	var out payload
	if err := decodeJSON(req, &out); err != nil {
		t.Fatalf("decodeJSON error: %v", err)
	}
	if out.A != "b" {
		t.Fatalf("expected a=b, got %q", out.A)
	}
}

func TestDecodeJSON_Invalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/x", bytes.NewBufferString(`not-json`))
	var out map[string]any
	if err := decodeJSON(req, &out); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPathVar(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/users/123", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "123"})

	if got := pathVar(req, "id"); got != "123" {
		t.Fatalf("expected id=123, got %q", got)
	}
	if got := pathVar(req, "missing"); got != "" {
		t.Fatalf("expected missing var to be empty string, got %q", got)
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, http.StatusBadRequest, "nope")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	// http.Error writes text/plain; charset=utf-8 and appends a newline.
	if body := rr.Body.String(); body != "nope\n" {
		t.Fatalf("expected body %q, got %q", "nope\n", body)
	}
}

func TestWriteAppError(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"validation with field", apperr.NewValidation("fileId", "File ID is required"), http.StatusBadRequest, `{"error":"File ID is required","field":"fileId"}`},
		{"unauthorized", apperr.NewUnauthorized(), http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"upstream keeps message", apperr.NewUpstream("Requested entity was not found.", errors.New("404")), http.StatusInternalServerError, `{"error":"Requested entity was not found."}`},
		{"local io", apperr.NewLocalIO("Failed to save planner item", errors.New("disk")), http.StatusInternalServerError, `{"error":"Failed to save planner item"}`},
		{"untyped uses fallback", errors.New("secret detail"), http.StatusInternalServerError, `{"error":"Something failed"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeAppError(rr, tc.err, "Something failed")
			if rr.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tc.wantCode)
			}
			if got := strings.TrimSpace(rr.Body.String()); got != tc.wantBody {
				t.Fatalf("body = %s, want %s", got, tc.wantBody)
			}
		})
	}
}

func TestDecodeBody(t *testing.T) {
	var out map[string]any
	rr := httptest.NewRecorder()
	err := decodeBody(rr, httptest.NewRequest(http.MethodPost, "/x", bytes.NewBufferString("")), &out)
	if apperr.Message(err, "") != "Request body is required" {
		t.Fatalf("empty body: %v", err)
	}
	err = decodeBody(rr, httptest.NewRequest(http.MethodPost, "/x", bytes.NewBufferString("{")), &out)
	if apperr.Status(err) != http.StatusBadRequest {
		t.Fatalf("bad json: %v", err)
	}
}

func TestQueryParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?fileId=%20abc%20", nil)
	if got := queryParam(req, "fileId"); got != "abc" {
		t.Fatalf("got %q", got)
	}
}
