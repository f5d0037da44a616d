package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/apperr"
	"github.com/gorilla/mux"
)

// maxBodyBytes caps JSON request bodies; image uploads carry base64 payloads.
const maxBodyBytes = 25 << 20

// writeJSON encodes v as JSON with the provided status code and a JSON content-type.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError returns a plain-text error, as http.Error does.
func writeError(w http.ResponseWriter, status int, msg string) {
	http.Error(w, msg, status)
}

// writeJSONError writes {"error": msg}.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps err through apperr.Status and writes {"error", "field"}.
// Untyped errors become a 500 with fallback as the message.
func writeAppError(w http.ResponseWriter, err error, fallback string) {
	status := apperr.Status(err)
	body := map[string]string{"error": apperr.Message(err, fallback)}
	if e, ok := apperr.As(err); ok && e.Kind == apperr.Validation && e.Field != "" {
		body["field"] = e.Field
	}
	if status >= 500 {
		log.Printf("[HTTP] error status=%d err=%v", status, err)
	}
	writeJSON(w, status, body)
}

// pathVar returns the mux path var value (or empty string if missing).
func pathVar(r *http.Request, key string) string {
	return mux.Vars(r)[key]
}

// queryParam returns the trimmed query value.
func queryParam(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// decodeJSON decodes JSON request bodies without rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// decodeBody is decodeJSON behind a size cap; an empty body is a validation
// error rather than io.EOF.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := decodeJSON(r, dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.NewValidation("body", "Request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.NewValidation("body", "Request body too large")
		}
		return apperr.NewValidation("body", "Invalid JSON body")
	}
	return nil
}
