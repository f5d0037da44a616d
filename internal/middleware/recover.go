package middleware

import (
	"log"
	"net/http"
	"runtime/debug"
)

// Recover turns a handler panic into a 500 JSON error.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := wrapResponseWriter(w)
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Printf("[Recover] panic method=%s path=%s requestId=%s err=%v\n%s", r.Method, r.URL.Path, RequestID(r.Context()), rec, debug.Stack())
				if !wrapped.wroteHeader {
					writeJSON(wrapped, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
				}
			}
		}()
		next.ServeHTTP(wrapped, r)
	})
}
