// Package apperr holds the error kinds shared by every HTTP handler and the
// single function that maps them to status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	Validation
	Unauthorized
	NotFound
	PaymentRequired
	Upstream
	LocalIO
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not_found"
	case PaymentRequired:
		return "payment_required"
	case Upstream:
		return "upstream"
	case LocalIO:
		return "local_io"
	default:
		return "internal"
	}
}

// Error is the typed error carried from stores, clients and handlers up to the
// response writer. Message is what the caller sees; Err is kept for logs.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind so callers can write errors.Is(err, apperr.ErrUnauthorized).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is checks.
var (
	ErrUnauthorized = &Error{Kind: Unauthorized}
	ErrValidation   = &Error{Kind: Validation}
	ErrNotFound     = &Error{Kind: NotFound}
	ErrUpstream     = &Error{Kind: Upstream}
	ErrLocalIO      = &Error{Kind: LocalIO}
)

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NewValidation(field, msg string) *Error {
	return &Error{Kind: Validation, Field: field, Message: msg}
}

func NewUnauthorized() *Error {
	return &Error{Kind: Unauthorized, Message: "Unauthorized"}
}

// NewUpstream keeps the upstream message as the user-facing text, matching
// what the dashboard shows for Google failures.
func NewUpstream(msg string, err error) *Error {
	return &Error{Kind: Upstream, Message: msg, Err: err}
}

func NewLocalIO(msg string, err error) *Error {
	return &Error{Kind: LocalIO, Message: msg, Err: err}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err; untyped errors are Internal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Internal
}

// Status is the one place error kinds become HTTP status codes.
func Status(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case PaymentRequired:
		return http.StatusPaymentRequired
	case Upstream, LocalIO:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing text for err. Untyped errors fall back to
// the supplied default so internal details are not leaked.
func Message(err error, fallback string) string {
	if e, ok := As(err); ok && e.Message != "" {
		return e.Message
	}
	return fallback
}
