// Package apperr carries the error kinds shared by the HTTP layer and the
// components behind it, and renders them as JSON error bodies.
package apperr

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Kind int

const (
	KindConfiguration Kind = iota + 1
	KindNotFound
	KindValidation
	KindUpstream
	KindUnauthorized
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindUpstream:
		return "upstream"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	}
	return "unknown"
}

// Error is a classified error. Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Cause supports errors.Cause from github.com/pkg/errors.
func (e *Error) Cause() error { return e.cause }

func Configuration(msg string) error {
	return &Error{Kind: KindConfiguration, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// Upstream wraps a failure reported by an external service. The cause keeps
// its stack trace for logging.
func Upstream(msg string, cause error) error {
	if cause == nil {
		cause = errors.New(msg)
	}
	return &Error{Kind: KindUpstream, Message: msg, cause: errors.WithStack(cause)}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func Is(err error, k Kind) bool {
	return KindOf(err) == k
}

// Status maps an error to the HTTP status code it is reported with.
func Status(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Body is the JSON shape of every error response.
type Body struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Write renders err as a JSON error response and logs it on the request logger.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)
	body := Body{Error: http.StatusText(status)}

	var e *Error
	if errors.As(err, &e) {
		body.Error = e.Message
		if e.Kind == KindUpstream && e.cause != nil {
			body.Details = errors.Cause(e.cause).Error()
		}
	} else {
		body.Details = err.Error()
	}

	ev := zerolog.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		ev = zerolog.Ctx(r.Context()).Error()
	}
	ev.Stack().Err(err).Int("status", status).Msg("Request failed")

	WriteJSON(w, status, body)
}

// WriteMessage writes a plain {"error": msg} body with the given status.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, Body{Error: msg})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
