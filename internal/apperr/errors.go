package apperr

import (
	"net/http"

	"github.com/pkg/errors"
)

// Kinds. Match with errors.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrBadRequest   = errors.New("bad request")
	ErrFatal        = errors.New("fatal")
)

// Error carries a user-facing message plus the kind it belongs to.
type Error struct {
	kind      error
	message   string
	cause     error
	anonymous bool
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

// Message is the text safe to show to the caller.
func (e *Error) Message() string { return e.message }

func (e *Error) Is(target error) bool { return target == e.kind }

func (e *Error) Unwrap() error { return e.cause }

func newError(kind error, msg string) error {
	return &Error{kind: kind, message: msg}
}

func Unauthorized(msg string) error { return newError(ErrUnauthorized, msg) }
func NotFound(msg string) error     { return newError(ErrNotFound, msg) }
func InvalidState(msg string) error { return newError(ErrInvalidState, msg) }
func BadRequest(msg string) error   { return newError(ErrBadRequest, msg) }

// Fatal marks err as unrecoverable for the current mutation. A nil cause
// yields a plain fatal error with msg.
func Fatal(cause error, msg string) error {
	return &Error{kind: ErrFatal, message: msg, cause: cause}
}

// LoginRequired is Unauthorized for requests without a principal.
func LoginRequired(msg string) error {
	return &Error{kind: ErrUnauthorized, message: msg, anonymous: true}
}

// HTTPStatus maps an error kind onto a response status.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		var e *Error
		if errors.As(err, &e) && e.anonymous {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message of the outermost *Error, or a generic
// text for anything else.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message()
	}
	return "internal error"
}
