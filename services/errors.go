package services

import (
	"errors"
	"net/http"
)

// Kind classifies a domain error for the HTTP boundary.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindForbidden
	KindInvalidState
	KindConflict
	KindValidation
)

// Error is a domain error produced by the lifecycle engine and the
// subscription service. Controllers map Kind to an HTTP status; anything that
// is not a *Error is treated as an infrastructure failure.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func Forbidden(msg string) *Error    { return &Error{Kind: KindForbidden, Message: msg} }
func InvalidState(msg string) *Error { return &Error{Kind: KindInvalidState, Message: msg} }
func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }
func Validation(msg string) *Error   { return &Error{Kind: KindValidation, Message: msg} }

// HTTPStatus maps a domain error to its response status. Non-domain errors
// map to 500; callers must log them and answer with a generic message.
func HTTPStatus(err error) int {
	var de *Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError
	}
	switch de.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindInvalidState, KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsDomain reports whether err carries a client-safe message.
func IsDomain(err error) bool {
	var de *Error
	return errors.As(err, &de)
}
