// Package common defines the error taxonomy shared by the upload broker
// layers. Callers should use errors.Is against the sentinel kinds below;
// the HTTP layer maps each kind to a status code.
package common

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation reports malformed or missing input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound reports an unknown session id.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports an operation that does not fit the session kind or state.
	ErrConflict = errors.New("conflict")
	// ErrCapacity reports a file larger than the configured ceiling.
	ErrCapacity = errors.New("file too large")
	// ErrUpstream reports a failed call to the storage provider.
	ErrUpstream = errors.New("storage provider error")
	// ErrNotConfigured reports missing storage provider credentials.
	ErrNotConfigured = errors.New("storage provider not configured")
	// ErrUnauthorized reports an invalid bearer token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal is what callers see for anything outside the taxonomy.
	ErrInternal = errors.New("internal error")
)

// Error carries a kind, a message that is safe to show to clients and the
// underlying cause, which is only exposed in development mode.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error against its kind sentinel.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// Detail returns the raw cause, or an empty string when there is none.
func (e *Error) Detail() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func newError(kind error, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Validation(format string, args ...any) *Error {
	return newError(ErrValidation, nil, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(ErrNotFound, nil, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(ErrConflict, nil, format, args...)
}

func Capacity(format string, args ...any) *Error {
	return newError(ErrCapacity, nil, format, args...)
}

// Upstream wraps a provider failure. The message stays generic; err keeps
// the provider detail.
func Upstream(err error, format string, args ...any) *Error {
	return newError(ErrUpstream, err, format, args...)
}

func NotConfigured(format string, args ...any) *Error {
	return newError(ErrNotConfigured, nil, format, args...)
}

func Unauthorized(err error, format string, args ...any) *Error {
	return newError(ErrUnauthorized, err, format, args...)
}

// Code returns a machine-checkable code for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrCapacity):
		return "FILE_TOO_LARGE"
	case errors.Is(err, ErrUpstream):
		return "UPSTREAM_ERROR"
	case errors.Is(err, ErrNotConfigured):
		return "NOT_CONFIGURED"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	default:
		return "INTERNAL_ERROR"
	}
}

// HTTPStatus maps err to a response status.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrCapacity):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
