// Package apperr defines the error taxonomy shared by the ingestion
// pipeline, the HTTP layer and the client retry driver. Every error that
// crosses a package boundary carries a Kind; the API maps kinds to HTTP
// status codes and the client maps status codes back to kinds.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	Unknown Kind = iota
	BadRequest
	Unauthorized
	NotFound
	AlreadyProcessed
	ConcurrentJob
	FileTooLarge
	ChunkTooLarge
	UnsupportedFormat
	EmptyOrUnprocessable
	ProviderAuthMissing
	DeadlineExceeded
	Transient
)

// String returns the stable wire code for a kind, used in API bodies.
func (k Kind) String() string {
	switch k {
	case BadRequest:
		return "bad_request"
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not_found"
	case AlreadyProcessed:
		return "already_processed"
	case ConcurrentJob:
		return "concurrent_job"
	case FileTooLarge:
		return "file_too_large"
	case ChunkTooLarge:
		return "chunk_too_large"
	case UnsupportedFormat:
		return "unsupported_format"
	case EmptyOrUnprocessable:
		return "empty_or_unprocessable"
	case ProviderAuthMissing:
		return "provider_auth_missing"
	case DeadlineExceeded:
		return "deadline_exceeded"
	case Transient:
		return "transient"
	}
	return "internal_error"
}

// HTTPStatus maps a kind to the status code the API responds with.
// AlreadyProcessed is a benign no-op and maps to 200.
func (k Kind) HTTPStatus() int {
	switch k {
	case BadRequest, UnsupportedFormat, EmptyOrUnprocessable:
		return http.StatusBadRequest
	case ProviderAuthMissing:
		return http.StatusUnauthorized
	case Unauthorized:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case AlreadyProcessed:
		return http.StatusOK
	case ConcurrentJob:
		return http.StatusConflict
	case FileTooLarge, ChunkTooLarge:
		return http.StatusRequestEntityTooLarge
	case DeadlineExceeded:
		return http.StatusRequestTimeout
	case Transient:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Retryable reports whether a caller may re-attempt the same request
// and expect a different outcome.
func (k Kind) Retryable() bool {
	return k == DeadlineExceeded || k == Transient
}

// KindFromCode is the inverse of Kind.String for wire codes.
func KindFromCode(code string) Kind {
	for k := BadRequest; k <= Transient; k++ {
		if k.String() == code {
			return k
		}
	}
	return Unknown
}

// Error is a kinded error with a human-readable message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf classifies an arbitrary error. Context deadline expiry counts
// as DeadlineExceeded even when no *Error wraps it.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return DeadlineExceeded
	}
	return Unknown
}

// Is lets errors.Is match against a bare kind probe, e.g.
// errors.Is(err, &Error{Kind: ConcurrentJob}).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}
