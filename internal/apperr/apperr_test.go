package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_WrappedChains(t *testing.T) {
	base := New(ConcurrentJob, "file is busy")
	wrapped := fmt.Errorf("process file: %w", base)

	assert.Equal(t, ConcurrentJob, KindOf(wrapped))
	assert.Equal(t, ConcurrentJob, KindOf(base))
}

func TestKindOf_ContextDeadline(t *testing.T) {
	err := fmt.Errorf("request: %w", context.DeadlineExceeded)
	assert.Equal(t, DeadlineExceeded, KindOf(err))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, Unknown, KindOf(errors.New("boom")))
	assert.Equal(t, Unknown, KindOf(nil))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind   Kind
		status int
	}{
		{BadRequest, http.StatusBadRequest},
		{Unauthorized, http.StatusForbidden},
		{NotFound, http.StatusNotFound},
		{AlreadyProcessed, http.StatusOK},
		{ConcurrentJob, http.StatusConflict},
		{FileTooLarge, http.StatusRequestEntityTooLarge},
		{ChunkTooLarge, http.StatusRequestEntityTooLarge},
		{UnsupportedFormat, http.StatusBadRequest},
		{EmptyOrUnprocessable, http.StatusBadRequest},
		{ProviderAuthMissing, http.StatusUnauthorized},
		{DeadlineExceeded, http.StatusRequestTimeout},
		{Transient, http.StatusServiceUnavailable},
		{Unknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.kind.HTTPStatus(), tt.kind.String())
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, DeadlineExceeded.Retryable())
	assert.True(t, Transient.Retryable())

	for _, k := range []Kind{BadRequest, Unauthorized, NotFound, AlreadyProcessed,
		ConcurrentJob, FileTooLarge, ChunkTooLarge, UnsupportedFormat,
		EmptyOrUnprocessable, ProviderAuthMissing, Unknown} {
		assert.False(t, k.Retryable(), k.String())
	}
}

func TestKindFromCode_RoundTrip(t *testing.T) {
	for k := BadRequest; k <= Transient; k++ {
		assert.Equal(t, k, KindFromCode(k.String()), k.String())
	}
	assert.Equal(t, Unknown, KindFromCode("nonsense"))
	assert.Equal(t, Unknown, KindFromCode(""))
}

func TestErrorFormatting(t *testing.T) {
	plain := New(NotFound, "file not found")
	assert.Equal(t, "file not found", plain.Error())

	wrapped := Wrap(Transient, "fetch blob", errors.New("connection reset"))
	assert.Equal(t, "fetch blob: connection reset", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "connection reset")
}
