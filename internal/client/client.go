// Package client drives the processing endpoint from the caller side:
// it owns attempt deadlines, the retry schedule, and the classification
// of terminal failures.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/docuvec/docuvec/internal/apperr"
	"github.com/docuvec/docuvec/internal/core/ingestion"
)

const (
	// MaxRetries is the number of re-attempts after the first try.
	MaxRetries = 3

	// BaseDelay seeds the exponential backoff: retry k waits
	// BaseDelay * 2^(k-1).
	BaseDelay = 2 * time.Second

	// FirstAttemptTimeout bounds the initial attempt; large files can
	// legitimately take this long.
	FirstAttemptTimeout = 10 * time.Minute

	// RetryAttemptTimeout bounds every retry. Retries are expected to
	// hit the AlreadyProcessed fast path or fail quickly.
	RetryAttemptTimeout = 5 * time.Minute
)

// Client calls the docuvec processing API with retries.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	baseDelay    time.Duration
	firstTimeout time.Duration
	retryTimeout time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying transport (used in tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMaxRetries overrides the retry count.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBaseDelay overrides the backoff seed (used in tests).
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) { c.baseDelay = d }
}

// WithAttemptTimeouts overrides the per-attempt deadlines.
func WithAttemptTimeouts(first, retry time.Duration) Option {
	return func(c *Client) {
		c.firstTimeout = first
		c.retryTimeout = retry
	}
}

// New creates a client for the given server and bearer token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:      baseURL,
		token:        token,
		httpClient:   http.DefaultClient,
		logger:       slog.Default(),
		maxRetries:   MaxRetries,
		baseDelay:    BaseDelay,
		firstTimeout: FirstAttemptTimeout,
		retryTimeout: RetryAttemptTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProcessFile requests ingestion of fileID with the given provider and
// retries on timeout, network failure and transient server errors.
// Non-retryable outcomes (bad request, conflict, auth, too large) are
// returned immediately. The returned error, if any, carries the kind of
// the final failure.
func (c *Client) ProcessFile(ctx context.Context, fileID, provider string) (*ingestion.Result, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay << (attempt - 1)
			c.logger.Warn("retrying processing request",
				"file_id", fileID, "attempt", attempt, "delay", delay, "last_error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		timeout := c.firstTimeout
		if attempt > 0 {
			timeout = c.retryTimeout
		}

		result, err := c.attempt(ctx, fileID, provider, timeout)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !apperr.KindOf(err).Retryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("processing failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) attempt(ctx context.Context, fileID, provider string, timeout time.Duration) (*ingestion.Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint, err := url.JoinPath(c.baseURL, "api", "files", fileID, "process")
	if err != nil {
		return nil, apperr.Wrap(apperr.BadRequest, "build request URL", err)
	}

	body, err := json.Marshal(map[string]string{"provider": provider})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded {
			return nil, apperr.Wrap(apperr.DeadlineExceeded, "processing request timed out", err)
		}
		// Connection refused, DNS failure, reset: all worth retrying.
		return nil, apperr.Wrap(apperr.Transient, "processing request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "read response", err)
	}

	if resp.StatusCode == http.StatusOK {
		var result ingestion.Result
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return &result, nil
	}

	return nil, c.errorFromResponse(resp.StatusCode, respBody)
}

// errorFromResponse rebuilds a kinded error from an API error body,
// falling back to the status code when the body is not ours.
func (c *Client) errorFromResponse(status int, body []byte) error {
	var apiErr struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		return apperr.New(apperr.KindFromCode(apiErr.Code), apiErr.Error)
	}

	switch {
	case status == http.StatusServiceUnavailable:
		return apperr.Newf(apperr.Transient, "server unavailable (%d)", status)
	case status == http.StatusRequestTimeout:
		return apperr.Newf(apperr.DeadlineExceeded, "server timed out (%d)", status)
	default:
		return apperr.Newf(apperr.Unknown, "unexpected response %d: %s", status, string(body))
	}
}
