// Package retry holds the transient-failure policy shared by the HTTP
// collaborators.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

const MaxRetries = 3

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, Truncate(e.Message, 200))
}

// FromStatus returns a RetryableError for 429 and 5xx responses, nil otherwise.
func FromStatus(status int, body []byte) error {
	if status == http.StatusTooManyRequests || status >= 500 {
		return &RetryableError{StatusCode: status, Message: string(body)}
	}
	return nil
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// Policy runs a call up to Attempts times while it returns a RetryableError.
type Policy struct {
	Attempts int
	Backoff  func(attempt int) time.Duration
	Log      *slog.Logger
}

// Default is MaxRetries attempts with jittered exponential Backoff.
func Default(log *slog.Logger) Policy {
	return Policy{Attempts: MaxRetries, Backoff: Backoff, Log: log}
}

// Do calls fn until it succeeds, fails permanently, exhausts the attempts, or
// ctx is done.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = Backoff
	}

	var lastErr error
	for attempt := range attempts {
		lastErr = fn(ctx)
		if lastErr == nil || !IsRetryable(lastErr) || attempt == attempts-1 {
			break
		}
		if p.Log != nil {
			p.Log.Warn("retryable error", "op", op, "attempt", attempt, "error", lastErr)
		}
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// Truncate shortens s to n bytes, appending "..." when cut.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
