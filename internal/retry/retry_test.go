package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{200, false},
		{400, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := FromStatus(tt.status, []byte("body"))
			if got := IsRetryable(err); got != tt.retryable {
				t.Errorf("status %d: expected retryable=%v, got %v", tt.status, tt.retryable, got)
			}
		})
	}
}

func TestIsRetryable_Wrapped(t *testing.T) {
	err := fmt.Errorf("call: %w", &RetryableError{StatusCode: 502})
	if !IsRetryable(err) {
		t.Error("expected wrapped RetryableError to be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("expected plain error not to be retryable")
	}
}

func TestBackoff_Bounds(t *testing.T) {
	for attempt := 0; attempt < 8; attempt++ {
		d := Backoff(attempt)
		base := time.Duration(1<<uint(attempt)) * time.Second
		if base > 30*time.Second {
			base = 30 * time.Second
		}
		if d < base || d >= base+base/2 {
			t.Errorf("attempt %d: backoff %v outside [%v, %v)", attempt, d, base, base+base/2)
		}
	}
}

func noWait(int) time.Duration { return 0 }

func TestPolicy_RetriesTransientOnly(t *testing.T) {
	calls := 0
	p := Policy{Attempts: 3, Backoff: noWait}
	err := p.Do(context.Background(), "test", func(context.Context) error {
		calls++
		return &RetryableError{StatusCode: 503}
	})
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	if !IsRetryable(err) {
		t.Errorf("expected last retryable error, got %v", err)
	}

	calls = 0
	err = p.Do(context.Background(), "test", func(context.Context) error {
		calls++
		return errors.New("bad request")
	})
	if calls != 1 || err == nil {
		t.Errorf("expected one attempt with error, got %d calls, err=%v", calls, err)
	}

	calls = 0
	err = p.Do(context.Background(), "test", func(context.Context) error {
		calls++
		if calls < 2 {
			return &RetryableError{StatusCode: 429}
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("expected success on second attempt, got %d calls, err=%v", calls, err)
	}
}

func TestPolicy_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := Policy{Attempts: 3, Backoff: func(int) time.Duration { return time.Hour }}
	err := p.Do(ctx, "test", func(context.Context) error {
		return &RetryableError{StatusCode: 500}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
