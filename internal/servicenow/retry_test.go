package servicenow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", &RetryableError{Err: errors.New("boom"), StatusCode: http.StatusBadGateway}, true},
		{"client error", &RetryableError{Err: errors.New("bad"), StatusCode: http.StatusBadRequest}, false},
		{"wrapped server error", fmt.Errorf("list: %w", &RetryableError{Err: errors.New("boom"), StatusCode: 500}), true},
		{"connection error", errors.New("connection refused"), true},
		{"cancelled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithRetry_StopsOnSuccess(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	err := WithRetry(context.Background(), cfg, func() error {
		calls++
		if calls < 2 {
			return &RetryableError{Err: errors.New("unavailable"), StatusCode: 503}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}

	calls := 0
	err := WithRetry(ctx, cfg, func() error {
		calls++
		cancel()
		return errors.New("connection reset")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestCalculateBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	max := time.Second

	if got := calculateBackoff(0, base, max); got != base {
		t.Errorf("attempt 0: got %v, want %v", got, base)
	}
	if got := calculateBackoff(2, base, max); got != 400*time.Millisecond {
		t.Errorf("attempt 2: got %v, want 400ms", got)
	}
	if got := calculateBackoff(10, base, max); got != max {
		t.Errorf("attempt 10: got %v, want %v", got, max)
	}
}

func TestRetryConfig_MaxDuration(t *testing.T) {
	// 3 attempts of 30s plus 1s and 2s of backoff.
	if got := DefaultRetryConfig().MaxDuration(30 * time.Second); got != 93*time.Second {
		t.Errorf("MaxDuration() = %v, want 93s", got)
	}

	single := RetryConfig{MaxAttempts: 1, BaseDelay: time.Second, MaxDelay: time.Second}
	if got := single.MaxDuration(5 * time.Second); got != 5*time.Second {
		t.Errorf("single attempt MaxDuration() = %v, want 5s", got)
	}
}
