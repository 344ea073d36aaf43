package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestConnectionBackoff_ShouldRetry(t *testing.T) {
	backoff := &ExponentialBackoff{InitialDelay: time.Millisecond, MaxDelay: time.Second, Multiplier: 2, MaxAttempts: 3}
	policy := NewConnectionBackoff(backoff, func(err error) bool {
		return err.Error() == "retryable"
	})
	ctx := context.Background()

	if policy.ShouldRetry(ctx, nil, 0) {
		t.Error("nil error should never retry")
	}
	if !policy.ShouldRetry(ctx, errors.New("retryable"), 0) {
		t.Error("expected retryable error at attempt 0 to retry")
	}
	if policy.ShouldRetry(ctx, errors.New("retryable"), 3) {
		t.Error("expected attempt >= MaxAttempts to stop retrying")
	}
	if policy.ShouldRetry(ctx, errors.New("fatal"), 0) {
		t.Error("expected non-retryable error to not retry")
	}
}

func TestConnectionBackoff_ShouldRetry_CancelledContext(t *testing.T) {
	backoff := &ExponentialBackoff{InitialDelay: time.Millisecond, MaxDelay: time.Second, Multiplier: 2, MaxAttempts: 5}
	policy := NewConnectionBackoff(backoff, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if policy.ShouldRetry(ctx, errors.New("x"), 0) {
		t.Error("expected cancelled context to stop retrying")
	}
}

func TestConnectionBackoff_WaitTime(t *testing.T) {
	backoff := &ExponentialBackoff{InitialDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2, MaxAttempts: 5}
	policy := NewConnectionBackoff(backoff, nil)

	if got := policy.WaitTime(0); got != time.Second {
		t.Errorf("WaitTime(0) = %v, want 1s", got)
	}
	if got := policy.WaitTime(1); got != 2*time.Second {
		t.Errorf("WaitTime(1) = %v, want 2s", got)
	}
}

func TestRetry_SucceedsEventually(t *testing.T) {
	backoff := &ExponentialBackoff{InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1, MaxAttempts: 5}
	attempts := 0
	err := Retry(context.Background(), backoff, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_ExhaustsBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1, MaxAttempts: 2}
	attempts := 0
	err := Retry(context.Background(), backoff, func() error {
		attempts++
		return errors.New("always fails")
	})
	if err == nil {
		t.Fatal("expected final error to propagate")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (one initial call plus MaxAttempts retries)", attempts)
	}
}

func TestRetryWithResult(t *testing.T) {
	backoff := &ExponentialBackoff{InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1, MaxAttempts: 5}
	attempts := 0
	result, err := RetryWithResult(context.Background(), backoff, func() (int, error) {
		attempts++
		if attempts < 2 {
			return 0, errors.New("not yet")
		}
		return 42, nil
	})
	if err != nil || result != 42 {
		t.Fatalf("result=%d err=%v, want 42,nil", result, err)
	}
}

func TestNewMonitorBackoff_MatchesSpecShape(t *testing.T) {
	b := NewMonitorBackoff()
	if b.InitialDelay != 2*time.Second {
		t.Errorf("InitialDelay = %v, want 2s", b.InitialDelay)
	}
	if b.MaxDelay != 10*time.Second {
		t.Errorf("MaxDelay = %v, want 10s", b.MaxDelay)
	}
	if b.Multiplier != 1.5 {
		t.Errorf("Multiplier = %v, want 1.5", b.Multiplier)
	}

	// attempt 0 -> 2s, attempt 1 -> 3s, attempt 2 -> 4.5s, then caps at 10s
	d0, _ := b.NextDelay(0)
	if d0 != 2*time.Second {
		t.Errorf("NextDelay(0) = %v, want 2s", d0)
	}
	d1, _ := b.NextDelay(1)
	if d1 != 3*time.Second {
		t.Errorf("NextDelay(1) = %v, want 3s", d1)
	}
}
