package retry

import (
	"context"
	"time"
)

// Policy decides whether a failed operation should be retried and how long
// to wait before the next attempt. Unlike an HTTP-specific retry policy, this
// is shaped around any fallible operation (remote exec, dial, probe).
type Policy interface {
	// ShouldRetry reports whether attempt (0-based) should be retried given err.
	ShouldRetry(ctx context.Context, err error, attempt int) bool
	// WaitTime returns the wait before the next attempt.
	WaitTime(attempt int) time.Duration
	MaxRetries() int
}

// ConnectionBackoff retries transient connection failures with exponential
// backoff; it never retries a nil error and respects context cancellation.
type ConnectionBackoff struct {
	backoff    *ExponentialBackoff
	retryCheck func(err error) bool
}

// NewConnectionBackoff builds a Policy from a retryability predicate (e.g.
// RVError.IsRetryable) and an ExponentialBackoff.
func NewConnectionBackoff(backoff *ExponentialBackoff, retryCheck func(err error) bool) *ConnectionBackoff {
	return &ConnectionBackoff{backoff: backoff, retryCheck: retryCheck}
}

func (c *ConnectionBackoff) ShouldRetry(ctx context.Context, err error, attempt int) bool {
	if err == nil {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	default:
	}
	if attempt >= c.backoff.MaxAttempts {
		return false
	}
	if c.retryCheck != nil {
		return c.retryCheck(err)
	}
	return true
}

func (c *ConnectionBackoff) WaitTime(attempt int) time.Duration {
	delay, _ := c.backoff.NextDelay(attempt)
	return delay
}

func (c *ConnectionBackoff) MaxRetries() int { return c.backoff.MaxAttempts }

// Retry executes fn with the given backoff strategy until it succeeds, the
// strategy is exhausted, or ctx is cancelled.
func Retry(ctx context.Context, backoff BackoffStrategy, fn func() error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		delay, shouldContinue := backoff.NextDelay(attempt)
		if !shouldContinue {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// RetryWithResult is Retry for functions that also produce a value.
func RetryWithResult[T any](ctx context.Context, backoff BackoffStrategy, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		delay, shouldContinue := backoff.NextDelay(attempt)
		if !shouldContinue {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}
