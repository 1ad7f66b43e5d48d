package llm

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryPolicy controls how generation calls are retried before giving up.
// Exponential backoff: attempt n sleeps BaseDelay * 2^n, plus up to Jitter
// of random spread. Retrying stops early on context cancellation or on a
// permanent error.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      time.Duration
}

// DefaultRetryPolicy matches the rate limits of hosted inference APIs:
// 5 attempts starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		Jitter:      500 * time.Millisecond,
	}
}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so RetryPolicy.Do fails immediately instead of retrying.
func Permanent(err error) error {
	return &permanentError{err: err}
}

// Do runs fn until it succeeds, the attempt budget is exhausted, fn returns a
// permanent error, or ctx is done. The last error is returned on failure.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := p.BaseDelay << (attempt - 1)
			if p.Jitter > 0 {
				delay += time.Duration(rand.Int63n(int64(p.Jitter)))
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}
