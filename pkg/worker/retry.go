package worker

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/jdziat/simple-durable-batches/pkg/core"
)

// RetryConfig controls how the worker retries its own storage calls:
// acquiring due jobs, recording failures and releasing stale locks.
// Handler errors never go through it; they are rescheduled as timer job retries.
type RetryConfig struct {
	// MaxAttempts is how many times a storage call is made, the first call included.
	// Default: 5
	MaxAttempts int

	// InitialBackoff is the wait after the first failed attempt.
	// Default: 100ms
	InitialBackoff time.Duration

	// MaxBackoff caps any single wait. Zero leaves the wait unbounded.
	// Default: 5s
	MaxBackoff time.Duration

	// BackoffMultiplier scales the wait after each further failure.
	// Default: 2.0
	BackoffMultiplier float64

	// JitterFraction is the share of each wait, plus or minus, that is randomized.
	// Zero disables jitter.
	// Default: 0.1
	JitterFraction float64
}

// DefaultRetryConfig returns 5 attempts starting at 100ms, doubling up to 5s, with 10% jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.1,
	}
}

// delay returns the wait after the given failed attempt (1-based).
func (c RetryConfig) delay(attempt int) time.Duration {
	d := float64(c.InitialBackoff)
	for i := 1; i < attempt; i++ {
		d *= c.BackoffMultiplier
		if c.MaxBackoff > 0 && d >= float64(c.MaxBackoff) {
			break
		}
	}
	if c.MaxBackoff > 0 && d > float64(c.MaxBackoff) {
		d = float64(c.MaxBackoff)
	}
	if c.JitterFraction > 0 {
		jittered := d + d*c.JitterFraction*(rand.Float64()*2-1)
		if jittered > 0 {
			d = jittered
		}
	}
	return time.Duration(d)
}

// retryWithBackoff runs operation until it succeeds, returns an error
// IsRetryableError rejects, runs out of attempts, or ctx is done.
// The last operation error is returned when attempts run out.
func retryWithBackoff(ctx context.Context, config RetryConfig, operation func() error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = operation(); err == nil || !IsRetryableError(err) {
			return err
		}
		if attempt >= config.MaxAttempts {
			return err
		}

		timer := time.NewTimer(config.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// IsRetryableError determines if a storage error is worth retrying.
// Context errors and a lost job lease are permanent; store failures such as
// connection resets, lock timeouts and deadlocks are assumed transient.
func IsRetryableError(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, core.ErrJobNotOwned):
		return false
	default:
		return true
	}
}
