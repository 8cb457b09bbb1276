// Package retry implements bounded exponential backoff for transient failures.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Config defines backoff behavior. The delay before retry attempt n is
// BaseDelay * 2^(n+1) plus a random jitter in [0, MaxJitter).
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxJitter  time.Duration
}

// DefaultConfig matches the gateway's rate-limit policy: three attempts,
// one second base delay, up to one second of jitter.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxJitter:  time.Second,
	}
}

// Delay returns the backoff delay for the given zero-based attempt.
func (c *Config) Delay(attempt int) time.Duration {
	delay := c.BaseDelay << uint(attempt+1)
	if c.MaxJitter > 0 {
		delay += time.Duration(rand.Int63n(int64(c.MaxJitter)))
	}
	return delay
}

// RetryableError lets errors declare their own retryability. Errors that do
// not implement it are treated as permanent.
type RetryableError interface {
	error
	IsRetryable() bool
}

// IsRetryable reports whether err declares itself retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if r, ok := err.(RetryableError); ok {
		return r.IsRetryable()
	}
	return false
}

// DoWithResult runs fn, retrying retryable errors with backoff until the
// attempt budget is spent. Permanent errors return immediately. The wait
// between attempts respects context cancellation.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var result T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return result, err
		}

		if attempt < cfg.MaxRetries {
			select {
			case <-time.After(cfg.Delay(attempt)):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}

	return result, lastErr
}

// Do is DoWithResult for functions that only return an error.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
