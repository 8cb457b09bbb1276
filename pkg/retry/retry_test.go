package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transientError struct{ retryable bool }

func (e *transientError) Error() string     { return "transient" }
func (e *transientError) IsRetryable() bool { return e.retryable }

func TestDelay_GrowsExponentially(t *testing.T) {
	cfg := &Config{MaxRetries: 3, BaseDelay: time.Second, MaxJitter: 0}

	assert.Equal(t, 2*time.Second, cfg.Delay(0))
	assert.Equal(t, 4*time.Second, cfg.Delay(1))
	assert.Equal(t, 8*time.Second, cfg.Delay(2))
}

func TestDelay_JitterBounded(t *testing.T) {
	cfg := &Config{MaxRetries: 3, BaseDelay: time.Millisecond, MaxJitter: time.Millisecond}

	for attempt := 0; attempt < 3; attempt++ {
		base := cfg.BaseDelay << uint(attempt+1)
		for i := 0; i < 50; i++ {
			d := cfg.Delay(attempt)
			assert.GreaterOrEqual(t, d, base)
			assert.Less(t, d, base+cfg.MaxJitter)
		}
	}
}

func TestDoWithResult_PermanentErrorNoRetry(t *testing.T) {
	calls := 0
	_, err := DoWithResult(context.Background(), &Config{MaxRetries: 3, BaseDelay: time.Millisecond}, func() (string, error) {
		calls++
		return "", errors.New("permanent")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoWithResult_RetryableExhaustsBudget(t *testing.T) {
	calls := 0
	_, err := DoWithResult(context.Background(), &Config{MaxRetries: 3, BaseDelay: time.Millisecond}, func() (string, error) {
		calls++
		return "", &transientError{retryable: true}
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls) // initial attempt plus three retries
}

func TestDoWithResult_SucceedsAfterRetry(t *testing.T) {
	calls := 0
	result, err := DoWithResult(context.Background(), &Config{MaxRetries: 3, BaseDelay: time.Millisecond}, func() (string, error) {
		calls++
		if calls < 3 {
			return "", &transientError{retryable: true}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestDoWithResult_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := DoWithResult(ctx, &Config{MaxRetries: 3, BaseDelay: time.Second}, func() (string, error) {
		return "", &transientError{retryable: true}
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
}
