package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantRetryable bool
	}{
		{
			name:          "429 status",
			err:           errors.New("error, status code: 429, message: too many requests"),
			wantType:      ErrorTypeRateLimit,
			wantRetryable: true,
		},
		{
			name:          "rate limit message",
			err:           errors.New("Rate limit reached for requests"),
			wantType:      ErrorTypeRateLimit,
			wantRetryable: true,
		},
		{
			name:     "unauthorized",
			err:      errors.New("error, status code: 401, message: unauthorized"),
			wantType: ErrorTypeAuth,
		},
		{
			name:     "model missing",
			err:      errors.New("the model 'nope' does not exist"),
			wantType: ErrorTypeModel,
		},
		{
			name:     "connection refused",
			err:      errors.New("dial tcp 127.0.0.1:9999: connection refused"),
			wantType: ErrorTypeEndpoint,
		},
		{
			name:     "anything else",
			err:      errors.New("something odd"),
			wantType: ErrorTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyError(tt.err)
			require.NotNil(t, classified)
			assert.Equal(t, tt.wantType, classified.Type)
			assert.Equal(t, tt.wantRetryable, classified.IsRetryable())
		})
	}
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(ErrRateLimitExceeded))
	assert.True(t, IsRateLimited(fmt.Errorf("wrapping: %w", ErrRateLimitExceeded)))
	assert.True(t, IsRateLimited(&Error{Type: ErrorTypeRateLimit, Retryable: true}))
	assert.False(t, IsRateLimited(&Error{Type: ErrorTypeAuth}))
	assert.False(t, IsRateLimited(errors.New("plain")))
	assert.False(t, IsRateLimited(nil))
}
