package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRateLimitExceeded is returned once the rate-limit retry budget is spent.
// It is distinguishable from every other gateway failure via errors.Is.
var ErrRateLimitExceeded = errors.New("llm rate limit exceeded after retries")

// ErrorType classifies a gateway failure.
type ErrorType string

const (
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeAuth      ErrorType = "auth"
	ErrorTypeEndpoint  ErrorType = "endpoint"
	ErrorTypeModel     ErrorType = "model"
	ErrorTypeUnknown   ErrorType = "unknown"
)

// Error is a structured gateway error.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, string(e.Type))
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	parts = append(parts, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements retry.RetryableError. Only rate-limit errors are
// retryable at the gateway; everything else propagates immediately.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// ClassifyError wraps an API error as a structured *Error. Rate-limit signals
// are an HTTP 429 status or a message containing "rate limit".
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)

	statusCode := 0
	for _, code := range []int{400, 401, 403, 404, 429, 500, 502, 503, 504} {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			statusCode = code
			break
		}
	}

	if strings.Contains(errStr, "429") || strings.Contains(lower, "rate limit") {
		return &Error{Type: ErrorTypeRateLimit, Message: "rate limited", Retryable: true, StatusCode: statusCode, Cause: err}
	}

	if strings.Contains(errStr, "401") || strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid api key") {
		return &Error{Type: ErrorTypeAuth, Message: "authentication failed", StatusCode: statusCode, Cause: err}
	}

	if strings.Contains(lower, "model") && (strings.Contains(lower, "not found") ||
		strings.Contains(lower, "does not exist")) {
		return &Error{Type: ErrorTypeModel, Message: "model not found", StatusCode: statusCode, Cause: err}
	}

	if strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded") {
		return &Error{Type: ErrorTypeEndpoint, Message: "endpoint unreachable", StatusCode: statusCode, Cause: err}
	}

	return &Error{Type: ErrorTypeUnknown, Message: "llm error", StatusCode: statusCode, Cause: err}
}

// IsRateLimited reports whether err is a rate-limit classification or the
// exhausted-retries sentinel.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimitExceeded) {
		return true
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == ErrorTypeRateLimit
	}
	return false
}
