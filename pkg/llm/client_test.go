package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
)

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	client, err := NewClient(&Config{
		Endpoint:       endpoint,
		Model:          "test-model",
		APIKey:         "test-key",
		RetryBaseDelay: time.Millisecond,
		MaxRetries:     3,
	}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(&Config{Model: "m"}, zap.NewNop())
	require.Error(t, err)

	_, err = NewClient(&Config{Endpoint: "http://localhost"}, zap.NewNop())
	require.Error(t, err)
}

func TestComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "SELECT 1"}}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	content, err := client.Complete(context.Background(), "generate sql", nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", content)
}

func TestComplete_RateLimitExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limit reached", "type": "requests"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Complete(context.Background(), "generate sql", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, int32(4), calls.Load()) // initial attempt plus three retries
}

func TestComplete_AuthErrorNoRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid api key"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Complete(context.Background(), "generate sql", nil)

	require.Error(t, err)
	assert.False(t, IsRateLimited(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestComplete_HistoryPassedAsTurns(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(buf)
		gotBody = buf
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	history := []models.ChatMessage{
		{Role: "user", Content: "earlier question"},
		{Role: "ai", Content: "earlier answer"},
	}
	_, err := client.Complete(context.Background(), "follow-up", history)
	require.NoError(t, err)

	body := string(gotBody)
	assert.Contains(t, body, "earlier question")
	assert.Contains(t, body, "earlier answer")
	assert.Contains(t, body, `"assistant"`) // "ai" role normalized
	assert.Contains(t, body, "follow-up")
}

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, "assistant", normalizeRole("AI"))
	assert.Equal(t, "assistant", normalizeRole("model"))
	assert.Equal(t, "system", normalizeRole("system"))
	assert.Equal(t, "user", normalizeRole("user"))
	assert.Equal(t, "user", normalizeRole("anything"))
}
