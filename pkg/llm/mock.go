package llm

import (
	"context"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
)

// MockClient is a configurable Completer for tests. Set CompleteFunc to
// control model output; calls are counted for verification.
type MockClient struct {
	// CompleteFunc is called when Complete is invoked.
	// If nil, returns empty string and nil error.
	CompleteFunc func(ctx context.Context, prompt string, history []models.ChatMessage) (string, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// CompleteCalls counts invocations. Prompts records each prompt sent.
	CompleteCalls int
	Prompts       []string
}

// NewMockClient creates a mock with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{Model: "mock-model"}
}

// Complete implements Completer.
func (m *MockClient) Complete(ctx context.Context, prompt string, history []models.ChatMessage) (string, error) {
	m.CompleteCalls++
	m.Prompts = append(m.Prompts, prompt)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, history)
	}
	return "", nil
}

// GetModel implements Completer.
func (m *MockClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// Reset clears call tracking.
func (m *MockClient) Reset() {
	m.CompleteCalls = 0
	m.Prompts = nil
}

// Ensure MockClient implements Completer at compile time.
var _ Completer = (*MockClient)(nil)
