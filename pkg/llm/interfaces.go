// Package llm provides the gateway to an OpenAI-compatible completion endpoint.
package llm

import (
	"context"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
)

// Completer is the gateway interface the pipeline depends on. Use it for
// dependency injection so tests can stub model output.
type Completer interface {
	// Complete sends a prompt with optional multi-turn history and returns
	// the model's text answer.
	Complete(ctx context.Context, prompt string, history []models.ChatMessage) (string, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Ensure Client implements Completer at compile time.
var _ Completer = (*Client)(nil)
