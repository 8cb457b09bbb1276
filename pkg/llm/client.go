package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/retry"
)

// Config holds configuration for creating a gateway client.
type Config struct {
	Endpoint       string        // Base URL, e.g. "https://api.openai.com/v1"
	Model          string        // Model name, e.g. "gpt-4o"
	APIKey         string        // Optional for local endpoints
	RequestTimeout time.Duration // Per-call deadline; 0 disables
	RetryBaseDelay time.Duration // Backoff base; defaults to 1s
	MaxRetries     int           // Rate-limit retry budget; defaults to 3
}

// Client wraps an OpenAI-compatible endpoint with rate-limit-only retry.
type Client struct {
	client   *openai.Client
	model    string
	timeout  time.Duration
	retryCfg *retry.Config
	logger   *zap.Logger
}

// NewClient creates a gateway client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	retryCfg := retry.DefaultConfig()
	if cfg.RetryBaseDelay > 0 {
		retryCfg.BaseDelay = cfg.RetryBaseDelay
		retryCfg.MaxJitter = cfg.RetryBaseDelay
	}
	if cfg.MaxRetries > 0 {
		retryCfg.MaxRetries = cfg.MaxRetries
	}

	return &Client{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    cfg.Model,
		timeout:  cfg.RequestTimeout,
		retryCfg: retryCfg,
		logger:   logger.Named("llm"),
	}, nil
}

// Complete sends the prompt with history as discrete chat turns. Rate-limit
// failures (HTTP 429 or a "rate limit" message) are retried with exponential
// backoff; once the budget is spent the call fails with ErrRateLimitExceeded.
// Every other failure propagates immediately as a classified *Error.
func (c *Client) Complete(ctx context.Context, prompt string, history []models.ChatMessage) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, turn := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    normalizeRole(turn.Role),
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)),
		zap.Int("history_turns", len(history)))

	start := time.Now()

	content, err := retry.DoWithResult(ctx, c.retryCfg, func() (string, error) {
		callCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:    c.model,
			Messages: messages,
		})
		if err != nil {
			return "", ClassifyError(err)
		}
		if len(resp.Choices) == 0 {
			return "", &Error{Type: ErrorTypeUnknown, Message: "no choices in response"}
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		if IsRateLimited(err) {
			return "", fmt.Errorf("%w: %v", ErrRateLimitExceeded, err)
		}
		return "", err
	}

	c.logger.Info("LLM request completed",
		zap.Int("response_len", len(content)),
		zap.Duration("elapsed", time.Since(start)))

	return content, nil
}

// GetModel returns the configured model name.
func (c *Client) GetModel() string {
	return c.model
}

// normalizeRole maps loose history roles onto the chat API's role set.
func normalizeRole(role string) string {
	switch strings.ToLower(role) {
	case "assistant", "ai", "model":
		return openai.ChatMessageRoleAssistant
	case "system":
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}
