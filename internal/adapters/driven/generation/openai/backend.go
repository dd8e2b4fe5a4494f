// Package openai provides a generation backend for OpenAI-compatible
// chat completion endpoints.
package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/migratio-labs/ragserve/internal/core/domain"
	"github.com/migratio-labs/ragserve/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.GenerationBackend = (*Backend)(nil)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = goopenai.GPT4oMini

// Config holds configuration for the OpenAI backend.
type Config struct {
	// APIKey is required.
	APIKey string

	// BaseURL overrides the API base URL. Any OpenAI-compatible endpoint
	// works (leave empty for api.openai.com).
	BaseURL string

	// Model is the chat model (default: gpt-4o-mini).
	Model string
}

// Backend generates completions through the chat completions API.
type Backend struct {
	client *goopenai.Client
	model  string
}

// NewBackend creates a new OpenAI generation backend.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key is required", domain.ErrInvalidInput)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Backend{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

// Name identifies the backend.
func (b *Backend) Name() string {
	return "openai"
}

// Generate produces a completion for the conversation.
func (b *Backend) Generate(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:    b.model,
		Messages: toCompletionMessages(messages),
	}

	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrBackendFailure, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", domain.ErrBackendFailure)
	}
	return resp.Choices[0].Message.Content, nil
}

// Ping validates the API accepts the configured key.
func (b *Backend) Ping(ctx context.Context) error {
	if _, err := b.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai API unreachable: %w", err)
	}
	return nil
}

// Close releases resources.
func (b *Backend) Close() error {
	return nil
}

// toCompletionMessages converts domain messages to the client format.
func toCompletionMessages(messages []domain.ChatMessage) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = goopenai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}
	return out
}
