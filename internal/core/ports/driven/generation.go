package driven

import (
	"context"

	"github.com/migratio-labs/ragserve/internal/core/domain"
)

// GenerationBackend is a single text-generation provider behind the
// cascade. Each adapter normalises its provider's request/response shape
// to this contract; provider quirks never leak into the core.
//
// Implementations may include:
//   - Ollama (/api/chat)
//   - Gemini (generateContent REST)
//   - OpenAI-compatible endpoints
//   - A deterministic local rule-based responder
type GenerationBackend interface {
	// Name identifies the backend in results and logs.
	Name() string

	// Generate produces a completion for the conversation. Calls must
	// honour ctx cancellation; the cascade applies a per-backend timeout.
	// An empty completion is a contract violation the cascade treats as
	// failure.
	Generate(ctx context.Context, messages []domain.ChatMessage) (string, error)

	// Ping validates the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
