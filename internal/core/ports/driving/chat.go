package driving

import (
	"context"

	"github.com/migratio-labs/ragserve/internal/core/domain"
)

// ChatService answers user queries with retrieved context and the
// generation cascade.
type ChatService interface {
	// Answer retrieves context for the query, assembles the prompt and
	// delegates to the generation cascade. If retrieval fails at the
	// store, it proceeds context-free and marks the answer accordingly.
	Answer(ctx context.Context, query string, history []domain.ChatMessage) (*domain.ChatAnswer, error)
}
