package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/migratio-labs/ragserve/internal/core/domain"
	"github.com/migratio-labs/ragserve/internal/core/ports/driving"
	"github.com/migratio-labs/ragserve/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// DefaultContextBudget caps the total characters of retrieved context
// included in the prompt.
const DefaultContextBudget = 4000

// defaultSystemPrompt instructs the model on how to use retrieved context.
const defaultSystemPrompt = `You are an immigration assistance expert. Answer the user's question using the reference material below when it is relevant. If the material does not cover the question, say so rather than guessing.`

// contextFreeSystemPrompt is used when retrieval produced nothing.
const contextFreeSystemPrompt = `You are an immigration assistance expert. Answer the user's question from general knowledge, and be explicit about anything you are unsure of.`

// ChatService combines the retriever and the generation cascade into the
// top-level answer operation.
type ChatService struct {
	retriever     driving.Retriever
	cascade       *CascadeService
	opts          domain.RetrievalOptions
	contextBudget int
	systemPrompt  string
}

// ChatOption configures the orchestrator.
type ChatOption func(*ChatService)

// WithRetrievalOptions sets the limit/threshold used for context lookup.
func WithRetrievalOptions(opts domain.RetrievalOptions) ChatOption {
	return func(s *ChatService) {
		s.opts = opts
	}
}

// WithContextBudget sets the maximum total characters of context.
func WithContextBudget(budget int) ChatOption {
	return func(s *ChatService) {
		if budget > 0 {
			s.contextBudget = budget
		}
	}
}

// WithSystemPrompt overrides the default system instructions.
func WithSystemPrompt(prompt string) ChatOption {
	return func(s *ChatService) {
		if prompt != "" {
			s.systemPrompt = prompt
		}
	}
}

// NewChatService creates the chat orchestrator.
func NewChatService(retriever driving.Retriever, cascade *CascadeService, opts ...ChatOption) *ChatService {
	s := &ChatService{
		retriever:     retriever,
		cascade:       cascade,
		opts:          domain.RetrievalOptions{}.Normalise(),
		contextBudget: DefaultContextBudget,
		systemPrompt:  defaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Answer retrieves context for the query, assembles the prompt and runs
// the generation cascade.
//
// A store transport failure during retrieval does not fail the request:
// the orchestrator degrades to a context-free answer and marks it as such
// so the degradation is observable. Invalid input and cascade exhaustion
// are surfaced to the caller.
func (s *ChatService) Answer(ctx context.Context, query string, history []domain.ChatMessage) (*domain.ChatAnswer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	for _, m := range history {
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}

	var (
		sources     []domain.SimilarityResult
		contextFree bool
	)

	results, err := s.retriever.Retrieve(ctx, query, s.opts)
	switch {
	case err == nil:
		sources = results
	case errors.Is(err, domain.ErrStoreQuery) || errors.Is(err, domain.ErrStoreUnavailable):
		logger.Warn("Retrieval unavailable, answering context-free: %v", err)
		contextFree = true
	default:
		return nil, err
	}

	contextText := s.buildContext(sources)
	if contextText == "" {
		contextFree = true
	}

	messages := s.buildMessages(contextText, history, query)

	result, err := s.cascade.Generate(ctx, messages)
	if err != nil {
		return nil, err
	}

	return &domain.ChatAnswer{
		Text:        result.Text,
		BackendUsed: result.BackendUsed,
		ContextFree: contextFree,
		Sources:     sources,
	}, nil
}

// buildContext concatenates retrieved chunks within the character budget.
// Results arrive ordered by descending similarity, so when the budget is
// exceeded the lowest-scoring chunks are the ones dropped.
func (s *ChatService) buildContext(results []domain.SimilarityResult) string {
	var b strings.Builder
	for _, r := range results {
		if b.Len()+len(r.Document.Content) > s.contextBudget {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n---\n\n")
		}
		b.WriteString(r.Document.Content)
	}
	return b.String()
}

// buildMessages assembles the final conversation for the cascade.
func (s *ChatService) buildMessages(contextText string, history []domain.ChatMessage, query string) []domain.ChatMessage {
	system := contextFreeSystemPrompt
	if contextText != "" {
		system = s.systemPrompt + "\n\nReference material:\n\n" + contextText
	}

	messages := make([]domain.ChatMessage, 0, len(history)+2)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: system})
	messages = append(messages, history...)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: query})
	return messages
}
