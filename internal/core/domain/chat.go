package domain

import "fmt"

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// Validate checks the message has a known role and non-empty content.
func (m ChatMessage) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, m.Role)
	}
	if m.Content == "" {
		return fmt.Errorf("%w: empty message content", ErrInvalidInput)
	}
	return nil
}

// GenerationResult is the outcome of a successful cascade pass.
type GenerationResult struct {
	// Text is the generated answer.
	Text string

	// BackendUsed identifies the backend that produced the answer.
	BackendUsed string

	// Cached reports whether the answer was served from the response cache.
	Cached bool
}

// ChatAnswer is the orchestrator's response to a user query.
type ChatAnswer struct {
	// Text is the final answer.
	Text string

	// BackendUsed identifies the generation backend that served it.
	BackendUsed string

	// ContextFree marks answers produced without retrieved context,
	// either because retrieval failed or nothing cleared the threshold.
	ContextFree bool

	// Sources are the retrieved chunks that informed the answer,
	// ordered by descending similarity.
	Sources []SimilarityResult
}
