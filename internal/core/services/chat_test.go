package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migratio-labs/ragserve/internal/core/domain"
)

// echoCascade returns a cascade whose single backend records the
// conversation it was handed.
func echoCascade(t *testing.T, captured *[]domain.ChatMessage) *CascadeService {
	t.Helper()
	backend := &mockBackend{
		name: "echo",
		generateFunc: func(_ context.Context, messages []domain.ChatMessage) (string, error) {
			*captured = messages
			return "the answer", nil
		},
	}
	svc, err := NewCascadeService([]CascadeBackend{{Backend: backend}})
	require.NoError(t, err)
	return svc
}

func resultsWithContent(contents ...string) []domain.SimilarityResult {
	results := make([]domain.SimilarityResult, len(contents))
	for i, c := range contents {
		results[i] = domain.SimilarityResult{
			Document: domain.Document{ID: fmt.Sprintf("doc-%d", i), Content: c},
			Score:    1 - float64(i)*0.05,
		}
	}
	return results
}

func TestAnswer_WithRetrievedContext(t *testing.T) {
	retriever := &mockRetriever{
		retrieveFunc: func(_ context.Context, _ string, _ domain.RetrievalOptions) ([]domain.SimilarityResult, error) {
			return resultsWithContent("Asylum must be filed within one year.", "Form I-589 starts the process."), nil
		},
	}
	var captured []domain.ChatMessage
	svc := NewChatService(retriever, echoCascade(t, &captured))

	answer, err := svc.Answer(context.Background(), "How do I apply for asylum?", nil)

	require.NoError(t, err)
	assert.Equal(t, "the answer", answer.Text)
	assert.Equal(t, "echo", answer.BackendUsed)
	assert.False(t, answer.ContextFree)
	assert.Len(t, answer.Sources, 2)

	require.NotEmpty(t, captured)
	system := captured[0]
	assert.Equal(t, domain.RoleSystem, system.Role)
	assert.Contains(t, system.Content, "Asylum must be filed within one year.")
	assert.Contains(t, system.Content, "Form I-589 starts the process.")

	last := captured[len(captured)-1]
	assert.Equal(t, domain.RoleUser, last.Role)
	assert.Equal(t, "How do I apply for asylum?", last.Content)
}

func TestAnswer_HistoryPreserved(t *testing.T) {
	retriever := &mockRetriever{
		retrieveFunc: func(_ context.Context, _ string, _ domain.RetrievalOptions) ([]domain.SimilarityResult, error) {
			return nil, nil
		},
	}
	var captured []domain.ChatMessage
	svc := NewChatService(retriever, echoCascade(t, &captured))

	history := []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "What is a green card?"},
		{Role: domain.RoleAssistant, Content: "Permanent residence."},
	}
	_, err := svc.Answer(context.Background(), "How long does it take?", history)

	require.NoError(t, err)
	require.Len(t, captured, 4) // system + 2 history + query
	assert.Equal(t, history[0], captured[1])
	assert.Equal(t, history[1], captured[2])
}

func TestAnswer_StoreFailureDegradesToContextFree(t *testing.T) {
	retriever := &mockRetriever{
		retrieveFunc: func(_ context.Context, _ string, _ domain.RetrievalOptions) ([]domain.SimilarityResult, error) {
			return nil, fmt.Errorf("similarity query: %w", domain.ErrStoreQuery)
		},
	}
	var captured []domain.ChatMessage
	svc := NewChatService(retriever, echoCascade(t, &captured))

	answer, err := svc.Answer(context.Background(), "What is a visa?", nil)

	require.NoError(t, err)
	assert.True(t, answer.ContextFree)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, "the answer", answer.Text)
}

func TestAnswer_NoResultsIsContextFree(t *testing.T) {
	retriever := &mockRetriever{
		retrieveFunc: func(_ context.Context, _ string, _ domain.RetrievalOptions) ([]domain.SimilarityResult, error) {
			return nil, nil
		},
	}
	var captured []domain.ChatMessage
	svc := NewChatService(retriever, echoCascade(t, &captured))

	answer, err := svc.Answer(context.Background(), "What is a visa?", nil)

	require.NoError(t, err)
	assert.True(t, answer.ContextFree)
}

func TestAnswer_OtherRetrievalErrorsPropagate(t *testing.T) {
	retriever := &mockRetriever{
		retrieveFunc: func(_ context.Context, _ string, _ domain.RetrievalOptions) ([]domain.SimilarityResult, error) {
			return nil, fmt.Errorf("embed query: %w", domain.ErrEmbeddingUnavailable)
		},
	}
	var captured []domain.ChatMessage
	svc := NewChatService(retriever, echoCascade(t, &captured))

	_, err := svc.Answer(context.Background(), "What is a visa?", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestAnswer_EmptyQuery(t *testing.T) {
	retriever := &mockRetriever{
		retrieveFunc: func(_ context.Context, _ string, _ domain.RetrievalOptions) ([]domain.SimilarityResult, error) {
			return nil, nil
		},
	}
	var captured []domain.ChatMessage
	svc := NewChatService(retriever, echoCascade(t, &captured))

	_, err := svc.Answer(context.Background(), "  ", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnswer_InvalidHistory(t *testing.T) {
	retriever := &mockRetriever{
		retrieveFunc: func(_ context.Context, _ string, _ domain.RetrievalOptions) ([]domain.SimilarityResult, error) {
			return nil, nil
		},
	}
	var captured []domain.ChatMessage
	svc := NewChatService(retriever, echoCascade(t, &captured))

	_, err := svc.Answer(context.Background(), "What is a visa?", []domain.ChatMessage{
		{Role: "narrator", Content: "meanwhile"},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnswer_ContextBudgetDropsLowScores(t *testing.T) {
	big := strings.Repeat("x", 60)
	retriever := &mockRetriever{
		retrieveFunc: func(_ context.Context, _ string, _ domain.RetrievalOptions) ([]domain.SimilarityResult, error) {
			return resultsWithContent(big, big, big), nil
		},
	}
	var captured []domain.ChatMessage
	svc := NewChatService(retriever, echoCascade(t, &captured), WithContextBudget(100))

	answer, err := svc.Answer(context.Background(), "question", nil)

	require.NoError(t, err)
	assert.False(t, answer.ContextFree)
	// A 100-char budget fits the first 60-char chunk; adding the second
	// would overrun, so exactly one chunk survives.
	system := captured[0].Content
	assert.Equal(t, 1, strings.Count(system, big))
}

func TestAnswer_CascadeExhaustionPropagates(t *testing.T) {
	retriever := &mockRetriever{
		retrieveFunc: func(_ context.Context, _ string, _ domain.RetrievalOptions) ([]domain.SimilarityResult, error) {
			return nil, nil
		},
	}
	backend := &mockBackend{
		name: "down",
		generateFunc: func(_ context.Context, _ []domain.ChatMessage) (string, error) {
			return "", fmt.Errorf("unreachable")
		},
	}
	cascade, err := NewCascadeService([]CascadeBackend{{Backend: backend}})
	require.NoError(t, err)
	svc := NewChatService(retriever, cascade)

	_, err = svc.Answer(context.Background(), "question", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAllBackendsExhausted)
}
