package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/migratio-labs/ragserve/internal/core/domain"
	"github.com/migratio-labs/ragserve/internal/core/ports/driven"
	"github.com/migratio-labs/ragserve/internal/core/ports/driving"
	"github.com/migratio-labs/ragserve/internal/logger"
)

// Ensure RetrieverService implements the interface.
var _ driving.Retriever = (*RetrieverService)(nil)

// RetrieverService embeds queries and runs similarity searches against the
// document store. Results are returned as the store ranks them; there is
// no re-ranking.
type RetrieverService struct {
	embedder driven.EmbeddingService
	store    driven.DocumentStore
}

// NewRetrieverService creates a retriever over the given embedder and store.
func NewRetrieverService(embedder driven.EmbeddingService, store driven.DocumentStore) *RetrieverService {
	return &RetrieverService{
		embedder: embedder,
		store:    store,
	}
}

// Retrieve embeds the query and returns the top matches above the
// threshold, ordered by descending similarity.
//
// A store failure is propagated as a wrapped domain.ErrStoreQuery after
// bounded retries. It is never converted into an empty result set: "no
// relevant documents" and "search backend unreachable" are different
// answers and callers must be able to tell them apart.
func (s *RetrieverService) Retrieve(
	ctx context.Context, query string, opts domain.RetrievalOptions,
) ([]domain.SimilarityResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	opts = opts.Normalise()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.store == nil {
		return nil, domain.ErrStoreUnavailable
	}

	logger.Section("Retrieval")
	logger.Debug("Query: %q, limit=%d, threshold=%.2f", query, opts.Limit, *opts.Threshold)

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	logger.Debug("Query embedding: %d dimensions", len(embedding))

	var results []domain.SimilarityResult
	err = withRetry(ctx, defaultMaxAttempts, defaultBaseDelay, func() error {
		var queryErr error
		results, queryErr = s.store.Query(ctx, embedding, *opts.Threshold, opts.Limit)
		return queryErr
	})
	if err != nil {
		logger.Warn("Similarity query failed: %v", err)
		return nil, fmt.Errorf("similarity query: %w", err)
	}

	logger.Info("Retrieved %d results", len(results))
	return results, nil
}
