// Package memory provides an in-memory DocumentStore for tests and
// offline experimentation.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/migratio-labs/ragserve/internal/core/domain"
	"github.com/migratio-labs/ragserve/internal/core/ports/driven"
	"github.com/migratio-labs/ragserve/internal/distance"
)

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// Store is an in-memory document store.
type Store struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		docs: make(map[string]domain.Document),
	}
}

// Insert stores a document.
func (s *Store) Insert(_ context.Context, doc *domain.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.docs {
		if existing.ContentHash == doc.ContentHash {
			return "", fmt.Errorf("%w: content hash %s", domain.ErrAlreadyExists, doc.ContentHash)
		}
	}

	stored := *doc
	stored.ID = uuid.New().String()
	stored.CreatedAt = time.Now().UTC()
	s.docs[stored.ID] = stored
	return stored.ID, nil
}

// Query returns documents with cosine similarity at least threshold,
// ordered descending, at most limit results.
func (s *Store) Query(
	_ context.Context, embedding []float32, threshold float64, limit int,
) ([]domain.SimilarityResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.SimilarityResult
	for _, doc := range s.docs {
		score := distance.Cosine(embedding, doc.Embedding)
		if score < threshold {
			continue
		}
		results = append(results, domain.SimilarityResult{Document: doc, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// ExistsByContentHash checks for a document with the given hash.
func (s *Store) ExistsByContentHash(_ context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.docs {
		if doc.ContentHash == hash {
			return true, nil
		}
	}
	return false, nil
}

// DeleteByContentHash removes all documents with the given hash.
func (s *Store) DeleteByContentHash(_ context.Context, hash string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, doc := range s.docs {
		if doc.ContentHash == hash {
			delete(s.docs, id)
			count++
		}
	}
	return count, nil
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}
