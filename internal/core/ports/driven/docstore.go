package driven

import (
	"context"

	"github.com/migratio-labs/ragserve/internal/core/domain"
)

// DocumentStore persists embedded documents and answers nearest-neighbour
// queries. The core implements no indexing of its own; similarity search is
// delegated to the store (a hosted pgvector RPC, a local SQLite scan, or an
// in-memory map for tests).
type DocumentStore interface {
	// Insert stores a document and returns its assigned ID.
	// Transport failures are wrapped in domain.ErrStoreWrite; an existing
	// document with the same content hash yields domain.ErrAlreadyExists.
	Insert(ctx context.Context, doc *domain.Document) (string, error)

	// Query returns documents whose cosine similarity to the embedding is
	// at least threshold, ordered descending, at most limit results.
	// An empty result set is valid. Transport failures are wrapped in
	// domain.ErrStoreQuery.
	Query(ctx context.Context, embedding []float32, threshold float64, limit int) ([]domain.SimilarityResult, error)

	// ExistsByContentHash reports whether a document with the given
	// content hash is already stored.
	ExistsByContentHash(ctx context.Context, hash string) (bool, error)

	// DeleteByContentHash removes all documents with the given content
	// hash and returns the number deleted.
	DeleteByContentHash(ctx context.Context, hash string) (int, error)

	// Ping validates the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
