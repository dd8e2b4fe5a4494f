package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations may include:
//   - Ollama (all-minilm, nomic-embed-text)
//   - Hugging Face Inference API (sentence-transformers/all-MiniLM-L6-v2)
//
// Embed must be idempotent (same text, same vector for a given model
// version) and must reject empty input with domain.ErrInvalidInput.
// Implementations with a cold-start cost must memoize their
// initialisation so concurrent first callers share a single load.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g. 384, 768).
	// Every stored embedding must have exactly this length.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
