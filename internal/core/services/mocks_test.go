package services

import (
	"context"

	"github.com/migratio-labs/ragserve/internal/core/domain"
)

// mockEmbedder is a hand-written EmbeddingService mock with pluggable
// behaviour.
type mockEmbedder struct {
	embedFunc  func(ctx context.Context, text string) ([]float32, error)
	dimensions int
	calls      int
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{
		dimensions: dims,
		embedFunc: func(_ context.Context, _ string) ([]float32, error) {
			vec := make([]float32, dims)
			vec[0] = 1
			return vec, nil
		},
	}
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	return m.embedFunc(ctx, text)
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return m.dimensions }
func (m *mockEmbedder) ModelName() string            { return "mock-model" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockStore is a hand-written DocumentStore mock.
type mockStore struct {
	insertFunc func(ctx context.Context, doc *domain.Document) (string, error)
	queryFunc  func(ctx context.Context, embedding []float32, threshold float64, limit int) ([]domain.SimilarityResult, error)
	existsFunc func(ctx context.Context, hash string) (bool, error)
	deleteFunc func(ctx context.Context, hash string) (int, error)

	queryCalls  int
	insertCalls int
}

func (m *mockStore) Insert(ctx context.Context, doc *domain.Document) (string, error) {
	m.insertCalls++
	if m.insertFunc != nil {
		return m.insertFunc(ctx, doc)
	}
	return "id-1", nil
}

func (m *mockStore) Query(ctx context.Context, embedding []float32, threshold float64, limit int) ([]domain.SimilarityResult, error) {
	m.queryCalls++
	if m.queryFunc != nil {
		return m.queryFunc(ctx, embedding, threshold, limit)
	}
	return nil, nil
}

func (m *mockStore) ExistsByContentHash(ctx context.Context, hash string) (bool, error) {
	if m.existsFunc != nil {
		return m.existsFunc(ctx, hash)
	}
	return false, nil
}

func (m *mockStore) DeleteByContentHash(ctx context.Context, hash string) (int, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, hash)
	}
	return 0, nil
}

func (m *mockStore) Ping(_ context.Context) error { return nil }
func (m *mockStore) Close() error                 { return nil }

// mockBackend is a hand-written GenerationBackend mock.
type mockBackend struct {
	name         string
	generateFunc func(ctx context.Context, messages []domain.ChatMessage) (string, error)
	calls        int
}

func (m *mockBackend) Name() string { return m.name }

func (m *mockBackend) Generate(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	m.calls++
	return m.generateFunc(ctx, messages)
}

func (m *mockBackend) Ping(_ context.Context) error { return nil }
func (m *mockBackend) Close() error                 { return nil }

// mockRetriever is a hand-written Retriever mock for chat tests.
type mockRetriever struct {
	retrieveFunc func(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.SimilarityResult, error)
}

func (m *mockRetriever) Retrieve(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.SimilarityResult, error) {
	return m.retrieveFunc(ctx, query, opts)
}
