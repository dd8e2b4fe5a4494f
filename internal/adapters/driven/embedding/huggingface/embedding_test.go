package huggingface

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migratio-labs/ragserve/internal/core/domain"
)

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestEmbed_SentenceVector(t *testing.T) {
	var gotReq embedRequest
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pipeline/feature-extraction/test-model", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode([]float64{3, 4})
	}))
	defer server.Close()

	svc := NewEmbeddingService(Config{
		BaseURL:    server.URL,
		Model:      "test-model",
		Token:      "hf-token",
		Dimensions: 2,
	})

	embedding, err := svc.Embed(context.Background(), "some text")

	require.NoError(t, err)
	assert.Equal(t, "Bearer hf-token", gotAuth)
	assert.True(t, gotReq.Options.WaitForModel)
	// Output is L2-normalised.
	assert.InDelta(t, 0.6, embedding[0], 1e-6)
	assert.InDelta(t, 0.8, embedding[1], 1e-6)
	assert.InDelta(t, 1.0, norm(embedding), 1e-6)
}

func TestEmbed_TokenVectorsMeanPooled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Two token vectors; mean is [2, 4], normalised below.
		json.NewEncoder(w).Encode([][]float64{{1, 3}, {3, 5}})
	}))
	defer server.Close()

	svc := NewEmbeddingService(Config{BaseURL: server.URL, Dimensions: 2})

	embedding, err := svc.Embed(context.Background(), "some text")

	require.NoError(t, err)
	expected := math.Sqrt(4 + 16)
	assert.InDelta(t, 2/expected, embedding[0], 1e-6)
	assert.InDelta(t, 4/expected, embedding[1], 1e-6)
	assert.InDelta(t, 1.0, norm(embedding), 1e-6)
}

func TestEmbed_EmptyText(t *testing.T) {
	svc := NewEmbeddingService(Config{BaseURL: "http://localhost:0"})

	_, err := svc.Embed(context.Background(), "")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEmbed_WarmUpRunsOnce(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		json.NewEncoder(w).Encode([]float64{1, 0})
	}))
	defer server.Close()

	svc := NewEmbeddingService(Config{BaseURL: server.URL, Dimensions: 2})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Embed(context.Background(), "text")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// One shared warm-up call plus one embed call per goroutine.
	assert.Equal(t, int32(9), requests.Load())
}

func TestEmbed_WarmUpFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading failed", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc := NewEmbeddingService(Config{BaseURL: server.URL})

	_, err := svc.Embed(context.Background(), "text")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestParseEmbedding_Invalid(t *testing.T) {
	_, err := parseEmbedding([]byte(`{"error": "loading"}`))
	assert.Error(t, err)

	_, err = parseEmbedding([]byte(`[]`))
	assert.Error(t, err)

	_, err = parseEmbedding([]byte(`[[]]`))
	assert.Error(t, err)

	_, err = parseEmbedding([]byte(`[0, 0, 0]`))
	assert.Error(t, err, "zero-norm vector cannot be normalised")
}

func TestPing_RunsWarmUp(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		json.NewEncoder(w).Encode([]float64{1, 0})
	}))
	defer server.Close()

	svc := NewEmbeddingService(Config{BaseURL: server.URL, Dimensions: 2})

	require.NoError(t, svc.Ping(context.Background()))
	require.NoError(t, svc.Ping(context.Background()))

	assert.Equal(t, int32(1), requests.Load())
}
