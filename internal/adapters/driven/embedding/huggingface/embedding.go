// Package huggingface provides an embedding service adapter using the
// Hugging Face Inference API's feature-extraction pipeline.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/migratio-labs/ragserve/internal/core/domain"
	"github.com/migratio-labs/ragserve/internal/core/ports/driven"
	"github.com/migratio-labs/ragserve/internal/distance"
	"github.com/migratio-labs/ragserve/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api-inference.huggingface.co"
	DefaultModel      = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 384 // all-MiniLM-L6-v2
)

// Config holds configuration for the Hugging Face embedding service.
type Config struct {
	// BaseURL is the inference API base URL.
	BaseURL string

	// Model is the feature-extraction model.
	Model string

	// Token is the API token, injected from configuration.
	Token string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// Dimensions is the embedding vector size (model-dependent).
	Dimensions int
}

// EmbeddingService generates embeddings via the hosted inference API.
// Hosted models are loaded on demand; the first call pays a cold-start
// cost. That warm-up is memoized through a singleflight group so
// concurrent first callers share one load instead of racing.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	model      string
	token      string
	dimensions int

	warm   singleflight.Group
	warmed atomic.Bool
}

// embedRequest is the feature-extraction request format.
type embedRequest struct {
	Inputs  string       `json:"inputs"`
	Options embedOptions `json:"options"`
}

type embedOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// NewEmbeddingService creates a new Hugging Face embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	return &EmbeddingService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		token:      cfg.Token,
		dimensions: cfg.Dimensions,
	}
}

// Embed generates a mean-pooled, L2-normalised embedding for the text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", domain.ErrInvalidInput)
	}

	if err := s.ensureWarm(ctx); err != nil {
		return nil, err
	}

	return s.embed(ctx, text)
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := s.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

// ensureWarm performs the memoized model warm-up. All concurrent first
// callers wait on one shared request; a naive boolean check would start
// duplicate loads.
func (s *EmbeddingService) ensureWarm(ctx context.Context) error {
	if s.warmed.Load() {
		return nil
	}

	_, err, _ := s.warm.Do("warmup", func() (any, error) {
		if s.warmed.Load() {
			return nil, nil
		}
		logger.Debug("Warming up model %s", s.model)
		if _, err := s.embed(ctx, "warmup"); err != nil {
			return nil, fmt.Errorf("%w: model warm-up: %w", domain.ErrEmbeddingUnavailable, err)
		}
		s.warmed.Store(true)
		return nil, nil
	})
	return err
}

// embed performs one feature-extraction call.
func (s *EmbeddingService) embed(ctx context.Context, text string) ([]float32, error) {
	jsonBody, err := json.Marshal(embedRequest{
		Inputs:  text,
		Options: embedOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/pipeline/feature-extraction/%s", s.baseURL, s.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("huggingface error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, fmt.Errorf("huggingface error (status %d): %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return parseEmbedding(body)
}

// parseEmbedding handles both response shapes of the pipeline: a sentence
// vector ([]float64) or per-token vectors ([][]float64), which are mean
// pooled. The result is L2-normalised either way.
func parseEmbedding(body []byte) ([]float32, error) {
	var sentence []float64
	if err := json.Unmarshal(body, &sentence); err == nil {
		return normalise(sentence)
	}

	var tokens [][]float64
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(tokens) == 0 || len(tokens[0]) == 0 {
		return nil, fmt.Errorf("decode response: empty embedding")
	}

	pooled := make([]float64, len(tokens[0]))
	for _, tok := range tokens {
		for i, v := range tok {
			pooled[i] += v
		}
	}
	for i := range pooled {
		pooled[i] /= float64(len(tokens))
	}
	return normalise(pooled)
}

func normalise(vec []float64) ([]float32, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("decode response: empty embedding")
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	if !distance.NormalizeL2InPlace(out) {
		return nil, fmt.Errorf("decode response: zero-norm embedding")
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the token and model by running the warm-up.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.ensureWarm(ctx)
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
