// Package supabase provides a DocumentStore adapter backed by a hosted
// Postgres with pgvector, accessed through the PostgREST API. Similarity
// search is delegated to the match_documents RPC; the adapter is a
// pass-through with no local indexing.
//
// Expected schema: a documents table with content (text), metadata
// (jsonb), content_hash (text, unique), embedding (vector), and a
// match_documents(query_embedding, match_threshold, match_count)
// function returning rows ordered by similarity descending.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/migratio-labs/ragserve/internal/core/domain"
	"github.com/migratio-labs/ragserve/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultTable   = "documents"
	DefaultTimeout = 15 * time.Second
)

// Config holds configuration for the Supabase store.
// URL and key always come from configuration; committing a service-role
// key to source is how the data behind this schema leaked once already.
type Config struct {
	// URL is the project base URL (https://<ref>.supabase.co).
	URL string

	// Key is the API key used for both the apikey header and the bearer
	// token.
	Key string

	// Table is the documents table name (default: documents).
	Table string

	// Timeout is the request timeout (default: 15s).
	Timeout time.Duration
}

// Store is a PostgREST client for the documents table.
type Store struct {
	client  *http.Client
	baseURL string
	key     string
	table   string
}

// NewStore creates a Supabase-backed document store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: store URL is required", domain.ErrInvalidInput)
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("%w: store key is required", domain.ErrInvalidInput)
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Store{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.URL,
		key:     cfg.Key,
		table:   cfg.Table,
	}, nil
}

// insertRow is the PostgREST insert payload.
type insertRow struct {
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata"`
	ContentHash string         `json:"content_hash"`
	Embedding   []float32      `json:"embedding"`
}

// matchRequest is the match_documents RPC payload.
type matchRequest struct {
	QueryEmbedding []float32 `json:"query_embedding"`
	MatchThreshold float64   `json:"match_threshold"`
	MatchCount     int       `json:"match_count"`
}

// matchRow is one RPC result row.
type matchRow struct {
	ID         json.Number    `json:"id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Similarity float64        `json:"similarity"`
}

// Insert stores a document and returns the assigned row ID.
func (s *Store) Insert(ctx context.Context, doc *domain.Document) (string, error) {
	row := insertRow{
		Content:     doc.Content,
		Metadata:    doc.Metadata,
		ContentHash: doc.ContentHash,
		Embedding:   doc.Embedding,
	}

	body, status, err := s.do(ctx, http.MethodPost, "/rest/v1/"+s.table, row, map[string]string{
		"Prefer": "return=representation",
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	if status == http.StatusConflict {
		return "", fmt.Errorf("%w: content hash %s", domain.ErrAlreadyExists, doc.ContentHash)
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return "", fmt.Errorf("%w: insert returned status %d: %s", domain.ErrStoreWrite, status, body)
	}

	var rows []struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(body, &rows); err != nil || len(rows) == 0 {
		return "", fmt.Errorf("%w: unexpected insert response: %s", domain.ErrStoreWrite, body)
	}
	return rows[0].ID.String(), nil
}

// Query runs the match_documents RPC. Rows come back already ordered by
// similarity descending; they are passed through unmodified.
func (s *Store) Query(
	ctx context.Context, embedding []float32, threshold float64, limit int,
) ([]domain.SimilarityResult, error) {
	req := matchRequest{
		QueryEmbedding: embedding,
		MatchThreshold: threshold,
		MatchCount:     limit,
	}

	body, status, err := s.do(ctx, http.MethodPost, "/rest/v1/rpc/match_documents", req, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreQuery, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: rpc returned status %d: %s", domain.ErrStoreQuery, status, body)
	}

	var rows []matchRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: decode rpc response: %w", domain.ErrStoreQuery, err)
	}

	// Zero matches above the threshold is a valid outcome.
	results := make([]domain.SimilarityResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, domain.SimilarityResult{
			Document: domain.Document{
				ID:       row.ID.String(),
				Content:  row.Content,
				Metadata: row.Metadata,
			},
			Score: row.Similarity,
		})
	}
	return results, nil
}

// ExistsByContentHash checks for a document with the given hash.
func (s *Store) ExistsByContentHash(ctx context.Context, hash string) (bool, error) {
	path := fmt.Sprintf("/rest/v1/%s?select=id&content_hash=eq.%s&limit=1", s.table, hash)
	body, status, err := s.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrStoreQuery, err)
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("%w: exists check returned status %d: %s", domain.ErrStoreQuery, status, body)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return false, fmt.Errorf("%w: decode exists response: %w", domain.ErrStoreQuery, err)
	}
	return len(rows) > 0, nil
}

// DeleteByContentHash removes all documents with the given hash.
func (s *Store) DeleteByContentHash(ctx context.Context, hash string) (int, error) {
	path := fmt.Sprintf("/rest/v1/%s?content_hash=eq.%s", s.table, hash)
	body, status, err := s.do(ctx, http.MethodDelete, path, nil, map[string]string{
		"Prefer": "return=representation",
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("%w: delete returned status %d: %s", domain.ErrStoreWrite, status, body)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return 0, fmt.Errorf("%w: decode delete response: %w", domain.ErrStoreWrite, err)
	}
	return len(rows), nil
}

// Ping validates the REST endpoint accepts the configured key.
func (s *Store) Ping(ctx context.Context) error {
	path := fmt.Sprintf("/rest/v1/%s?select=id&limit=1", s.table)
	body, status, err := s.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", domain.ErrStoreUnavailable, status, body)
	}
	return nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

// do performs one PostgREST request and returns the body and status.
func (s *Store) do(
	ctx context.Context, method, path string, payload any, headers map[string]string,
) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
