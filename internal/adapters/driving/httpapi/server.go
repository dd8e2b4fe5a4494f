// Package httpapi exposes search and chat over HTTP.
//
// Error mapping: invalid requests return 400, upstream failures (store,
// embedder, exhausted generation cascade) return 502, everything else
// returns 500. Bodies are JSON in both directions.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/migratio-labs/ragserve/internal/core/domain"
	"github.com/migratio-labs/ragserve/internal/core/ports/driven"
	"github.com/migratio-labs/ragserve/internal/core/ports/driving"
	"github.com/migratio-labs/ragserve/internal/logger"
)

// Default configuration values.
const (
	DefaultAddr        = ":8080"
	DefaultReadTimeout = 30 * time.Second

	// maxBodyBytes bounds request bodies; chat histories are small.
	maxBodyBytes = 1 << 20
)

// Config holds configuration for the HTTP server.
type Config struct {
	// Addr is the listen address (default: :8080).
	Addr string

	// ReadTimeout is the request read timeout (default: 30s).
	ReadTimeout time.Duration
}

// Server serves the HTTP API.
type Server struct {
	httpServer *http.Server
	retriever  driving.Retriever
	chat       driving.ChatService
	store      driven.DocumentStore
	embedder   driven.EmbeddingService
}

// NewServer creates the HTTP API server.
func NewServer(
	cfg Config,
	retriever driving.Retriever,
	chat driving.ChatService,
	store driven.DocumentStore,
	embedder driven.EmbeddingService,
) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	s := &Server{
		retriever: retriever,
		chat:      chat,
		store:     store,
		embedder:  embedder,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:        cfg.Addr,
		Handler:     mux,
		ReadTimeout: cfg.ReadTimeout,
	}
	return s
}

// Start listens and serves until Shutdown is called.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// searchRequest is the POST /search payload. Threshold is a pointer so
// an explicit zero (no cutoff) is distinguishable from absent.
type searchRequest struct {
	Query     string   `json:"query"`
	Limit     int      `json:"limit,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// searchResult is one result row in the response.
type searchResult struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score"`
}

// searchResponse is the POST /search response.
type searchResponse struct {
	Results []searchResult `json:"results"`
	Count   int            `json:"count"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	opts := domain.RetrievalOptions{
		Limit:     req.Limit,
		Threshold: req.Threshold,
	}
	results, err := s.retriever.Retrieve(r.Context(), req.Query, opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := searchResponse{
		Results: make([]searchResult, 0, len(results)),
		Count:   len(results),
	}
	for _, res := range results {
		resp.Results = append(resp.Results, searchResult{
			ID:       res.Document.ID,
			Content:  res.Document.Content,
			Metadata: res.Document.Metadata,
			Score:    res.Score,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// chatRequest is the POST /chat payload. The query is the last user
// turn in messages; context is optional caller-supplied material that
// joins the prompt alongside retrieved documents.
type chatRequest struct {
	Messages []chatMessage `json:"messages"`
	Context  string        `json:"context,omitempty"`
}

// chatMessage is one conversation turn on the wire.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the POST /chat response.
type chatResponse struct {
	Response    string         `json:"response"`
	Backend     string         `json:"backend"`
	ContextFree bool           `json:"context_free"`
	Sources     []searchResult `json:"sources,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages array is required")
		return
	}

	last := -1
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == domain.RoleUser {
			last = i
			break
		}
	}
	if last == -1 {
		writeError(w, http.StatusBadRequest, "no user message in messages")
		return
	}

	history := make([]domain.ChatMessage, 0, len(req.Messages))
	if req.Context != "" {
		history = append(history, domain.ChatMessage{
			Role:    domain.RoleSystem,
			Content: req.Context,
		})
	}
	for i, m := range req.Messages {
		if i == last {
			continue
		}
		history = append(history, domain.ChatMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	answer, err := s.chat.Answer(r.Context(), req.Messages[last].Content, history)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := chatResponse{
		Response:    answer.Text,
		Backend:     answer.BackendUsed,
		ContextFree: answer.ContextFree,
	}
	for _, src := range answer.Sources {
		resp.Sources = append(resp.Sources, searchResult{
			ID:       src.Document.ID,
			Content:  src.Document.Content,
			Metadata: src.Document.Metadata,
			Score:    src.Score,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// healthResponse is the GET /healthz response.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Checks: make(map[string]string),
	}

	if err := s.store.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Checks["store"] = err.Error()
	} else {
		resp.Checks["store"] = "ok"
	}

	if err := s.embedder.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Checks["embedder"] = err.Error()
	} else {
		resp.Checks["embedder"] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

// decodeBody parses a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeDomainError maps domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAllBackendsExhausted),
		errors.Is(err, domain.ErrStoreQuery),
		errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, domain.ErrEmbeddingUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Warn("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("write response: %v", err)
	}
}
