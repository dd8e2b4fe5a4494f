package services

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/migratio-labs/ragserve/internal/cache"
	"github.com/migratio-labs/ragserve/internal/core/domain"
	"github.com/migratio-labs/ragserve/internal/core/ports/driven"
	"github.com/migratio-labs/ragserve/internal/logger"
)

// DefaultBackendTimeout bounds a single backend call when no per-backend
// timeout is configured.
const DefaultBackendTimeout = 60 * time.Second

// CascadeBackend pairs a generation backend with its call timeout.
type CascadeBackend struct {
	// Backend is the provider adapter.
	Backend driven.GenerationBackend

	// Timeout bounds one Generate call. Zero means DefaultBackendTimeout.
	Timeout time.Duration
}

// CascadeService tries generation backends in priority order until one
// succeeds. A backend failure (error, timeout, empty completion) moves to
// the next backend; it is never retried against the same backend within a
// pass. The cascade never waits longer than the sum of per-backend
// timeouts and never fabricates an answer.
type CascadeService struct {
	backends []CascadeBackend
	cache    *cache.Cache
}

// CascadeOption configures the cascade.
type CascadeOption func(*CascadeService)

// WithResponseCache attaches a TTL response cache keyed by the message
// list. The cache is owned by the cascade, not a package-level singleton.
func WithResponseCache(c *cache.Cache) CascadeOption {
	return func(s *CascadeService) {
		s.cache = c
	}
}

// NewCascadeService creates a cascade over the given ordered backends.
// At least one backend is required.
func NewCascadeService(backends []CascadeBackend, opts ...CascadeOption) (*CascadeService, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("%w: at least one generation backend is required", domain.ErrInvalidInput)
	}
	for i := range backends {
		if backends[i].Backend == nil {
			return nil, fmt.Errorf("%w: backend %d is nil", domain.ErrInvalidInput, i)
		}
		if backends[i].Timeout <= 0 {
			backends[i].Timeout = DefaultBackendTimeout
		}
	}

	s := &CascadeService{backends: backends}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Names returns the configured backend identifiers in priority order.
func (s *CascadeService) Names() []string {
	names := make([]string, len(s.backends))
	for i, b := range s.backends {
		names[i] = b.Backend.Name()
	}
	return names
}

// Generate produces an answer for the conversation, trying each backend
// in order. On success it returns immediately with the backend that
// served the response. If every backend fails it returns
// domain.ErrAllBackendsExhausted wrapping the last failure.
func (s *CascadeService) Generate(ctx context.Context, messages []domain.ChatMessage) (*domain.GenerationResult, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: no messages", domain.ErrInvalidInput)
	}
	for _, m := range messages {
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}

	key := cascadeCacheKey(messages)
	if s.cache != nil {
		if text, ok := s.cache.Get(key); ok {
			logger.Debug("Cascade: cache hit")
			return &domain.GenerationResult{Text: text, BackendUsed: "cache", Cached: true}, nil
		}
	}

	logger.Section("Generation Cascade")

	var lastErr error
	for i, b := range s.backends {
		name := b.Backend.Name()
		logger.Debug("Trying backend %d/%d: %s (timeout %v)", i+1, len(s.backends), name, b.Timeout)

		text, err := s.callBackend(ctx, b, messages)
		if err == nil {
			logger.Info("Backend %s answered (%d chars)", name, len(text))
			if s.cache != nil {
				s.cache.Set(key, text)
			}
			return &domain.GenerationResult{Text: text, BackendUsed: name}, nil
		}

		lastErr = fmt.Errorf("%s: %w", name, err)
		logger.Warn("Backend %s failed: %v", name, err)

		if ctx.Err() != nil {
			return nil, fmt.Errorf("cascade cancelled after %d attempts: %w", i+1, ctx.Err())
		}
	}

	return nil, fmt.Errorf("%w (%d tried): %w", domain.ErrAllBackendsExhausted, len(s.backends), lastErr)
}

// callBackend invokes one backend under its timeout. The timeout is a
// hard cancellation boundary: a call that overruns is abandoned and its
// late result discarded, so it can never win after a later backend has
// already been consulted.
func (s *CascadeService) callBackend(ctx context.Context, b CascadeBackend, messages []domain.ChatMessage) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	// Buffered so an abandoned call can complete without leaking.
	done := make(chan outcome, 1)

	go func() {
		text, err := b.Backend.Generate(callCtx, messages)
		done <- outcome{text: text, err: err}
	}()

	select {
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %v", domain.ErrBackendTimeout, b.Timeout)
		}
		return "", callCtx.Err()

	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, context.DeadlineExceeded) {
				return "", fmt.Errorf("%w after %v", domain.ErrBackendTimeout, b.Timeout)
			}
			return "", fmt.Errorf("%w: %w", domain.ErrBackendFailure, out.err)
		}
		// Providers occasionally return 200 with an empty completion.
		if strings.TrimSpace(out.text) == "" {
			return "", fmt.Errorf("%w: empty completion", domain.ErrBackendFailure)
		}
		return out.text, nil
	}
}

// cascadeCacheKey derives a deterministic cache key from the message list.
func cascadeCacheKey(messages []domain.ChatMessage) string {
	data, err := json.Marshal(messages)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
