// Package factory provides factory functions for creating driven
// adapters from configuration.
package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/migratio-labs/ragserve/internal/adapters/driven/config/file"
	hfembed "github.com/migratio-labs/ragserve/internal/adapters/driven/embedding/huggingface"
	ollamaembed "github.com/migratio-labs/ragserve/internal/adapters/driven/embedding/ollama"
	geminigen "github.com/migratio-labs/ragserve/internal/adapters/driven/generation/gemini"
	localgen "github.com/migratio-labs/ragserve/internal/adapters/driven/generation/local"
	ollamagen "github.com/migratio-labs/ragserve/internal/adapters/driven/generation/ollama"
	openaigen "github.com/migratio-labs/ragserve/internal/adapters/driven/generation/openai"
	"github.com/migratio-labs/ragserve/internal/adapters/driven/storage/memory"
	"github.com/migratio-labs/ragserve/internal/adapters/driven/storage/sqlite"
	"github.com/migratio-labs/ragserve/internal/adapters/driven/storage/supabase"
	"github.com/migratio-labs/ragserve/internal/core/domain"
	"github.com/migratio-labs/ragserve/internal/core/ports/driven"
	"github.com/migratio-labs/ragserve/internal/core/services"
)

// pingTimeout is the maximum time to wait for connectivity validation.
const pingTimeout = 5 * time.Second

// CreateEmbeddingService creates the configured embedding service.
func CreateEmbeddingService(cfg file.EmbeddingConfig) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case "", "ollama":
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}), nil

	case "huggingface":
		return hfembed.NewEmbeddingService(hfembed.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Token:      cfg.Token,
			Dimensions: cfg.Dimensions,
		}), nil

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s",
			domain.ErrInvalidInput, cfg.Provider)
	}
}

// CreateAndValidateEmbeddingService creates an embedding service and
// validates connectivity.
func CreateAndValidateEmbeddingService(cfg file.EmbeddingConfig) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateDocumentStore creates the configured document store.
func CreateDocumentStore(cfg file.StoreConfig) (driven.DocumentStore, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return sqlite.NewStore(cfg.DataDir)

	case "supabase":
		return supabase.NewStore(supabase.Config{
			URL:   cfg.SupabaseURL,
			Key:   cfg.SupabaseKey,
			Table: cfg.Table,
		})

	case "memory":
		return memory.NewStore(), nil

	default:
		return nil, fmt.Errorf("%w: unsupported store backend: %s",
			domain.ErrInvalidInput, cfg.Backend)
	}
}

// CreateGenerationBackends creates the cascade backends in the
// configured order. Backends with missing credentials are skipped so a
// partially configured machine still gets a working cascade; an empty
// result is an error.
func CreateGenerationBackends(cfg file.BackendsConfig) ([]services.CascadeBackend, []string, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	var (
		backends []services.CascadeBackend
		warnings []string
	)
	for _, name := range cfg.Order {
		backend, err := createBackend(name, cfg)
		if err != nil {
			return nil, nil, err
		}
		if backend == nil {
			warnings = append(warnings, fmt.Sprintf("backend %q skipped: no API key configured", name))
			continue
		}
		backends = append(backends, services.CascadeBackend{
			Backend: backend,
			Timeout: timeout,
		})
	}

	if len(backends) == 0 {
		return nil, warnings, fmt.Errorf("%w: no generation backends configured",
			domain.ErrInvalidInput)
	}
	return backends, warnings, nil
}

// createBackend creates one named backend. A nil backend with nil error
// means the backend is unconfigured and should be skipped.
func createBackend(name string, cfg file.BackendsConfig) (driven.GenerationBackend, error) {
	switch name {
	case "ollama":
		return ollamagen.NewBackend(ollamagen.Config{
			BaseURL: cfg.Ollama.BaseURL,
			Model:   cfg.Ollama.Model,
		}), nil

	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, nil
		}
		return geminigen.NewBackend(geminigen.Config{
			APIKey:            cfg.Gemini.APIKey,
			Model:             cfg.Gemini.Model,
			RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
		})

	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, nil
		}
		return openaigen.NewBackend(openaigen.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		})

	case "local":
		return localgen.NewBackend(), nil

	default:
		return nil, fmt.Errorf("%w: unsupported generation backend: %s",
			domain.ErrInvalidInput, name)
	}
}
