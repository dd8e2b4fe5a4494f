// Package file provides TOML-based configuration loading.
//
// Configuration is read from a TOML file (default ~/.ragserve/config.toml),
// then overlaid with RAGSERVE_* environment variables. Secrets (store keys,
// backend API keys) should come from the environment rather than the file.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full application configuration.
type Config struct {
	Store     StoreConfig     `toml:"store"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Backends  BackendsConfig  `toml:"backends"`
	Ingest    IngestConfig    `toml:"ingest"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Chat      ChatConfig      `toml:"chat"`
	Server    ServerConfig    `toml:"server"`
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	// Backend is one of: sqlite, supabase, memory (default: sqlite).
	Backend string `toml:"backend"`

	// DataDir is the SQLite data directory (default: ~/.ragserve/data).
	DataDir string `toml:"data_dir"`

	// SupabaseURL is the Supabase project URL.
	SupabaseURL string `toml:"supabase_url"`

	// SupabaseKey is normally set via RAGSERVE_SUPABASE_KEY.
	SupabaseKey string `toml:"supabase_key"`

	// Table is the documents table name.
	Table string `toml:"table"`
}

// EmbeddingConfig selects and configures the embedding service.
type EmbeddingConfig struct {
	// Provider is one of: ollama, huggingface (default: ollama).
	Provider string `toml:"provider"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `toml:"base_url"`

	// Model is the embedding model name.
	Model string `toml:"model"`

	// Token is normally set via RAGSERVE_HF_TOKEN.
	Token string `toml:"token"`

	// Dimensions is the embedding vector size (default: 384).
	Dimensions int `toml:"dimensions"`
}

// BackendsConfig configures the generation cascade.
type BackendsConfig struct {
	// Order lists backends in cascade priority, e.g. ["ollama", "gemini",
	// "local"]. Unknown names are rejected at wiring time.
	Order []string `toml:"order"`

	// TimeoutSeconds is the per-backend deadline (default: 60).
	TimeoutSeconds int `toml:"timeout_seconds"`

	// CacheTTLSeconds is the response cache TTL; 0 disables caching.
	CacheTTLSeconds int `toml:"cache_ttl_seconds"`

	Ollama OllamaBackendConfig `toml:"ollama"`
	Gemini GeminiBackendConfig `toml:"gemini"`
	OpenAI OpenAIBackendConfig `toml:"openai"`
}

// OllamaBackendConfig configures the Ollama chat backend.
type OllamaBackendConfig struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// GeminiBackendConfig configures the Gemini backend.
type GeminiBackendConfig struct {
	// APIKey is normally set via RAGSERVE_GEMINI_API_KEY.
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`

	// RequestsPerMinute caps the local request rate.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// OpenAIBackendConfig configures the OpenAI-compatible backend.
type OpenAIBackendConfig struct {
	// APIKey is normally set via RAGSERVE_OPENAI_API_KEY.
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// IngestConfig configures the ingestion pipeline.
type IngestConfig struct {
	// ChunkSize is the chunk window in characters (default: 1000).
	ChunkSize int `toml:"chunk_size"`

	// Overlap is the window overlap in characters (default: 200).
	Overlap int `toml:"overlap"`

	// Workers is the per-file embedding concurrency (default: 4).
	Workers int `toml:"workers"`
}

// RetrievalConfig configures similarity search defaults.
type RetrievalConfig struct {
	// Limit is the default result count (default: 5).
	Limit int `toml:"limit"`

	// Threshold is the default similarity cutoff (default: 0.7).
	Threshold float64 `toml:"threshold"`
}

// ChatConfig configures answer generation.
type ChatConfig struct {
	// ContextBudget caps retrieved context in characters (default: 4000).
	ContextBudget int `toml:"context_budget"`

	// SystemPrompt overrides the built-in system prompt.
	SystemPrompt string `toml:"system_prompt"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address (default: :8080).
	Addr string `toml:"addr"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend: "sqlite",
		},
		Embedding: EmbeddingConfig{
			Provider: "ollama",
		},
		Backends: BackendsConfig{
			Order:           []string{"ollama", "local"},
			TimeoutSeconds:  60,
			CacheTTLSeconds: 300,
		},
		Ingest: IngestConfig{
			ChunkSize: 1000,
			Overlap:   200,
			Workers:   4,
		},
		Retrieval: RetrievalConfig{
			Limit:     5,
			Threshold: 0.7,
		},
		Chat: ChatConfig{
			ContextBudget: 4000,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".ragserve", "config.toml"), nil
}

// Load reads configuration from path, falling back to defaults when the
// file does not exist, then applies environment overrides. If path is
// empty the default location is used.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		// No file is fine, defaults plus environment apply.
	} else if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

// Save writes the configuration to path with restricted permissions.
func Save(cfg Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// applyEnv overlays RAGSERVE_* environment variables on the config.
func applyEnv(cfg *Config) {
	setString(&cfg.Store.Backend, "RAGSERVE_STORE_BACKEND")
	setString(&cfg.Store.DataDir, "RAGSERVE_DATA_DIR")
	setString(&cfg.Store.SupabaseURL, "RAGSERVE_SUPABASE_URL")
	setString(&cfg.Store.SupabaseKey, "RAGSERVE_SUPABASE_KEY")

	setString(&cfg.Embedding.Provider, "RAGSERVE_EMBEDDING_PROVIDER")
	setString(&cfg.Embedding.BaseURL, "RAGSERVE_EMBEDDING_BASE_URL")
	setString(&cfg.Embedding.Model, "RAGSERVE_EMBEDDING_MODEL")
	setString(&cfg.Embedding.Token, "RAGSERVE_HF_TOKEN")

	setString(&cfg.Backends.Ollama.BaseURL, "RAGSERVE_OLLAMA_BASE_URL")
	setString(&cfg.Backends.Ollama.Model, "RAGSERVE_OLLAMA_MODEL")
	setString(&cfg.Backends.Gemini.APIKey, "RAGSERVE_GEMINI_API_KEY")
	setString(&cfg.Backends.OpenAI.APIKey, "RAGSERVE_OPENAI_API_KEY")
	setString(&cfg.Backends.OpenAI.BaseURL, "RAGSERVE_OPENAI_BASE_URL")

	setString(&cfg.Server.Addr, "RAGSERVE_SERVER_ADDR")

	setInt(&cfg.Retrieval.Limit, "RAGSERVE_RETRIEVAL_LIMIT")
	setFloat(&cfg.Retrieval.Threshold, "RAGSERVE_RETRIEVAL_THRESHOLD")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
