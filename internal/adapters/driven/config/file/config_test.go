package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, []string{"ollama", "local"}, cfg.Backends.Order)
	assert.Equal(t, 60, cfg.Backends.TimeoutSeconds)
	assert.Equal(t, 300, cfg.Backends.CacheTTLSeconds)
	assert.Equal(t, 1000, cfg.Ingest.ChunkSize)
	assert.Equal(t, 200, cfg.Ingest.Overlap)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Equal(t, 5, cfg.Retrieval.Limit)
	assert.Equal(t, 0.7, cfg.Retrieval.Threshold)
	assert.Equal(t, 4000, cfg.Chat.ContextBudget)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[store]
backend = "supabase"
supabase_url = "https://example.supabase.co"

[embedding]
provider = "huggingface"
model = "sentence-transformers/all-MiniLM-L6-v2"

[backends]
order = ["gemini", "ollama", "local"]
timeout_seconds = 30

[retrieval]
limit = 8
threshold = 0.6
`), 0600))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "supabase", cfg.Store.Backend)
	assert.Equal(t, "https://example.supabase.co", cfg.Store.SupabaseURL)
	assert.Equal(t, "huggingface", cfg.Embedding.Provider)
	assert.Equal(t, []string{"gemini", "ollama", "local"}, cfg.Backends.Order)
	assert.Equal(t, 30, cfg.Backends.TimeoutSeconds)
	assert.Equal(t, 8, cfg.Retrieval.Limit)
	assert.Equal(t, 0.6, cfg.Retrieval.Threshold)
	// Sections the file omits keep their defaults.
	assert.Equal(t, 1000, cfg.Ingest.ChunkSize)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("store = {{"), 0600))

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[store]
backend = "sqlite"
`), 0600))

	t.Setenv("RAGSERVE_STORE_BACKEND", "supabase")
	t.Setenv("RAGSERVE_SUPABASE_KEY", "secret-key")
	t.Setenv("RAGSERVE_GEMINI_API_KEY", "gem-key")
	t.Setenv("RAGSERVE_RETRIEVAL_LIMIT", "12")
	t.Setenv("RAGSERVE_RETRIEVAL_THRESHOLD", "0.55")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "supabase", cfg.Store.Backend)
	assert.Equal(t, "secret-key", cfg.Store.SupabaseKey)
	assert.Equal(t, "gem-key", cfg.Backends.Gemini.APIKey)
	assert.Equal(t, 12, cfg.Retrieval.Limit)
	assert.Equal(t, 0.55, cfg.Retrieval.Threshold)
}

func TestLoad_EnvIgnoresBadNumbers(t *testing.T) {
	t.Setenv("RAGSERVE_RETRIEVAL_LIMIT", "not-a-number")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))

	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Retrieval.Limit)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Store.Backend = "memory"
	cfg.Retrieval.Limit = 3
	require.NoError(t, Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", loaded.Store.Backend)
	assert.Equal(t, 3, loaded.Retrieval.Limit)
}
