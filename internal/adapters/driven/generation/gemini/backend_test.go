package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migratio-labs/ragserve/internal/core/domain"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) *Backend {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	backend, err := NewBackend(Config{
		APIKey:            "test-key",
		BaseURL:           server.URL,
		Model:             "test-model",
		RequestsPerMinute: 6000, // Effectively unlimited for tests.
	})
	require.NoError(t, err)
	return backend
}

func TestNewBackend_RequiresAPIKey(t *testing.T) {
	_, err := NewBackend(Config{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGenerate(t *testing.T) {
	var gotReq generateRequest
	var gotKey string
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		gotKey = r.Header.Get("x-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": "Asylum requires "}, {"text": "Form I-589."}},
				}},
			},
		})
	})

	answer, err := backend.Generate(context.Background(), []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "Be accurate."},
		{Role: domain.RoleUser, Content: "How do I file for asylum?"},
		{Role: domain.RoleAssistant, Content: "With a form."},
		{Role: domain.RoleUser, Content: "Which one?"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Asylum requires Form I-589.", answer)
	assert.Equal(t, "test-key", gotKey)

	// System messages map to system_instruction, assistant turns to the
	// "model" role.
	require.NotNil(t, gotReq.SystemInstruction)
	assert.Equal(t, "Be accurate.", gotReq.SystemInstruction.Parts[0].Text)
	require.Len(t, gotReq.Contents, 3)
	assert.Equal(t, "user", gotReq.Contents[0].Role)
	assert.Equal(t, "model", gotReq.Contents[1].Role)
	assert.Equal(t, "user", gotReq.Contents[2].Role)
}

func TestGenerate_NoCandidates(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"candidates": []}`))
	})

	_, err := backend.Generate(context.Background(), []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "hello"},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackendFailure)
}

func TestGenerate_RateLimited(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": "quota exceeded"}`, http.StatusTooManyRequests)
	})

	_, err := backend.Generate(context.Background(), []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "hello"},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackendFailure)
	assert.Contains(t, err.Error(), "429")
}

func TestName(t *testing.T) {
	backend, err := NewBackend(Config{APIKey: "k"})
	require.NoError(t, err)

	assert.Equal(t, "gemini", backend.Name())
}
