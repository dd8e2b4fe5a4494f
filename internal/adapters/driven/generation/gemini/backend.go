// Package gemini provides a generation backend using the Gemini
// generateContent REST API. Free-tier Gemini keys are rate limited per
// minute, so requests pass through a local limiter before hitting the
// network.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/migratio-labs/ragserve/internal/core/domain"
	"github.com/migratio-labs/ragserve/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.GenerationBackend = (*Backend)(nil)

// Default configuration values.
const (
	DefaultBaseURL           = "https://generativelanguage.googleapis.com"
	DefaultModel             = "gemini-2.0-flash"
	DefaultTimeout           = 60 * time.Second
	DefaultRequestsPerMinute = 15
)

// Config holds configuration for the Gemini backend.
type Config struct {
	// APIKey is required.
	APIKey string

	// BaseURL is the API base URL (default: generativelanguage.googleapis.com).
	BaseURL string

	// Model is the model name (default: gemini-2.0-flash).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// RequestsPerMinute caps the local request rate (default: 15, the
	// free-tier limit).
	RequestsPerMinute int
}

// Backend generates completions through the Gemini REST API.
type Backend struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
	apiKey  string
	model   string
}

// generateRequest is the generateContent request format.
type generateRequest struct {
	SystemInstruction *content  `json:"system_instruction,omitempty"`
	Contents          []content `json:"contents"`
}

// content is one conversation turn.
type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

// part is a text fragment within a turn.
type part struct {
	Text string `json:"text"`
}

// generateResponse is the generateContent response format.
type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// NewBackend creates a new Gemini generation backend.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is required", domain.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}

	return &Backend{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Name identifies the backend.
func (b *Backend) Name() string {
	return "gemini"
}

// Generate produces a completion for the conversation. System messages
// are mapped to the system_instruction field; assistant turns use the
// "model" role Gemini expects.
func (b *Backend) Generate(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limit wait: %w", domain.ErrBackendFailure, err)
	}

	reqBody := buildRequest(messages)
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %w", domain.ErrBackendFailure, err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", b.baseURL, b.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %w", domain.ErrBackendFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: send request: %w", domain.ErrBackendFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", domain.ErrBackendFailure, resp.StatusCode, body)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", domain.ErrBackendFailure, err)
	}
	if len(genResp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", domain.ErrBackendFailure)
	}

	var sb strings.Builder
	for _, p := range genResp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

// Ping validates the API accepts the configured key.
func (b *Backend) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/v1beta/models/%s", b.baseURL, b.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}
	req.Header.Set("x-goog-api-key", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("gemini API unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gemini API returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (b *Backend) Close() error {
	return nil
}

// buildRequest maps the conversation to the Gemini wire format.
func buildRequest(messages []domain.ChatMessage) generateRequest {
	var req generateRequest
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			req.SystemInstruction = &content{
				Parts: []part{{Text: m.Content}},
			}
		case domain.RoleAssistant:
			req.Contents = append(req.Contents, content{
				Role:  "model",
				Parts: []part{{Text: m.Content}},
			})
		default:
			req.Contents = append(req.Contents, content{
				Role:  "user",
				Parts: []part{{Text: m.Content}},
			})
		}
	}
	return req
}
