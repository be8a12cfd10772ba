// Package openai implements embedding.Provider for OpenAI-compatible APIs
// (OpenAI, Azure proxies, vLLM, Ollama, etc.).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/efebarandurmaz/docqa/internal/embedding"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client calls the /embeddings endpoint.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	dim     int
	http    *http.Client
}

// New creates an OpenAI-compatible provider.
func New(apiKey, model, baseURL string, dim int, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		dim:     dim,
		http:    &http.Client{Timeout: timeout},
	}
}

// Constructor builds a client from embedding config. A missing API key
// yields a Disabled provider.
func Constructor(cfg embedding.Config) (embedding.Provider, error) {
	if cfg.APIKey == "" {
		return embedding.Disabled{Dim: cfg.Dimension, Reason: "no API key configured"}, nil
	}
	return New(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Dimension, cfg.Timeout), nil
}

// Register adds the "openai" constructor to f.
func Register(f *embedding.Factory) {
	f.Register("openai", Constructor)
}

func (c *Client) Name() string   { return "openai" }
func (c *Client) Dimension() int { return c.dim }

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body := map[string]any{
		"model": c.model,
		"input": text,
	}
	// Only the text-embedding-3 family accepts a requested size.
	if c.dim > 0 && strings.HasPrefix(c.model, "text-embedding-3") {
		body["dimensions"] = c.dim
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", embedding.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", embedding.ErrRequestFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: openai embed: %s: %s", embedding.ErrRequestFailed, resp.Status, snippet(respBody))
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", embedding.ErrRequestFailed, err)
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", embedding.ErrRequestFailed)
	}
	vec := result.Data[0].Embedding
	if c.dim > 0 && len(vec) != c.dim {
		return nil, fmt.Errorf("%w: got %d dimensions, want %d", embedding.ErrRequestFailed, len(vec), c.dim)
	}
	return vec, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	return s
}
