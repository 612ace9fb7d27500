// Package backend is the HTTP conduit to the downstream model daemon
// (spec §4.1). Grounded on the teacher's internal/agent/providers/ollama.go:
// a thin *http.Client wrapper and the same error-mapping shape as
// providers.ProviderError. Streaming calls return the raw response body;
// NDJSON line scanning happens in the caller (internal/streamproxy).
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ollamageek/gateway/pkg/models"
)

// Config configures the Client.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// ClassificationRPS bounds classification/embedding call rate so heavy
	// background classification traffic cannot starve interactive chat
	// streaming (spec §5 backpressure; SPEC_FULL.md rate limiter).
	ClassificationRPS float64
}

// Client is a stateless (beyond connection pooling) HTTP conduit to the
// backend model daemon's native API.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
}

// New creates a Client with sensible defaults (spec §6 env defaults).
func New(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	rps := cfg.ClassificationRPS
	if rps <= 0 {
		rps = 4
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		userAgent: cfg.UserAgent,
		limiter:   rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
}

// NDJSONChunk is one decoded line of a streaming backend response.
type NDJSONChunk struct {
	Raw  json.RawMessage
	Done bool
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

func mapTransportError(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.NewError(models.KindBackendTimeout, "backend request timed out", err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return models.NewError(models.KindBackendUnavailable, "backend unavailable", err)
	}
	if strings.Contains(err.Error(), "connection refused") {
		return models.NewError(models.KindBackendUnavailable, "backend unavailable", err)
	}
	return models.NewError(models.KindTransportFailure, "transport failure", err)
}

func mapStatusError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	switch {
	case status == http.StatusBadRequest:
		return models.NewError(models.KindBadRequest, msg, nil)
	case status == http.StatusNotFound:
		return models.NewError(models.KindModelNotFound, msg, nil)
	case status >= 500:
		return models.NewError(models.KindUpstreamFailure, fmt.Sprintf("backend status %d: %s", status, msg), nil)
	default:
		return models.NewError(models.KindUpstreamFailure, fmt.Sprintf("backend status %d: %s", status, msg), nil)
	}
}

// do performs a non-streaming JSON round trip, decoding the response body
// into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return models.NewError(models.KindTransportFailure, "build request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return models.NewError(models.KindTransportFailure, "read response", err)
	}
	if resp.StatusCode >= 400 {
		return mapStatusError(resp.StatusCode, data)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return models.NewError(models.KindUpstreamFailure, "decode response", err)
		}
	}
	return nil
}

// Tags lists the models currently available in the backend's inventory.
func (c *Client) Tags(ctx context.Context) ([]ModelInfo, error) {
	var out tagsResponse
	if err := c.do(ctx, http.MethodGet, "/api/tags", nil, &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// Show returns model metadata.
func (c *Client) Show(ctx context.Context, model string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/show", map[string]string{"name": model}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Copy duplicates a model under a new name.
func (c *Client) Copy(ctx context.Context, source, destination string) error {
	return c.do(ctx, http.MethodPost, "/api/copy", map[string]string{"source": source, "destination": destination}, nil)
}

// Delete removes a model from the backend.
func (c *Client) Delete(ctx context.Context, model string) error {
	return c.do(ctx, http.MethodDelete, "/api/delete", map[string]string{"name": model}, nil)
}

// Pull downloads a model (non-streaming summary; callers wanting progress
// updates should proxy /api/pull directly — see the Streaming Proxy).
func (c *Client) Pull(ctx context.Context, model string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/pull", map[string]any{"name": model, "stream": false}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Push uploads a model.
func (c *Client) Push(ctx context.Context, model string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/push", map[string]any{"name": model, "stream": false}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Embeddings requests an embedding vector for the given input, rate
// limited independently of chat traffic (spec §5 backpressure).
func (c *Client) Embeddings(ctx context.Context, model, prompt string) ([]float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, models.NewError(models.KindBackendTimeout, "rate limiter wait cancelled", err)
	}
	var out embeddingsResponse
	if err := c.do(ctx, http.MethodPost, "/api/embeddings", map[string]string{"model": model, "prompt": prompt}, &out); err != nil {
		return nil, err
	}
	return out.Embedding, nil
}

// Generate performs a non-streaming generate call.
func (c *Client) Generate(ctx context.Context, payload map[string]any) (json.RawMessage, error) {
	payload["stream"] = false
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/generate", payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Chat performs a non-streaming chat call, returning the full decoded body.
func (c *Client) Chat(ctx context.Context, payload map[string]any) (json.RawMessage, error) {
	payload["stream"] = false
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/chat", payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StreamChat opens a streaming /api/chat call and returns the raw response
// body for the caller to scan NDJSON lines from (the Streaming Proxy owns
// line-level rewriting; this layer only opens the conduit and maps errors).
func (c *Client) StreamChat(ctx context.Context, payload map[string]any) (io.ReadCloser, error) {
	return c.openStream(ctx, "/api/chat", payload)
}

// StreamGenerate opens a streaming /api/generate call.
func (c *Client) StreamGenerate(ctx context.Context, payload map[string]any) (io.ReadCloser, error) {
	return c.openStream(ctx, "/api/generate", payload)
}

// StreamPull opens a streaming /api/pull call (progress events).
func (c *Client) StreamPull(ctx context.Context, payload map[string]any) (io.ReadCloser, error) {
	return c.openStream(ctx, "/api/pull", payload)
}

func (c *Client) openStream(ctx context.Context, path string, payload map[string]any) (io.ReadCloser, error) {
	payload["stream"] = true
	req, err := c.newRequest(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, models.NewError(models.KindTransportFailure, "build request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		resp.Body.Close()
		return nil, mapStatusError(resp.StatusCode, data)
	}
	return resp.Body, nil
}

// ModelInfo describes one backend model inventory entry.
type ModelInfo struct {
	Name       string `json:"name"`
	Model      string `json:"model"`
	ModifiedAt string `json:"modified_at,omitempty"`
	Size       int64  `json:"size,omitempty"`
}

type tagsResponse struct {
	Models []ModelInfo `json:"models"`
}

type embeddingsResponse struct {
	Embedding []float64 `json:"embedding"`
}
