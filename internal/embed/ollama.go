package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
)

const (
	// DefaultOllamaHost is the default Ollama API endpoint.
	DefaultOllamaHost = "http://localhost:11434"

	// DefaultOllamaModel is the sentence-transformers MiniLM model as packaged by Ollama.
	DefaultOllamaModel = "all-minilm"

	ollamaPoolSize = 4
)

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	// Host is the Ollama API endpoint (default: http://localhost:11434).
	Host string

	// Model is the embedding model (default: all-minilm).
	Model string

	// Dimensions is the expected embedding width. 0 detects it from the
	// first embedding at construction time.
	Dimensions int

	// BatchSize is the number of texts per /api/embed call (default: 32).
	BatchSize int

	// Timeout bounds each request (default: 60s).
	Timeout time.Duration

	// Retry controls retries of transient failures.
	Retry wgerrors.RetryConfig

	// SkipHealthCheck skips the model lookup at construction (tests).
	SkipHealthCheck bool
}

// DefaultOllamaConfig returns defaults for a local Ollama.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:       DefaultOllamaHost,
		Model:      DefaultOllamaModel,
		Dimensions: DefaultDimensions,
		BatchSize:  DefaultBatchSize,
		Timeout:    DefaultTimeout,
		Retry:      wgerrors.DefaultRetryConfig(),
	}
}

// ollamaEmbedRequest is the /api/embed request body.
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResponse is the /api/embed response body.
type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// ollamaTagsResponse is the /api/tags response body.
type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// OllamaEmbedder generates embeddings using Ollama's HTTP API.
type OllamaEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    OllamaConfig
	modelName string
	dims      int

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder creates an Ollama embedder. Unless SkipHealthCheck is set
// it resolves the model against /api/tags and, when Dimensions is 0, embeds a
// probe text to learn the width.
func NewOllamaEmbedder(ctx context.Context, cfg OllamaConfig) (*OllamaEmbedder, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = MaxBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry = wgerrors.DefaultRetryConfig()
	}

	// Per-request deadlines come from context.WithTimeout, so the client
	// itself has no Timeout.
	transport := &http.Transport{
		MaxIdleConns:        ollamaPoolSize,
		MaxIdleConnsPerHost: ollamaPoolSize,
		MaxConnsPerHost:     ollamaPoolSize * 2,
		IdleConnTimeout:     10 * time.Second,
	}

	e := &OllamaEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
		modelName: cfg.Model,
		dims:      cfg.Dimensions,
	}

	if !cfg.SkipHealthCheck {
		name, err := e.findModel(ctx)
		if err != nil {
			transport.CloseIdleConnections()
			return nil, err
		}
		e.modelName = name

		if e.dims == 0 {
			vecs, err := e.embedOnce(ctx, []string{"dimension probe"})
			if err != nil {
				transport.CloseIdleConnections()
				return nil, fmt.Errorf("failed to detect embedding dimensions: %w", err)
			}
			e.dims = len(vecs[0])
		}
	}
	if e.dims == 0 {
		e.dims = DefaultDimensions
	}

	slog.Debug("ollama embedder ready",
		slog.String("host", cfg.Host),
		slog.String("model", e.modelName),
		slog.Int("dimensions", e.dims))
	return e, nil
}

// findModel matches the configured model against installed models, with or
// without a tag suffix.
func (e *OllamaEmbedder) findModel(ctx context.Context) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, e.config.Host+"/api/tags", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return "", wgerrors.New(wgerrors.ErrCodeEmbedderUnavailable, "cannot reach Ollama", err).
			WithDetail("host", e.config.Host).
			WithSuggestion("Start Ollama with 'ollama serve' or set embeddings.provider to 'static'")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", wgerrors.New(wgerrors.ErrCodeEmbedderUnavailable,
			fmt.Sprintf("ollama /api/tags returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return "", fmt.Errorf("failed to decode model list: %w", err)
	}

	want := strings.ToLower(e.config.Model)
	for _, m := range tags.Models {
		name := strings.ToLower(m.Name)
		base, _, _ := strings.Cut(name, ":")
		if name == want || base == want {
			return m.Name, nil
		}
	}
	return "", wgerrors.New(wgerrors.ErrCodeEmbedderUnavailable,
		fmt.Sprintf("embedding model %q is not installed", e.config.Model), nil).
		WithSuggestion(fmt.Sprintf("Run 'ollama pull %s'", e.config.Model))
}

// Embed implements Embedder.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Embedder. Whitespace-only texts get a zero vector
// without a request.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}

	results := make([][]float32, len(texts))
	var idx []int
	var pending []string
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			results[i] = make([]float32, e.dims)
			continue
		}
		idx = append(idx, i)
		pending = append(pending, t)
	}

	for start := 0; start < len(pending); start += e.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+e.config.BatchSize, len(pending))

		vecs, err := wgerrors.RetryWithResult(ctx, e.config.Retry, func() ([][]float32, error) {
			return e.embedOnce(ctx, pending[start:end])
		})
		if err != nil {
			return nil, err
		}
		for j, v := range vecs {
			if len(v) != e.dims {
				return nil, wgerrors.New(wgerrors.ErrCodeDimensionMismatch,
					fmt.Sprintf("model %s returned %d dimensions, expected %d", e.modelName, len(v), e.dims), nil)
			}
			results[idx[start+j]] = v
		}
	}
	return results, nil
}

func (e *OllamaEmbedder) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	body, err := json.Marshal(ollamaEmbedRequest{Model: e.modelName, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.config.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, wgerrors.TransportError("ollama", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, statusError("ollama", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, wgerrors.New(wgerrors.ErrCodeEmbeddingFailed, "failed to decode ollama response", err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, wgerrors.New(wgerrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("ollama returned %d embeddings for %d inputs", len(out.Embeddings), len(texts)), nil)
	}

	vecs := make([][]float32, len(out.Embeddings))
	for i, emb := range out.Embeddings {
		v := make([]float32, len(emb))
		for j, x := range emb {
			v[j] = float32(x)
		}
		vecs[i] = v
	}
	return vecs, nil
}

// statusError maps a non-200 response: 429 and 5xx are retryable transport
// failures, anything else is a permanent embedding failure.
func statusError(service string, status int, msg string) error {
	if status == http.StatusTooManyRequests || status >= 500 {
		return wgerrors.New(wgerrors.ErrCodeTransportFailure,
			fmt.Sprintf("%s returned status %d: %s", service, status, msg), nil).
			WithDetail("service", service)
	}
	return wgerrors.New(wgerrors.ErrCodeEmbeddingFailed,
		fmt.Sprintf("%s returned status %d: %s", service, status, msg), nil).
		WithDetail("service", service)
}

// Dimensions implements Embedder.
func (e *OllamaEmbedder) Dimensions() int { return e.dims }

// ModelName implements Embedder.
func (e *OllamaEmbedder) ModelName() string { return e.modelName }

// Available implements Embedder.
func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	_, err := e.findModel(ctx)
	return err == nil
}

// Close implements Embedder.
func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.transport.CloseIdleConnections()
	return nil
}
