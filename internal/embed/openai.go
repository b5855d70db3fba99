package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIConfig configures an OpenAI-compatible embedding endpoint.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // empty uses the public OpenAI endpoint
	Model   string

	// Dimensions requests shortened embeddings from models that support it.
	// It is also the width every response is checked against.
	Dimensions int

	BatchSize int
	Timeout   time.Duration
	Retry     wgerrors.RetryConfig
}

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	config OpenAIConfig

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an OpenAI embedder. The API key is required.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, wgerrors.New(wgerrors.ErrCodeCredentialsMissing, "OpenAI API key is not set", nil).
			WithSuggestion("Export WIKIGRAPH_OPENAI_API_KEY or OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
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

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	slog.Debug("openai embedder ready",
		slog.String("model", cfg.Model),
		slog.Int("dimensions", cfg.Dimensions))

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
	}, nil
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Embedder. Whitespace-only texts get a zero vector,
// since the API rejects empty input.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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
			results[i] = make([]float32, e.config.Dimensions)
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
			results[idx[start+j]] = v
		}
	}
	return results, nil
}

func (e *OpenAIEmbedder) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          openai.EmbeddingModel(e.config.Model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.config.Dimensions > 0 {
		req.Dimensions = e.config.Dimensions
	}

	resp, err := e.client.CreateEmbeddings(reqCtx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, wgerrors.New(wgerrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("openai returned %d embeddings for %d inputs", len(resp.Data), len(texts)), nil)
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, wgerrors.New(wgerrors.ErrCodeEmbeddingFailed,
				fmt.Sprintf("openai returned out-of-range index %d", d.Index), nil)
		}
		if e.config.Dimensions > 0 && len(d.Embedding) != e.config.Dimensions {
			return nil, wgerrors.New(wgerrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("model %s returned %d dimensions, expected %d", e.config.Model, len(d.Embedding), e.config.Dimensions), nil)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

// classifyOpenAIError maps go-openai errors onto the error taxonomy.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusError("openai", apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == 0 {
			return wgerrors.TransportError("openai", err)
		}
		return statusError("openai", reqErr.HTTPStatusCode, strings.TrimSpace(string(reqErr.Body)))
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return wgerrors.New(wgerrors.ErrCodeTimeout, "openai request timed out", err).
			WithDetail("service", "openai")
	}
	return wgerrors.TransportError("openai", err)
}

// Dimensions implements Embedder.
func (e *OpenAIEmbedder) Dimensions() int { return e.config.Dimensions }

// ModelName implements Embedder.
func (e *OpenAIEmbedder) ModelName() string { return e.config.Model }

// Available implements Embedder by listing models.
func (e *OpenAIEmbedder) Available(ctx context.Context) bool {
	_, err := e.client.ListModels(ctx)
	return err == nil
}

// Close implements Embedder.
func (e *OpenAIEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
