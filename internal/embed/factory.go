package embed

import (
	"context"
	"fmt"

	"github.com/Aman-CERP/wikigraph/internal/config"
)

// New builds the embedder selected by cfg.Provider.
func New(ctx context.Context, cfg config.EmbeddingsConfig) (Embedder, error) {
	timeout := config.DurationOr(cfg.Timeout, DefaultTimeout)

	switch cfg.Provider {
	case config.ProviderOllama, "":
		return NewOllamaEmbedder(ctx, OllamaConfig{
			Host:       cfg.OllamaHost,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
			Timeout:    timeout,
		})
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
			Timeout:    timeout,
		})
	case config.ProviderStatic:
		return NewStaticEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q (supported: ollama, openai, static)", cfg.Provider)
	}
}

// NewCached is New wrapped in a CachedEmbedder when cfg.CacheSize is positive.
func NewCached(ctx context.Context, cfg config.EmbeddingsConfig) (Embedder, error) {
	e, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(e, cfg.CacheSize), nil
	}
	return e, nil
}
