package lexical

import (
	"context"
	"fmt"

	"github.com/Aman-CERP/wikigraph/internal/config"
)

// Backend names.
const (
	BackendOkapi  = "okapi"
	BackendBleve  = "bleve"
	BackendSQLite = "sqlite"
)

// NewBuilder returns a Builder for backend. For okapi, a non-empty modelPath
// enables the persisted model with rebuild fallback.
func NewBuilder(backend string, cfg Config, modelPath string) (Builder, error) {
	switch backend {
	case BackendOkapi, "":
		return BuilderFunc(func(ctx context.Context, docs []Document) (Scorer, error) {
			if modelPath == "" {
				return BuildOkapi(docs, cfg), nil
			}
			m, _, err := LoadOrBuildOkapi(ctx, modelPath, docs, cfg)
			if err != nil {
				return nil, err
			}
			return m, nil
		}), nil
	case BackendBleve:
		return BuilderFunc(func(ctx context.Context, docs []Document) (Scorer, error) {
			return NewBleveScorer(ctx, docs, cfg)
		}), nil
	case BackendSQLite:
		return BuilderFunc(func(ctx context.Context, docs []Document) (Scorer, error) {
			return NewSQLiteScorer(ctx, docs, cfg)
		}), nil
	default:
		return nil, fmt.Errorf("unknown lexical backend %q (supported: okapi, bleve, sqlite)", backend)
	}
}

// ConfigFrom maps the lexical section of the configuration file. Zero BM25
// parameters fall back to the defaults.
func ConfigFrom(c config.LexicalConfig) Config {
	cfg := DefaultConfig()
	if c.K1 > 0 {
		cfg.K1 = c.K1
	}
	if c.B >= 0 && c.B <= 1 {
		cfg.B = c.B
	}
	if c.MinTokenLength > 0 {
		cfg.MinTokenLength = c.MinTokenLength
	}
	cfg.StopWords = c.StopWords
	return cfg
}
