package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Aman-CERP/wikigraph/internal/config"
	"github.com/Aman-CERP/wikigraph/internal/embed"
	"github.com/Aman-CERP/wikigraph/internal/graph"
	"github.com/Aman-CERP/wikigraph/internal/lexical"
	"github.com/Aman-CERP/wikigraph/internal/logging"
	"github.com/Aman-CERP/wikigraph/internal/search"
	"github.com/Aman-CERP/wikigraph/internal/store"
)

// loadConfig loads the effective configuration for the working directory.
// A configured log file replaces the quiet stderr logger unless --debug is set.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}

	if !debugMode && loggingCleanup == nil && cfg.Logging.FilePath != "" {
		cleanup, err := logging.SetupDefault(logging.Config{
			Level:     cfg.Logging.Level,
			FilePath:  cfg.Logging.FilePath,
			MaxSizeMB: cfg.Logging.MaxSizeMB,
			MaxFiles:  cfg.Logging.MaxFiles,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to setup logging: %w", err)
		}
		loggingCleanup = cleanup
	}
	return cfg, nil
}

// newParagraphStore connects to the Paragraph Store. Tests replace it with an
// in-memory store.
var newParagraphStore = func(ctx context.Context, cfg *config.Config) (graph.Store, error) {
	s, err := graph.NewNeo4jStore(graph.Neo4jConfig{
		URI:                   cfg.Neo4j.URI,
		Username:              cfg.Neo4j.Username,
		Password:              cfg.Neo4j.Password,
		Database:              cfg.Neo4j.Database,
		MaxConnectionPoolSize: cfg.Neo4j.MaxConnectionPoolSize,
		ConnectTimeout:        config.DurationOr(cfg.Neo4j.ConnectTimeout, 0),
	})
	if err != nil {
		return nil, err
	}
	if err := s.VerifyConnectivity(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	return s, nil
}

// queryStack holds everything a query needs. Close releases it in reverse
// order of construction.
type queryStack struct {
	paragraphs graph.Store
	vectors    *store.HNSWStore
	embedder   embed.Embedder
	engine     *search.Engine
}

// openQueryStack opens the persisted vector index, the query embedder and
// the Paragraph Store, and wires them into a search.Engine.
func openQueryStack(ctx context.Context, cfg *config.Config) (*queryStack, error) {
	vectors, err := store.OpenHNSWStore(cfg.VectorIndexPath())
	if err != nil {
		return nil, err
	}

	embedder, err := embed.NewCached(ctx, cfg.Embeddings)
	if err != nil {
		_ = vectors.Close()
		return nil, err
	}

	builder, err := lexical.NewBuilder(cfg.Lexical.Backend, lexical.ConfigFrom(cfg.Lexical), cfg.LexicalModelPath())
	if err != nil {
		_ = embedder.Close()
		_ = vectors.Close()
		return nil, err
	}

	paragraphs, err := newParagraphStore(ctx, cfg)
	if err != nil {
		_ = embedder.Close()
		_ = vectors.Close()
		return nil, err
	}

	slog.Debug("query stack ready",
		slog.String("index", cfg.VectorIndexPath()),
		slog.Int("vectors", vectors.Count()),
		slog.String("model", embedder.ModelName()),
		slog.String("lexical_backend", cfg.Lexical.Backend))

	return &queryStack{
		paragraphs: paragraphs,
		vectors:    vectors,
		embedder:   embedder,
		engine:     search.NewEngine(paragraphs, embedder, vectors, builder, search.FusionFrom(cfg.Search)),
	}, nil
}

// Close releases the stack.
func (q *queryStack) Close(ctx context.Context) {
	_ = q.engine.Close()
	_ = q.paragraphs.Close(ctx)
	_ = q.embedder.Close()
	_ = q.vectors.Close()
}
