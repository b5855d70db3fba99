package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/wikigraph/internal/config"
	"github.com/Aman-CERP/wikigraph/internal/embed"
	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
	"github.com/Aman-CERP/wikigraph/internal/index"
	"github.com/Aman-CERP/wikigraph/internal/lexical"
	"github.com/Aman-CERP/wikigraph/internal/output"
	"github.com/Aman-CERP/wikigraph/internal/store"
)

func newVerifyCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the indexes against the paragraph store",
		Long: `Compare the vector index with the Neo4j paragraph store and the query
embedder: paragraphs without vectors, vectors without paragraphs, and
dimension or model mismatches are errors. A BM25 model built from a
different corpus is reported as a warning, since queries rebuild it.

Exits with status 1 when an error is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd.Context(), cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runVerify(ctx context.Context, cmd *cobra.Command, format string) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	vectors, err := store.OpenHNSWStore(cfg.VectorIndexPath())
	if err != nil {
		return err
	}
	defer func() { _ = vectors.Close() }()

	paragraphs, err := newParagraphStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = paragraphs.Close(ctx) }()

	checker := index.NewConsistencyChecker(paragraphs, vectors)
	vc := vectors.Config()
	checker.Index = index.EmbedderInfo{Model: vc.Model, Dimensions: vc.Dimensions}

	// An unreachable embedder only skips the model comparison.
	if embedder, err := embed.New(ctx, cfg.Embeddings); err != nil {
		slog.Warn("embedder unavailable, skipping model check", slog.String("error", err.Error()))
		out.Warning("Embedder unavailable; model and dimension checks skipped")
	} else {
		checker.Embedder = index.EmbedderInfo{Model: embedder.ModelName(), Dimensions: embedder.Dimensions()}
		_ = embedder.Close()
	}

	if cfg.Lexical.Backend == config.LexicalOkapi {
		checker.LexicalModelPath = cfg.LexicalModelPath()
		checker.LexicalConfig = lexical.ConfigFrom(cfg.Lexical)
	}

	res, err := checker.Check(ctx)
	if err != nil {
		return err
	}

	if format == "json" {
		if err := out.JSON(res); err != nil {
			return err
		}
	} else {
		printCheck(out, res)
	}

	if !res.Consistent() {
		return wgerrors.New(wgerrors.ErrCodeSchemaMismatch, "vector index and paragraph store disagree", nil).
			WithSuggestion("Run 'wikigraph setup' to rebuild the indexes")
	}
	return nil
}

func printCheck(out *output.Writer, res *index.CheckResult) {
	out.Statusf("🔎", "%d paragraphs, %d vectors", res.Paragraphs, res.Vectors)
	for _, i := range res.Inconsistencies {
		msg := i.Kind + ": " + i.Details
		if i.ParagraphID != "" {
			msg = i.Kind + " " + i.ParagraphID + ": " + i.Details
		}
		if i.Type.Warning() {
			out.Warning(msg)
		} else {
			out.Error(msg)
		}
	}
	if res.Consistent() {
		out.Success("Indexes are consistent with the paragraph store")
	}
}
