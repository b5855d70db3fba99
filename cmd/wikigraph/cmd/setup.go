package cmd

import (
	"context"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/wikigraph/internal/embed"
	"github.com/Aman-CERP/wikigraph/internal/index"
	"github.com/Aman-CERP/wikigraph/internal/output"
)

func newSetupCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Load the scraped dataset into Neo4j and build the indexes",
		Long: `Chunk the scraped articles into paragraphs, merge them into the Neo4j
paragraph store, embed every stored paragraph into the HNSW vector index and
build the BM25 model. Running setup again is safe: existing paragraphs are
kept and both indexes are rebuilt from the store.

Examples:
  wikigraph setup
  wikigraph setup --input data/wikipedia_content.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetup(cmd.Context(), cmd, input)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Dataset JSON (default data_dir/wikipedia_content.json)")

	return cmd
}

func runSetup(ctx context.Context, cmd *cobra.Command, input string) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	paragraphs, err := newParagraphStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = paragraphs.Close(ctx) }()

	embedder, err := embed.New(ctx, cfg.Embeddings)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	// Embed workers report concurrently.
	var mu sync.Mutex
	runner, err := index.NewRunner(index.RunnerDependencies{
		Config:     cfg,
		Paragraphs: paragraphs,
		Embedder:   embedder,
		Progress: func(ev index.ProgressEvent) {
			mu.Lock()
			defer mu.Unlock()
			out.Progress(ev.Current, ev.Total, string(ev.Stage))
		},
	})
	if err != nil {
		return err
	}

	out.Statusf("📚", "Setting up from %s", datasetOr(input, cfg.DatasetPath()))
	res, err := runner.Setup(ctx, index.SetupOptions{DatasetPath: input})
	if err != nil {
		return err
	}

	out.Newline()
	out.Successf("Setup complete in %s", res.Duration.Round(msRound))
	out.Statusf("", "Pages:      %d", res.Pages)
	out.Statusf("", "Paragraphs: %d chunked, %d in store", res.Paragraphs, res.Stored)
	out.Statusf("", "Vectors:    %d (%s, %d dims)", res.Vectors, res.Model, res.Dimensions)
	out.Statusf("", "Stages:     chunk %s, store %s, embed %s, vector %s, lexical %s",
		res.Stages.Chunk.Round(msRound), res.Stages.Store.Round(msRound), res.Stages.Embed.Round(msRound),
		res.Stages.Vector.Round(msRound), res.Stages.Lexical.Round(msRound))
	return nil
}

func datasetOr(path, def string) string {
	if path != "" {
		return path
	}
	return def
}
