package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/wikigraph/internal/config"
	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
	"github.com/Aman-CERP/wikigraph/internal/output"
	"github.com/Aman-CERP/wikigraph/internal/search"
)

// queryOptions holds CLI flags for query and hybrid_query.
type queryOptions struct {
	limit          int
	format         string // "text", "json"
	vectorWeight   float64
	lexicalWeight  float64
	normalize      string
	lexicalBackend string
}

// queryResponse is the --format json document.
type queryResponse struct {
	Query   string       `json:"query"`
	Mode    string       `json:"mode"`
	Results []search.Hit `json:"results"`
}

func newQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Rank paragraphs by vector similarity",
		Long: `Embed the query and return the nearest paragraphs from the vector index,
closest first, with their L2 distance.

Examples:
  wikigraph query "Mongol conquest of China"
  wikigraph query "Temujin" -n 3 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), cmd, strings.Join(args, " "), opts, false)
		},
	}

	addQueryFlags(cmd, &opts, false)
	return cmd
}

func newHybridQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:     "hybrid_query <text>",
		Aliases: []string{"hybrid-query", "hq"},
		Short:   "Rank paragraphs by vector ranks fused with BM25",
		Long: `Score every paragraph in the corpus by the Reciprocal Rank Fusion of its
vector rank plus its BM25 score, and return the best ones.

Examples:
  wikigraph hybrid_query "who was Genghis Khan's father"
  wikigraph hybrid_query "Naiman khanate" --normalize minmax
  wikigraph hybrid_query "Yesugei" --lexical-weight 0.5 --lexical-backend bleve`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), cmd, strings.Join(args, " "), opts, true)
		},
	}

	addQueryFlags(cmd, &opts, true)
	return cmd
}

func addQueryFlags(cmd *cobra.Command, opts *queryOptions, hybrid bool) {
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from search.default_limit)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	if !hybrid {
		return
	}
	cmd.Flags().Float64Var(&opts.vectorWeight, "vector-weight", 1.0, "Weight of the vector RRF score")
	cmd.Flags().Float64Var(&opts.lexicalWeight, "lexical-weight", 1.0, "Weight of the BM25 score")
	cmd.Flags().StringVar(&opts.normalize, "normalize", config.NormalizeNone, "Per-signal normalization before fusion: none, minmax")
	cmd.Flags().StringVar(&opts.lexicalBackend, "lexical-backend", config.LexicalOkapi, "BM25 backend: okapi, bleve, sqlite")
}

// applyQueryFlags overrides configuration with the flags the user set.
func applyQueryFlags(cmd *cobra.Command, cfg *config.Config, opts queryOptions) (int, error) {
	flags := cmd.Flags()
	if flags.Changed("vector-weight") {
		cfg.Search.VectorWeight = opts.vectorWeight
	}
	if flags.Changed("lexical-weight") {
		cfg.Search.LexicalWeight = opts.lexicalWeight
	}
	if flags.Changed("normalize") {
		cfg.Search.Normalization = opts.normalize
	}
	if flags.Changed("lexical-backend") {
		cfg.Lexical.Backend = opts.lexicalBackend
	}
	if err := cfg.Validate(); err != nil {
		return 0, err
	}

	limit := cfg.Search.DefaultLimit
	if flags.Changed("limit") {
		limit = opts.limit
	}
	return limit, nil
}

func runQuery(ctx context.Context, cmd *cobra.Command, text string, opts queryOptions, hybrid bool) error {
	out := output.New(cmd.OutOrStdout())

	if opts.format != "text" && opts.format != "json" {
		return wgerrors.ConfigError(fmt.Sprintf("unknown format %q (supported: text, json)", opts.format), nil)
	}

	err := func() error {
		// Rejected before any index file, embedder or Neo4j is touched.
		if strings.TrimSpace(text) == "" {
			return search.ErrEmptyQuery
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		limit, err := applyQueryFlags(cmd, cfg, opts)
		if err != nil {
			return err
		}

		stack, err := openQueryStack(ctx, cfg)
		if err != nil {
			return err
		}
		defer stack.Close(ctx)

		mode := "vector"
		start := time.Now()
		var hits []search.Hit
		if hybrid {
			mode = "hybrid"
			hits, err = stack.engine.HybridQuery(ctx, text, limit)
		} else {
			hits, err = stack.engine.Query(ctx, text, limit)
		}
		if err != nil {
			slog.LogAttrs(ctx, slog.LevelError, "query failed", wgerrors.FormatForLog(err)...)
			return err
		}
		slog.Info("query complete",
			slog.String("mode", mode),
			slog.Int("limit", limit),
			slog.Int("results", len(hits)),
			slog.Duration("duration", time.Since(start)))

		if opts.format == "json" {
			if hits == nil {
				hits = []search.Hit{}
			}
			return out.JSON(queryResponse{Query: text, Mode: mode, Results: hits})
		}
		printHits(out, text, hits, hybrid)
		return nil
	}()

	if err != nil && opts.format == "json" {
		if data, jerr := wgerrors.FormatJSON(err); jerr == nil {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		}
	}
	return err
}

func printHits(out *output.Writer, text string, hits []search.Hit, hybrid bool) {
	if len(hits) == 0 {
		out.Warning("No results")
		return
	}

	out.Header(fmt.Sprintf("Results for %q", text))
	out.Newline()
	for _, h := range hits {
		if hybrid {
			out.Result(h.Rank, h.ID, "score", h.Score, h.PageTitle, h.Content)
		} else {
			out.Result(h.Rank, h.ID, "distance", float64(h.Distance), h.PageTitle, h.Content)
		}
	}
}
