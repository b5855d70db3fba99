package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/wikigraph/internal/logging"
	"github.com/Aman-CERP/wikigraph/internal/mcp"
	"github.com/Aman-CERP/wikigraph/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start a Model Context Protocol server exposing the query, hybrid_query
and corpus_stats tools to AI clients.

Stdout carries the JSON-RPC stream, so logs go to
~/.wikigraph/logs/serve.log (and stderr with --debug).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport: stdio")

	return cmd
}

func runServe(ctx context.Context, transport string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !debugMode && loggingCleanup == nil {
		cleanup, err := logging.SetupServerMode(cfg.Logging.Level)
		if err != nil {
			return err
		}
		loggingCleanup = cleanup
	}

	stack, err := openQueryStack(ctx, cfg)
	if err != nil {
		slog.Error("failed to open query stack", slog.String("error", err.Error()))
		return err
	}
	defer stack.Close(ctx)

	srv, err := mcp.NewServer(mcp.Dependencies{
		Engine:     stack.engine,
		Paragraphs: stack.paragraphs,
		Vectors:    stack.vectors,
		Embedder:   stack.embedder,
		Metrics:    telemetry.NewQueryMetrics(telemetry.Config{}),
	})
	if err != nil {
		return err
	}
	return srv.Serve(ctx, transport)
}
