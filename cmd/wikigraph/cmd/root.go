// Package cmd provides the CLI commands for wikigraph.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
	"github.com/Aman-CERP/wikigraph/internal/logging"
	"github.com/Aman-CERP/wikigraph/internal/profiling"
	"github.com/Aman-CERP/wikigraph/pkg/version"
)

// Profiling flags
var (
	profileCPU     string
	profileMem     string
	profileTrace   string
	profileSession *profiling.Session
)

// Debug logging flag
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the wikigraph CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wikigraph",
		Short: "Hybrid search over Wikipedia paragraphs",
		Long: `wikigraph scrapes Wikipedia articles, stores their paragraphs in Neo4j,
embeds them into an HNSW vector index and answers queries with vector
search or a hybrid of vector ranks and BM25 scores fused by Reciprocal
Rank Fusion.

Typical flow:
  wikigraph scrape
  wikigraph setup
  wikigraph hybrid_query "who was Genghis Khan's father"`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("wikigraph version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to stderr and ~/.wikigraph/logs/")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newSetupCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newHybridQueryCmd())
	cmd.AddCommand(newCleanupCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging installs the logger and starts any requested profiles.
func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if debugMode {
		cleanup, err := logging.SetupDefault(logging.DebugConfig())
		if err != nil {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		loggingCleanup = cleanup
		slog.Debug("Debug logging enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	} else {
		logging.SetupQuiet()
	}

	opts := profiling.Options{CPU: profileCPU, Heap: profileMem, Trace: profileTrace}
	if opts.Enabled() {
		s, err := profiling.Start(opts)
		if err != nil {
			return err
		}
		profileSession = s
	}
	return nil
}

// stopProfilingAndLogging flushes profiles and closes the log file.
func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	var err error
	if profileSession != nil {
		err = profileSession.Stop()
		profileSession = nil
	}

	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return err
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		// PersistentPostRunE is skipped when RunE fails.
		_ = stopProfilingAndLogging(root, nil)
		_, _ = fmt.Fprint(root.ErrOrStderr(), wgerrors.FormatForCLI(err))
	}
	return err
}
