package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/wikigraph/internal/index"
	"github.com/Aman-CERP/wikigraph/internal/output"
)

func newCleanupCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete all paragraphs and index files",
		Long: `Delete every Page and Paragraph node from Neo4j and remove the vector
index and BM25 model from data_dir. The scraped dataset is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCleanup(cmd.Context(), cmd, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func runCleanup(ctx context.Context, cmd *cobra.Command, yes bool) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !yes && !confirm(cmd, fmt.Sprintf("Delete all paragraphs from %s and the indexes in %s? [y/N] ", cfg.Neo4j.URI, cfg.DataDir)) {
		out.Status("⏹", "Cleanup cancelled")
		return nil
	}

	paragraphs, err := newParagraphStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = paragraphs.Close(ctx) }()

	runner, err := index.NewRunner(index.RunnerDependencies{Config: cfg, Paragraphs: paragraphs})
	if err != nil {
		return err
	}
	res, err := runner.Cleanup(ctx)
	if err != nil {
		return err
	}

	out.Successf("Deleted %d nodes", res.NodesDeleted)
	for _, f := range res.FilesRemoved {
		out.Statusf("", "removed %s", f)
	}
	return nil
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, prompt string) bool {
	_, _ = fmt.Fprint(cmd.OutOrStdout(), prompt)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
