package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/wikigraph/internal/output"
	"github.com/Aman-CERP/wikigraph/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var asJSON, short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the wikigraph version, commit, build date and Go version, followed by
the versions of the storage and protocol backends compiled in (Neo4j driver,
HNSW, bleve, SQLite, MCP). Index files built by different backend versions
may not load; compare this output when moving a data directory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if short {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Short())
				return err
			}

			out := output.New(cmd.OutOrStdout())
			info := version.GetInfo()
			if asJSON {
				return out.JSON(info)
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			if err != nil || len(info.Backends) == 0 {
				return err
			}
			out.Newline()
			out.Header("Backends")
			for _, line := range info.BackendLines() {
				out.Status("", line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output version info as JSON")
	cmd.Flags().BoolVar(&short, "short", false, "Output only the version number")
	return cmd
}
