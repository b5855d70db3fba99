package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/wikigraph/configs"
	"github.com/Aman-CERP/wikigraph/internal/config"
	"github.com/Aman-CERP/wikigraph/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage wikigraph configuration.

Configuration precedence (lowest to highest):
  1. Built-in defaults
  2. User config (~/.config/wikigraph/config.yaml)
  3. Project config (.wikigraph.yaml)
  4. Environment variables (WIKIGRAPH_*)

The Neo4j password and the OpenAI API key are read from the environment only.`,
		Example: `  # Create .wikigraph.yaml in the current directory
  wikigraph config init

  # Show effective configuration
  wikigraph config show --json`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create project configuration file",
		Long: `Write an annotated .wikigraph.yaml to the current directory. With --force
an existing file is backed up before it is replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the configuration after merging defaults, the user config, the
project config and the environment. Secrets are never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print configuration file paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			project := config.ProjectConfigPath(cwd)
			if project == "" {
				project = filepath.Join(cwd, config.ProjectConfigFile) + " (not found)"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "user:    %s\nproject: %s\n", config.GetUserConfigPath(), project)
			return nil
		},
	}
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())

	path := config.ProjectConfigFile
	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warning("Project configuration already exists")
			out.Statusf("📁", "Location: %s", path)
			out.Status("💡", "Use --force to replace it (a backup is kept)")
			return nil
		}
		backup, err := config.BackupFile(path)
		if err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
		out.Statusf("💾", "Backup: %s", backup)
	}

	if err := os.WriteFile(path, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("Created project configuration")
	out.Statusf("📁", "Location: %s", path)
	out.Status("📋", "Next steps:")
	out.Status("", "1. Export WIKIGRAPH_NEO4J_PASSWORD")
	out.Status("", "2. Run 'wikigraph scrape' then 'wikigraph setup'")
	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if jsonOutput {
		return out.JSON(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	out.Header("Effective configuration")
	out.Code(string(data))
	out.Statusf("🔑", "neo4j password: %s", redact(cfg.Neo4j.Password))
	out.Statusf("🔑", "openai api key: %s", redact(cfg.Embeddings.OpenAIAPIKey))
	return nil
}

func redact(secret string) string {
	if secret == "" {
		return "not set"
	}
	return "set (hidden)"
}
