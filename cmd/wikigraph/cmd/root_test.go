package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	// Given: the root command
	root := NewRootCmd()

	// When/Then: every command resolves
	for _, name := range []string{"scrape", "setup", "query", "hybrid_query", "cleanup", "verify", "serve", "config", "version"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRootCmd_HybridQueryAlias(t *testing.T) {
	// Given: the root command
	root := NewRootCmd()

	// When: looking up the dashed spelling
	sub, _, err := root.Find([]string{"hybrid-query"})

	// Then: it resolves to hybrid_query
	require.NoError(t, err)
	assert.Equal(t, "hybrid_query", sub.Name())
}

func TestRootCmd_ProfileMemWritesHeapProfile(t *testing.T) {
	// Given: an isolated environment and a heap profile path
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "heap.prof")

	// When: running a quick command with --profile-mem
	_, err := execute(t, "", "--profile-mem", path, "version", "--short")

	// Then: the profile is written when the command finishes
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	// Given/When: an unknown subcommand
	_, err := execute(t, "", "frobnicate")

	// Then: cobra rejects it
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}
