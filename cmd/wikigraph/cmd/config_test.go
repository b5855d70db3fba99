package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/wikigraph/internal/config"
)

func TestConfigInit_WritesLoadableTemplate(t *testing.T) {
	// Given: a directory without project config
	env := newTestEnv(t)

	// When: running config init
	out, err := execute(t, "", "config", "init")

	// Then: .wikigraph.yaml exists and loads cleanly
	require.NoError(t, err)
	assert.Contains(t, out, "Created project configuration")
	path := filepath.Join(env.dir, config.ProjectConfigFile)
	require.FileExists(t, path)

	cfg, err := config.Load(env.dir)
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.Len(t, cfg.Scrape.URLs, 5)
}

func TestConfigInit_ExistingWithoutForce(t *testing.T) {
	// Given: an existing project config
	env := newTestEnv(t)
	path := filepath.Join(env.dir, config.ProjectConfigFile)
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))

	// When: running config init again
	out, err := execute(t, "", "config", "init")

	// Then: the file is left alone
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(data))
}

func TestConfigInit_ForceKeepsBackup(t *testing.T) {
	// Given: an existing project config
	env := newTestEnv(t)
	path := filepath.Join(env.dir, config.ProjectConfigFile)
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))

	// When: forcing init
	_, err := execute(t, "", "config", "init", "--force")

	// Then: the template replaced it and the old content was backed up
	require.NoError(t, err)
	backups, err := config.ListBackups(path)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	old, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(old))
}

func TestConfigShow_RedactsSecrets(t *testing.T) {
	// Given: a password in the environment
	newTestEnv(t)
	t.Setenv("WIKIGRAPH_NEO4J_PASSWORD", "hunter2-secret")

	// When: showing the configuration as YAML and as JSON
	text, err := execute(t, "", "config", "show")
	require.NoError(t, err)
	raw, err := execute(t, "", "config", "show", "--json")
	require.NoError(t, err)

	// Then: the secret appears in neither
	assert.NotContains(t, text, "hunter2-secret")
	assert.NotContains(t, raw, "hunter2-secret")
	assert.Contains(t, text, "neo4j password: set (hidden)")
	assert.Contains(t, text, "rrf_constant: 60")

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(raw), &cfg))
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.Empty(t, cfg.Neo4j.Password)
}

func TestConfigPath(t *testing.T) {
	// Given: no project config
	env := newTestEnv(t)

	// When: printing paths
	out, err := execute(t, "", "config", "path")

	// Then: the user path honours XDG_CONFIG_HOME
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(env.dir, "xdg", "wikigraph", "config.yaml"))
	assert.Contains(t, out, "(not found)")
}
