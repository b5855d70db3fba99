package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupCmd_DeclinedPromptKeepsData(t *testing.T) {
	// Given: a set-up corpus
	env := newTestEnv(t)
	env.setup(t)

	// When: answering no at the prompt
	out, err := execute(t, "n\n", "cleanup")

	// Then: nothing is deleted
	require.NoError(t, err)
	assert.Contains(t, out, "Cleanup cancelled")
	stats, err := env.store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Paragraphs)
	assert.FileExists(t, filepath.Join(env.dataDir, "vectors.hnsw"))
}

func TestCleanupCmd_EmptyInputDeclines(t *testing.T) {
	// Given: a set-up corpus and no terminal input
	env := newTestEnv(t)
	env.setup(t)

	// When: the prompt reads EOF
	out, err := execute(t, "", "cleanup")

	// Then: cleanup is cancelled
	require.NoError(t, err)
	assert.Contains(t, out, "Cleanup cancelled")
}

func TestCleanupCmd_Confirmed(t *testing.T) {
	// Given: a set-up corpus
	env := newTestEnv(t)
	env.setup(t)

	// When: answering yes
	out, err := execute(t, "yes\n", "cleanup")

	// Then: nodes and index files are gone, the dataset stays
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 5 nodes")
	stats, err := env.store.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Paragraphs)
	assert.NoFileExists(t, filepath.Join(env.dataDir, "vectors.hnsw"))
	assert.NoFileExists(t, filepath.Join(env.dataDir, "bm25.model"))
	assert.FileExists(t, filepath.Join(env.dataDir, "wikipedia_content.json"))
}

func TestCleanupCmd_YesFlagIsIdempotent(t *testing.T) {
	// Given: an empty environment
	newTestEnv(t)

	// When: cleaning up twice without prompting
	_, err := execute(t, "", "cleanup", "--yes")
	require.NoError(t, err)
	out, err := execute(t, "", "cleanup", "-y")

	// Then: the second run is a no-op
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 0 nodes")
}
