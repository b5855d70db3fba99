package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/wikigraph/internal/config"
	"github.com/Aman-CERP/wikigraph/internal/graph"
	"github.com/Aman-CERP/wikigraph/internal/wiki"
)

// sharedStore keeps one in-memory store alive across command invocations.
type sharedStore struct{ *graph.MemoryStore }

func (sharedStore) Close(context.Context) error { return nil }

type testEnv struct {
	dir     string
	dataDir string
	store   *graph.MemoryStore
}

// newTestEnv isolates configuration in a temp dir, selects the offline
// static embedder and swaps Neo4j for an in-memory store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("WIKIGRAPH_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("WIKIGRAPH_EMBEDDER", "static")
	t.Setenv("WIKIGRAPH_EMBEDDINGS_DIMENSIONS", "64")
	t.Setenv("WIKIGRAPH_LEXICAL_BACKEND", "")
	t.Setenv("WIKIGRAPH_NEO4J_PASSWORD", "")
	t.Setenv("NEO4J_PASSWORD", "")

	mem := graph.NewMemoryStore()
	orig := newParagraphStore
	newParagraphStore = func(context.Context, *config.Config) (graph.Store, error) {
		return sharedStore{mem}, nil
	}
	t.Cleanup(func() { newParagraphStore = orig })

	return &testEnv{dir: dir, dataDir: filepath.Join(dir, "data"), store: mem}
}

func (e *testEnv) writeDataset(t *testing.T) {
	t.Helper()
	pages := []wiki.Page{
		{
			Title:   "Genghis Khan",
			URL:     "https://en.wikipedia.org/wiki/Genghis_Khan",
			Content: "Genghis Khan founded the Mongol Empire.\n\nHis father Yesugei was a Borjigin chief.",
		},
		{
			Title:   "Naimans",
			URL:     "https://en.wikipedia.org/wiki/Naimans",
			Content: "The Naimans were a Turkic tribe of the steppe.",
		},
	}
	require.NoError(t, wiki.SavePages(filepath.Join(e.dataDir, "wikipedia_content.json"), pages))
}

func (e *testEnv) setup(t *testing.T) {
	t.Helper()
	e.writeDataset(t)
	_, err := execute(t, "", "setup")
	require.NoError(t, err)
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}
