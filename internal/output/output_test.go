package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_Status_PrintsIconAndMessage(t *testing.T) {
	// Given: a writer with a buffer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing a status message
	w.Status("🔍", "Checking embedder...")

	// Then: output contains icon and message
	assert.Equal(t, "🔍 Checking embedder...\n", buf.String())
}

func TestWriter_MessageKinds(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  []string
	}{
		{"success", func(w *Writer) { w.Successf("stored %d paragraphs", 4) }, []string{"✅", "stored 4 paragraphs"}},
		{"warning", func(w *Writer) { w.Warning("lexical model stale") }, []string{"⚠️", "lexical model stale"}},
		{"error", func(w *Writer) { w.Errorf("neo4j at %s unreachable", "localhost") }, []string{"❌", "neo4j at localhost unreachable"}},
		{"statusf", func(w *Writer) { w.Statusf("📂", "Found %d pages", 5) }, []string{"📂 Found 5 pages"}},
		{"header", func(w *Writer) { w.Header("Results") }, []string{"Results\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.write(New(buf))
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestWriter_NonTerminalHasNoEscapes(t *testing.T) {
	// Given: a buffer, which is never a terminal
	buf := &bytes.Buffer{}
	w := New(buf)

	// When
	w.Error("boom")
	w.Result(1, "p1", "score", 0.5, "Title", "content")

	// Then: no ANSI sequences are emitted
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestWriter_Code_PrintsIndentedBlock(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Code("uri: neo4j://localhost\nusername: neo4j")

	assert.Equal(t, "\n  uri: neo4j://localhost\n  username: neo4j\n\n", buf.String())
}

func TestWriter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	require.NoError(t, w.JSON(map[string]int{"paragraphs": 3}))

	assert.Equal(t, "{\n  \"paragraphs\": 3\n}\n", buf.String())
}

func TestWriter_Result(t *testing.T) {
	// Given
	buf := &bytes.Buffer{}
	w := New(buf)

	// When
	w.Result(2, "https://en.wikipedia.org/wiki/Yesugei_para_1", "distance", 0.25, "Yesugei", "Yesugei was a chief.")

	// Then
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2. https://en.wikipedia.org/wiki/Yesugei_para_1  distance=0.2500  Yesugei", lines[0])
	assert.Equal(t, "   Yesugei was a chief.", lines[1])
}

func TestWriter_Progress_NonTerminalPrintsFinalLineOnly(t *testing.T) {
	// Given: a non-terminal writer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: reporting intermediate and final progress
	w.Progress(1, 4, "embedding")
	w.Progress(4, 4, "embedding")

	// Then
	assert.Equal(t, "embedding 4/4\n", buf.String())
}

func TestWriter_Progress_ZeroTotal_NoOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	assert.NotPanics(t, func() { w.Progress(0, 0, "Processing") })
	assert.Empty(t, buf.String())
}

func TestProgressBar_Render(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		total    int
		width    int
		wantFull int
	}{
		{"0 percent", 0, 100, 10, 0},
		{"50 percent", 50, 100, 10, 5},
		{"100 percent", 100, 100, 10, 10},
		{"25 percent", 25, 100, 20, 5},
		{"overflow", 150, 100, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := renderProgressBar(tt.current, tt.total, tt.width)

			assert.Equal(t, tt.wantFull, strings.Count(bar, "█"))
			assert.Equal(t, tt.width, len([]rune(bar)))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, wrap("   ", 10))
	assert.Equal(t, []string{"one two", "three"}, wrap("one two three", 8))
	assert.Equal(t, []string{"supercalifragilistic", "x"}, wrap("supercalifragilistic x", 5))
}

func TestWriter_Newline_PrintsEmptyLine(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Newline()
	assert.Equal(t, "\n", buf.String())
}
