package profiling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func busyWork() int {
	sum := 0
	for i := 0; i < 2_000_000; i++ {
		sum += i % 7
	}
	return sum
}

func TestSession_WritesRequestedProfiles(t *testing.T) {
	// Given: all three profiles requested
	dir := t.TempDir()
	opts := Options{
		CPU:   filepath.Join(dir, "cpu.prof"),
		Heap:  filepath.Join(dir, "heap.prof"),
		Trace: filepath.Join(dir, "trace.out"),
	}

	// When: a session runs around some work
	s, err := Start(opts)
	require.NoError(t, err)
	_ = busyWork()
	require.NoError(t, s.Stop())

	// Then: every file exists and is non-empty
	for _, p := range []string{opts.CPU, opts.Heap, opts.Trace} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Greater(t, info.Size(), int64(0), p)
	}
}

func TestSession_StopTwice(t *testing.T) {
	// Given: a heap-only session that has been stopped
	path := filepath.Join(t.TempDir(), "heap.prof")
	s, err := Start(Options{Heap: path})
	require.NoError(t, err)
	require.NoError(t, s.Stop())
	require.NoError(t, os.Remove(path))

	// When: stopping again
	err = s.Stop()

	// Then: nothing is rewritten
	require.NoError(t, err)
	assert.NoFileExists(t, path)
}

func TestStart_BadPath(t *testing.T) {
	// Given: a CPU profile path in a missing directory
	path := filepath.Join(t.TempDir(), "missing", "cpu.prof")

	// When: starting
	_, err := Start(Options{CPU: path})

	// Then: the error names the CPU profile
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CPU profile")
}

func TestOptions_Enabled(t *testing.T) {
	assert.False(t, Options{}.Enabled())
	assert.True(t, Options{Trace: "t.out"}.Enabled())
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in))
	}
}
