package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns ~/.wikigraph/logs, or a temp-dir equivalent when
// the home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".wikigraph", "logs")
	}
	return filepath.Join(home, ".wikigraph", "logs")
}

// DefaultLogPath returns the CLI log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "wikigraph.log")
}
