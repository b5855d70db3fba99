package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
)

// FileLock guards the data directory against concurrent setup and cleanup
// runs from separate processes.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewFileLock creates a lock backed by the file at path.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path, flock: flock.New(path)}
}

// TryLock acquires the lock without blocking. A lock held by another process
// returns an ErrCodeLockHeld error.
func (l *FileLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return wgerrors.New(wgerrors.ErrCodeLockHeld, "data directory is locked by another wikigraph process", nil).
			WithDetail("path", l.path).
			WithSuggestion("Wait for the other setup or cleanup to finish")
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. Calling it on an unlocked FileLock is a no-op.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *FileLock) Path() string { return l.path }

// IsLocked reports whether this FileLock holds the lock.
func (l *FileLock) IsLocked() bool { return l.locked }
