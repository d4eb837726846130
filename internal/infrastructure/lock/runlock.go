// Package lock keeps two sync runs from sharing one rate window.
package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/jbctechsolutions/wikisync/internal/domain/errors"
)

// DefaultFileName is the lock file created in the state directory.
const DefaultFileName = "sync.lock"

// RunLock is an exclusive, non-blocking file lock.
type RunLock struct {
	lock *flock.Flock
}

// New creates a lock at path without acquiring it.
func New(path string) *RunLock {
	return &RunLock{lock: flock.New(path)}
}

// Path returns the lock file path.
func (l *RunLock) Path() string {
	return l.lock.Path()
}

// Acquire takes the lock or returns errors.ErrSyncAlreadyRunning when
// another process holds it.
func (l *RunLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.lock.Path()), 0o700); err != nil {
		return errors.NewError(errors.CodeFilesystem, "failed to create lock directory", err)
	}

	locked, err := l.lock.TryLock()
	if err != nil {
		return errors.NewError(errors.CodeFilesystem, "failed to acquire sync lock", err)
	}
	if !locked {
		return errors.NewError(errors.CodeConfiguration,
			fmt.Sprintf("lock %s is held", l.lock.Path()), errors.ErrSyncAlreadyRunning)
	}
	return nil
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *RunLock) Release() error {
	return l.lock.Unlock()
}
