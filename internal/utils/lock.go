package utils

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is created inside an experiment directory while a run holds it.
const LockFileName = ".clams.lock"

// ErrLocked is returned when another process holds the directory lock.
var ErrLocked = errors.New("directory is locked by another run")

// DirLock is an exclusive advisory lock scoped to one experiment directory.
type DirLock struct {
	flock *flock.Flock
	path  string
}

// LockDir takes the lock without blocking. It returns ErrLocked if another
// holder exists.
func LockDir(dir string) (*DirLock, error) {
	path := filepath.Join(dir, LockFileName)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", dir, ErrLocked)
	}
	return &DirLock{flock: fl, path: path}, nil
}

// Unlock releases the lock.
func (l *DirLock) Unlock() error {
	if l == nil || l.flock == nil {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("unlock %s: %w", l.path, err)
	}
	return nil
}
