package ioutils

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by AcquireLock when another process holds the lock.
var ErrLocked = errors.New("dataset directory is locked by another run")

// DirLock is an advisory lock file guarding a dataset directory.
type DirLock struct {
	lock *flock.Flock
}

// AcquireLock takes a non-blocking exclusive lock on path, creating the
// parent directory if needed.
//
// Example:
//
//	lock, err := AcquireLock("/data/.imagenet-dl/run.lock")
//	if err != nil {
//	    return err
//	}
//	defer lock.Release()
func AcquireLock(path string) (*DirLock, error) {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
	}
	return &DirLock{lock: lock}, nil
}

// Path returns the lock file path.
func (l *DirLock) Path() string {
	return l.lock.Path()
}

// Release unlocks the lock file.
func (l *DirLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
