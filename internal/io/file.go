package ioutils

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// renameFunc is swapped in tests to simulate rename failures such as EXDEV.
var renameFunc = os.Rename

// CrossDeviceError reports a rename that failed because source and
// destination live on different file systems. Moves are never emulated with
// copy+delete, so the dataset directories must share a file system.
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("cross-device move %q -> %q: train and validation directories must be on the same file system: %v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// IsCrossDevice reports whether err is a CrossDeviceError.
func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// MoveFile renames src to dst. The rename is atomic for a single file; a
// cross-device failure is reported as CrossDeviceError.
//
// Example:
//
//	err := MoveFile("train/dog/n02085620_1.JPEG", "validation/dog/n02085620_1.JPEG")
func MoveFile(src, dst string) error {
	if err := renameFunc(src, dst); err != nil {
		if isEXDEV(err) {
			return &CrossDeviceError{Src: src, Dst: dst, Err: err}
		}
		return err
	}
	return nil
}

// ListNames returns the names of all entries in dir, sorted by name.
func ListNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

// FileExists reports whether path exists. Errors other than "not exist"
// are treated as existing so callers never overwrite something they cannot
// inspect.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// EnsureDirs calls EnsureDir for each path, stopping at the first failure.
func EnsureDirs(paths ...string) error {
	for _, path := range paths {
		if err := EnsureDir(path); err != nil {
			return fmt.Errorf("create directory %q: %w", path, err)
		}
	}
	return nil
}

func isEXDEV(err error) bool {
	if errors.Is(err, syscall.EXDEV) {
		return true
	}
	var le *os.LinkError
	return errors.As(err, &le) && errors.Is(le.Err, syscall.EXDEV)
}
