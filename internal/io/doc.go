// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - Directory creation
//   - Atomic file moves with cross-device detection
//   - Directory listings
//   - Advisory locking of a dataset directory
//   - Image resizing for dataset normalization
//
// # File Operations
//
//	// Move a file between dataset directories
//	err := ioutils.MoveFile("/data/train/dog/a.JPEG", "/data/validation/dog/a.JPEG")
//
//	// Ensure directory exists
//	err := ioutils.EnsureDir("/data/train/dog")
//
// # Locking
//
//	lock, err := ioutils.AcquireLock("/data/.imagenet-dl/run.lock")
//	if errors.Is(err, ioutils.ErrLocked) {
//	    // another run is using the dataset
//	}
//	defer lock.Release()
//
// # Image Processing
//
// The ImageService downscales oversized images:
//
//	svc := ioutils.NewImageService(logger)
//	n, err := svc.NormalizeDir(ctx, "/data/train/dog", 500)
package ioutils
