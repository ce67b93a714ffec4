package ioutils

import (
	"bytes"
	"context"
	"image"
	_ "image/gif" // GIF decoder registration
	"image/jpeg"
	_ "image/png" // PNG decoder registration
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

// ImageService provides image processing operations for dataset images.
//
// ImageService is used to downscale oversized training and validation
// images in place so the dataset has a bounded resolution.
//
// Example usage:
//
//	svc := NewImageService(logger)
//	resized, err := svc.NormalizeDir(ctx, "/data/train/dog", 500)
type ImageService struct {
	logger *slog.Logger
}

// NewImageService creates a new ImageService.
func NewImageService(logger *slog.Logger) *ImageService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ImageService{logger: logger.With("component", "images")}
}

// ResizeImage resizes an image to fit within the specified maximum dimensions.
//
// The aspect ratio is preserved. If the image is already smaller than the
// maximum dimensions, it will still be processed (re-encoded as JPEG).
//
// Returns the resized image as JPEG-encoded bytes.
//
// The Catmull-Rom algorithm is used for high-quality resizing.
//
// Example:
//
//	// Resize to fit within 1000x1000, maintaining aspect ratio
//	resized, err := svc.ResizeImage(ctx, imageData, 1000, 1000)
//	// A 1500x1000 image becomes 1000x666
//	// A 800x600 image remains 800x600 (but re-encoded)
func (s *ImageService) ResizeImage(ctx context.Context, data []byte, maxWidth, maxHeight int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := fitWithin(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// NormalizeDir downscales every image in dir whose width or height exceeds
// maxSize. Files keep their names, so the set of files in dir is unchanged.
// Files that cannot be decoded are logged and left alone.
//
// Returns the number of images rewritten.
func (s *ImageService) NormalizeDir(ctx context.Context, dir string, maxSize int) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	resized := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return resized, err
		}
		if !entry.Type().IsRegular() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		changed, err := s.normalizeFile(ctx, path, maxSize)
		if err != nil {
			s.logger.Debug("skipping image", "path", path, "error", err)
			continue
		}
		if changed {
			resized++
		}
	}

	return resized, nil
}

func (s *ImageService) normalizeFile(ctx context.Context, path string, maxSize int) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return false, err
	}
	if cfg.Width <= maxSize && cfg.Height <= maxSize {
		return false, nil
	}

	out, err := s.ResizeImage(ctx, data, maxSize, maxSize)
	if err != nil {
		return false, err
	}
	if err := writeFileAtomic(path, out); err != nil {
		return false, err
	}
	return true, nil
}

// fitWithin scales width x height down to fit maxWidth x maxHeight.
func fitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	ratio := float64(width) / float64(height)
	if float64(maxWidth)/float64(maxHeight) > ratio {
		// Height is the limiting factor
		width = int(float64(maxHeight) * ratio)
		height = maxHeight
	} else {
		// Width is the limiting factor
		height = int(float64(maxWidth) / ratio)
		width = maxWidth
	}
	return max(width, 1), max(height, 1)
}

// writeFileAtomic replaces path via a temporary sibling and a rename.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return MoveFile(tmpName, path)
}
