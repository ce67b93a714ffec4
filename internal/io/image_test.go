package ioutils

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, width, height int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, maxW, maxH int
		wantW, wantH     int
	}{
		{1500, 1000, 1000, 1000, 1000, 666},
		{1000, 1500, 1000, 1000, 666, 1000},
		{800, 600, 1000, 1000, 800, 600},
		{4000, 1, 100, 100, 100, 1},
	}
	for _, tt := range tests {
		w, h := fitWithin(tt.w, tt.h, tt.maxW, tt.maxH)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("fitWithin(%d, %d, %d, %d) = %dx%d, want %dx%d", tt.w, tt.h, tt.maxW, tt.maxH, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestNormalizeDir(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "big.png"), 120, 60)
	writePNG(t, filepath.Join(dir, "small.png"), 20, 20)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewImageService(nil)
	resized, err := svc.NormalizeDir(context.Background(), dir, 40)
	if err != nil {
		t.Fatalf("NormalizeDir: %v", err)
	}
	if resized != 1 {
		t.Errorf("resized = %d, want 1", resized)
	}

	data, err := os.ReadFile(filepath.Join(dir, "big.png"))
	if err != nil {
		t.Fatal(err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode resized image: %v", err)
	}
	if format != "jpeg" || cfg.Width != 40 || cfg.Height != 20 {
		t.Errorf("resized image = %s %dx%d, want jpeg 40x20", format, cfg.Width, cfg.Height)
	}

	names, err := ListNames(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 3 {
		t.Errorf("file set changed: %v", names)
	}
}

func TestResizeImage_CancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.png")
	writePNG(t, path, 64, 32)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := NewImageService(nil).ResizeImage(ctx, data, 16, 16)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if out != nil {
		t.Errorf("expected no output, got %d bytes", len(out))
	}
}
