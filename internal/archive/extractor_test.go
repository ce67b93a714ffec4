package archive

import (
	"archive/tar"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func requireTar(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("tar binary not available")
	}
}

func writeTar(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	tw := tar.NewWriter(f)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestExtract_Success(t *testing.T) {
	requireTar(t)

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "n02085620.tar")
	dest := filepath.Join(dir, "train")
	if err := os.Mkdir(dest, 0o755); err != nil {
		t.Fatal(err)
	}
	writeTar(t, archivePath, map[string]string{
		"n02085620_1.JPEG": "one",
		"n02085620_2.JPEG": "two",
	})

	code, err := NewExtractor("", nil).Extract(context.Background(), archivePath, dest)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}

	data, err := os.ReadFile(filepath.Join(dest, "n02085620_2.JPEG"))
	if err != nil || string(data) != "two" {
		t.Fatalf("extracted content = %q, %v", data, err)
	}
}

func TestExtract_NonZeroExitIsNotAnError(t *testing.T) {
	requireTar(t)

	dir := t.TempDir()
	code, err := NewExtractor("tar", nil).Extract(context.Background(), filepath.Join(dir, "missing.tar"), dir)
	if err != nil {
		t.Fatalf("expected nil error for non-zero exit, got %v", err)
	}
	if code == 0 {
		t.Fatal("expected non-zero exit code for a missing archive")
	}
}

func TestExtract_MissingBinary(t *testing.T) {
	dir := t.TempDir()
	_, err := NewExtractor(filepath.Join(dir, "no-such-tar"), nil).Extract(context.Background(), "a.tar", dir)

	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected *ExtractionError, got %T %v", err, err)
	}
}

func TestExitResult_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name     string
		waitErr  error
		wantCode int
		wantErr  bool
	}{
		{name: "finished before cancel", waitErr: nil, wantCode: 0},
		{name: "killed by cancel", waitErr: errors.New("signal: killed"), wantCode: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := exitResult(ctx, "a.tar", tt.waitErr)
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			var extractErr *ExtractionError
			if got := errors.As(err, &extractErr); got != tt.wantErr {
				t.Fatalf("ExtractionError = %v, want %v (err %v)", got, tt.wantErr, err)
			}
			if tt.wantErr && !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled in %v", err)
			}
		})
	}
}
