package dataset

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	ioutils "github.com/handiism/imagenet-downloader/internal/io"
)

func setupDirs(t *testing.T, files int) (string, string) {
	t.Helper()
	root := t.TempDir()
	train := filepath.Join(root, "train", "dog")
	validation := filepath.Join(root, "validation", "dog")
	if err := ioutils.EnsureDirs(train, validation); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < files; i++ {
		name := fmt.Sprintf("n02085620_%03d.JPEG", i)
		if err := os.WriteFile(filepath.Join(train, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return train, validation
}

func listUnion(t *testing.T, dirs ...string) []string {
	t.Helper()
	var all []string
	for _, dir := range dirs {
		names, err := ioutils.ListNames(dir)
		if err != nil {
			t.Fatal(err)
		}
		all = append(all, names...)
	}
	sort.Strings(all)
	return all
}

func TestSplit_MovesFloorOfPercent(t *testing.T) {
	tests := []struct {
		files, percent, want int
	}{
		{0, 10, 0},
		{9, 10, 0},
		{10, 10, 1},
		{37, 20, 7},
		{50, 0, 0},
		{12, 100, 12},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_files_%d_percent", tt.files, tt.percent), func(t *testing.T) {
			train, validation := setupDirs(t, tt.files)
			before := listUnion(t, train)

			splitter := NewSplitterWithSource(rand.NewPCG(1, 2), nil)
			result, err := splitter.Split(train, validation, tt.percent)
			if err != nil {
				t.Fatalf("Split: %v", err)
			}
			if result.TotalFiles != tt.files {
				t.Errorf("TotalFiles = %d, want %d", result.TotalFiles, tt.files)
			}
			if result.ValidationCount != tt.want || len(result.Moved) != tt.want {
				t.Errorf("ValidationCount = %d, moved = %d, want %d", result.ValidationCount, len(result.Moved), tt.want)
			}

			moved, err := ioutils.ListNames(validation)
			if err != nil {
				t.Fatal(err)
			}
			if len(moved) != tt.want {
				t.Errorf("validation dir holds %d files, want %d", len(moved), tt.want)
			}

			after := listUnion(t, train, validation)
			if fmt.Sprint(after) != fmt.Sprint(before) {
				t.Errorf("train+validation changed:\nbefore %v\nafter  %v", before, after)
			}
		})
	}
}

func TestSplit_IsIncremental(t *testing.T) {
	train, validation := setupDirs(t, 20)
	splitter := NewSplitterWithSource(rand.NewPCG(3, 4), nil)

	if _, err := splitter.Split(train, validation, 50); err != nil {
		t.Fatal(err)
	}
	second, err := splitter.Split(train, validation, 50)
	if err != nil {
		t.Fatal(err)
	}
	// The second pass works on the 10 files left in train.
	if second.TotalFiles != 10 || second.ValidationCount != 5 {
		t.Errorf("second pass = %+v, want 10 total / 5 validation", second)
	}
}

func TestSplit_InvalidPercent(t *testing.T) {
	train, validation := setupDirs(t, 1)
	splitter := NewSplitter(nil)
	for _, p := range []int{-1, 101} {
		if _, err := splitter.Split(train, validation, p); err == nil {
			t.Errorf("expected error for percent %d", p)
		}
	}
}

func TestSplit_MissingTrainDir(t *testing.T) {
	splitter := NewSplitter(nil)
	_, err := splitter.Split(filepath.Join(t.TempDir(), "missing"), t.TempDir(), 10)

	var fsErr *FilesystemError
	if !errors.As(err, &fsErr) || fsErr.Op != "list" {
		t.Fatalf("expected list FilesystemError, got %v", err)
	}
}

func TestSplit_MoveFailureKeepsOtherMoves(t *testing.T) {
	train, _ := setupDirs(t, 10)
	// Validation directory does not exist, so every move fails.
	validation := filepath.Join(t.TempDir(), "absent")

	splitter := NewSplitterWithSource(rand.NewPCG(5, 6), nil)
	result, err := splitter.Split(train, validation, 30)

	var fsErr *FilesystemError
	if !errors.As(err, &fsErr) || fsErr.Op != "move" {
		t.Fatalf("expected move FilesystemError, got %v", err)
	}
	if result.ValidationCount != 3 || len(result.Moved) != 0 {
		t.Errorf("unexpected result %+v", result)
	}
	if names := listUnion(t, train); len(names) != 10 {
		t.Errorf("train lost files: %d left", len(names))
	}
}

func TestSplit_ConcurrentSameLabel(t *testing.T) {
	train, validation := setupDirs(t, 100)
	before := listUnion(t, train)
	splitter := NewSplitter(nil)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := splitter.Split(train, validation, 10); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent split failed: %v", err)
	}

	// 100 -> 90 -> 81 -> 73 -> 66 -> 60 -> 54 -> 49 -> 45 left in train.
	trainNames, err := ioutils.ListNames(train)
	if err != nil {
		t.Fatal(err)
	}
	if len(trainNames) != 45 {
		t.Errorf("train holds %d files, want 45", len(trainNames))
	}
	if after := listUnion(t, train, validation); fmt.Sprint(after) != fmt.Sprint(before) {
		t.Error("files lost or duplicated during concurrent splits")
	}
}

func TestSample_Distinct(t *testing.T) {
	splitter := NewSplitterWithSource(rand.NewPCG(7, 8), nil)
	names := []string{"a", "b", "c", "d", "e"}
	got := splitter.sample(names, 5)

	seen := map[string]bool{}
	for _, n := range got {
		if seen[n] {
			t.Fatalf("duplicate %q in sample %v", n, got)
		}
		seen[n] = true
	}
	if len(seen) != 5 {
		t.Errorf("sample = %v", got)
	}
	if names[0] != "a" || names[4] != "e" {
		t.Error("sample must not reorder the caller's slice")
	}
}
