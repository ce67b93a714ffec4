package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"time"

	ioutils "github.com/handiism/imagenet-downloader/internal/io"
	"github.com/handiism/imagenet-downloader/internal/model"
)

// FilesystemError reports a failed directory listing or file move.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// Splitter moves a random sample of a train directory into a validation
// directory.
//
// Splits of the same train directory are serialized: categories of one label
// finish concurrently and each triggers a split of the shared directory.
type Splitter struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex

	rngMu sync.Mutex
	rng   *rand.Rand

	logger *slog.Logger
}

// NewSplitter creates a Splitter seeded from the clock.
func NewSplitter(logger *slog.Logger) *Splitter {
	seed := uint64(time.Now().UnixNano())
	return NewSplitterWithSource(rand.NewPCG(seed, seed>>1|1), logger)
}

// NewSplitterWithSource creates a Splitter drawing samples from src.
// Tests use it to get reproducible selections.
func NewSplitterWithSource(src rand.Source, logger *slog.Logger) *Splitter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Splitter{
		locks:  make(map[string]*sync.Mutex),
		rng:    rand.New(src),
		logger: logger.With("component", "split"),
	}
}

// Split moves floor(T*percent/100) uniformly chosen entries of trainDir,
// where T is the number of entries currently in trainDir, into
// validationDir.
//
// Selection is made from a single snapshot of the listing. A failed move
// does not stop the remaining moves; failures are returned joined in a
// *FilesystemError together with the partial result.
func (s *Splitter) Split(trainDir, validationDir string, percent int) (model.SplitResult, error) {
	if percent < 0 || percent > 100 {
		return model.SplitResult{}, fmt.Errorf("validation split must be between 0 and 100, got %d", percent)
	}

	lock := s.lockFor(trainDir)
	lock.Lock()
	defer lock.Unlock()

	names, err := ioutils.ListNames(trainDir)
	if err != nil {
		return model.SplitResult{}, &FilesystemError{Op: "list", Path: trainDir, Err: err}
	}

	result := model.SplitResult{
		TotalFiles:      len(names),
		ValidationCount: model.ValidationCount(len(names), percent),
	}
	selected := s.sample(names, result.ValidationCount)

	var errs []error
	for _, name := range selected {
		src := filepath.Join(trainDir, name)
		dst := filepath.Join(validationDir, name)
		if err := ioutils.MoveFile(src, dst); err != nil {
			errs = append(errs, err)
			continue
		}
		result.Moved = append(result.Moved, name)
	}

	s.logger.Debug("split train directory",
		"train", trainDir,
		"total", result.TotalFiles,
		"validation", result.ValidationCount,
		"moved", len(result.Moved),
	)

	if len(errs) > 0 {
		return result, &FilesystemError{Op: "move", Path: trainDir, Err: errors.Join(errs...)}
	}
	return result, nil
}

// sample returns k distinct elements of names chosen uniformly at random
// (partial Fisher-Yates over a copy).
func (s *Splitter) sample(names []string, k int) []string {
	if k <= 0 {
		return nil
	}
	pool := make([]string, len(names))
	copy(pool, names)

	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	for i := 0; i < k; i++ {
		j := i + s.rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

func (s *Splitter) lockFor(dir string) *sync.Mutex {
	key := filepath.Clean(dir)

	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}
