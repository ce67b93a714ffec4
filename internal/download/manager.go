package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/imagenet-downloader/internal/archive"
	"github.com/handiism/imagenet-downloader/internal/config"
	"github.com/handiism/imagenet-downloader/internal/dataset"
	"github.com/handiism/imagenet-downloader/internal/http"
	"github.com/handiism/imagenet-downloader/internal/imagenet"
	ioutils "github.com/handiism/imagenet-downloader/internal/io"
	"github.com/handiism/imagenet-downloader/internal/model"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a pipeline progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Resolver expands a root category into the ids to download.
type Resolver interface {
	Resolve(ctx context.Context, rootID model.CategoryID, recursive bool) ([]model.CategoryID, error)
}

// ArchiveFetcher makes the archive of a category available on disk.
type ArchiveFetcher interface {
	Fetch(ctx context.Context, target model.DownloadTarget) (FetchResult, error)
}

// Extractor unpacks an archive into a directory and returns the exit code.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) (int, error)
}

// Splitter moves a share of a train directory into a validation directory.
type Splitter interface {
	Split(trainDir, validationDir string, percent int) (model.SplitResult, error)
}

// Normalizer rewrites oversized images of a directory in place.
type Normalizer interface {
	NormalizeDir(ctx context.Context, dir string, maxSize int) (int, error)
}

// Options configures a Manager.
type Options struct {
	Layout model.Layout

	// Concurrency is the number of categories processed at once within an
	// instruction.
	Concurrency int

	// ValidationSplit is the percentage of the train directory moved to
	// validation after each extraction.
	ValidationSplit int

	// ResizeMaxSize enables normalization when positive.
	ResizeMaxSize int
}

// Dependencies are the pipeline stages. Normalizer is optional.
type Dependencies struct {
	Resolver   Resolver
	Fetcher    ArchiveFetcher
	Extractor  Extractor
	Splitter   Splitter
	Normalizer Normalizer
}

// Manager runs download instructions through the
// resolve, fetch, extract and split pipeline.
type Manager struct {
	opts   Options
	deps   Dependencies
	logger *slog.Logger

	receivedBytes   int64
	totalCategories int32
	doneCategories  int32

	onProgress func(ProgressEvent)
}

// New creates a Manager from explicit stages.
func New(opts Options, deps Dependencies, logger *slog.Logger, onProgress func(ProgressEvent)) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Manager{
		opts:       opts,
		deps:       deps,
		logger:     logger.With("component", "manager"),
		onProgress: onProgress,
	}
}

// NewManager creates a Manager wired to the ImageNet API, the tar binary and
// the local dataset layout described by settings. bars may be nil.
func NewManager(settings *config.Settings, logger *slog.Logger, onProgress func(ProgressEvent), bars BarFactory) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	client := http.NewClient(settings.HTTPTimeout())

	fetcher := NewFetcher(client, settings.DownloadURL, Credentials{
		Username:  settings.Credentials.Username,
		AccessKey: settings.Credentials.AccessKey,
		Release:   settings.Credentials.Release,
		Source:    settings.Credentials.Source,
	}, logger)
	if bars != nil {
		fetcher.WithProgressBars(bars)
	}

	deps := Dependencies{
		Resolver:  imagenet.NewClient(client, settings.APIBaseURL, logger),
		Fetcher:   fetcher,
		Extractor: archive.NewExtractor(settings.TarBinary, logger),
		Splitter:  dataset.NewSplitter(logger),
	}
	opts := Options{
		Layout:          model.Layout{BaseDir: settings.BaseDir},
		Concurrency:     settings.MaxConcurrentDownloads,
		ValidationSplit: settings.ValidationSplit,
	}
	if settings.Resize.Enabled {
		deps.Normalizer = ioutils.NewImageService(logger)
		opts.ResizeMaxSize = settings.Resize.MaxSize
	}

	return New(opts, deps, logger, onProgress)
}

// Layout returns the dataset layout the manager writes to.
func (m *Manager) Layout() model.Layout {
	return m.opts.Layout
}

// PrepareLayout creates the top-level dataset directories.
func (m *Manager) PrepareLayout() error {
	return ioutils.EnsureDirs(m.opts.Layout.RootDirs()...)
}

// Run processes instructions strictly in order and returns their outcomes.
//
// Category failures are counted and never stop sibling categories or later
// instructions. When ctx is cancelled, categories that did not complete are
// counted as failed and the remaining instructions are marked with the
// context error.
func (m *Manager) Run(ctx context.Context, instructions []model.Instruction) model.RunOutcome {
	run := model.RunOutcome{
		RunID:   uuid.NewString(),
		Started: time.Now(),
	}
	m.logger.Info("run started", "run_id", run.RunID, "instructions", len(instructions))

	// Category ids already dispatched in this run, per label directory.
	seen := make(map[string]map[model.CategoryID]struct{})

	for _, instr := range instructions {
		if err := ctx.Err(); err != nil {
			run.Instructions = append(run.Instructions, model.InstructionOutcome{Instruction: instr, Err: err})
			continue
		}
		run.Instructions = append(run.Instructions, m.runInstruction(ctx, instr, seen))
	}

	run.Finished = time.Now()
	totals := run.Totals()
	m.logger.Info("run finished",
		"run_id", run.RunID,
		"resolved", totals.Resolved,
		"failed", totals.Failed,
		"skipped", totals.Skipped,
		"warnings", totals.ExtractionWarnings,
		"bytes", totals.Bytes,
		"duration", run.Duration(),
	)
	return run
}

// GetProgress returns bytes downloaded and categories completed so far.
func (m *Manager) GetProgress() (received int64, done, total int32) {
	return atomic.LoadInt64(&m.receivedBytes),
		atomic.LoadInt32(&m.doneCategories), atomic.LoadInt32(&m.totalCategories)
}

// categoryResult is the outcome of one category pipeline.
type categoryResult struct {
	failed  bool
	skipped bool
	warning bool
	bytes   int64
}

func (m *Manager) runInstruction(ctx context.Context, instr model.Instruction, seen map[string]map[model.CategoryID]struct{}) model.InstructionOutcome {
	out := model.InstructionOutcome{Instruction: instr}
	logger := m.logger.With("label", instr.Label, "wnid", instr.RootID)

	dirs := m.opts.Layout.For(instr.Label)
	if dirs.Label == "" {
		out.Err = fmt.Errorf("label %q is not a usable directory name", instr.Label)
		m.progress(ProgressEvent{Message: out.Err.Error(), Level: LevelError})
		return out
	}
	if err := ioutils.EnsureDirs(dirs.All()...); err != nil {
		out.Err = err
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error preparing %s: %v", dirs.Label, err), Level: LevelError})
		return out
	}

	ids, err := m.deps.Resolver.Resolve(ctx, instr.RootID, instr.Recursive)
	if err != nil {
		out.Err = fmt.Errorf("resolve %s: %w", instr.RootID, err)
		logger.Error("resolve failed", "error", err)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error resolving %s: %v", instr.RootID, err), Level: LevelError})
		return out
	}
	out.Resolved = len(ids)
	atomic.AddInt32(&m.totalCategories, int32(len(ids)))
	m.progress(ProgressEvent{Message: fmt.Sprintf("%s: %d categories from %s", dirs.Label, len(ids), instr.RootID), Level: LevelInfo})

	dispatched := seen[dirs.Label]
	if dispatched == nil {
		dispatched = make(map[model.CategoryID]struct{})
		seen[dirs.Label] = dispatched
	}

	var mu sync.Mutex
	// Extraction and splitting share train/<label>; only one category at a
	// time may write or sample it.
	var trainMu sync.Mutex
	// Not WithContext: a failing category must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(m.opts.Concurrency)

	for _, id := range ids {
		if _, ok := dispatched[id]; ok {
			atomic.AddInt32(&m.doneCategories, 1)
			mu.Lock()
			out.Attempted++
			out.Skipped++
			mu.Unlock()
			m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping repeated category: %s", id), Level: LevelVerbose})
			continue
		}
		dispatched[id] = struct{}{}

		g.Go(func() error {
			res := m.processCategory(ctx, dirs, id, &trainMu)
			atomic.AddInt32(&m.doneCategories, 1)

			mu.Lock()
			defer mu.Unlock()
			out.Attempted++
			out.Bytes += res.bytes
			if res.failed {
				out.Failed++
			}
			if res.skipped {
				out.Skipped++
			}
			if res.warning {
				out.ExtractionWarnings++
			}
			return nil
		})
	}
	_ = g.Wait()

	m.normalize(ctx, dirs)

	if out.Failed == 0 {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Finished %s (%d categories)", dirs.Label, out.Resolved), Level: LevelSuccess})
	} else {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Finished %s, %d of %d categories failed", dirs.Label, out.Failed, out.Resolved), Level: LevelWarning})
	}
	logger.Info("instruction finished",
		"resolved", out.Resolved,
		"failed", out.Failed,
		"skipped", out.Skipped,
		"warnings", out.ExtractionWarnings,
	)
	return out
}

func (m *Manager) processCategory(ctx context.Context, dirs model.LabelDirs, id model.CategoryID, trainMu *sync.Mutex) categoryResult {
	var res categoryResult
	logger := m.logger.With("label", dirs.Label, "wnid", id)

	if err := ctx.Err(); err != nil {
		res.failed = true
		return res
	}

	target := dirs.Target(id)
	fetched, err := m.deps.Fetcher.Fetch(ctx, target)
	if err != nil {
		res.failed = true
		logger.Error("fetch failed", "error", err)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading %s: %v", id, err), Level: LevelError})
		return res
	}
	res.skipped = fetched.Skipped
	res.bytes = fetched.Bytes
	atomic.AddInt64(&m.receivedBytes, fetched.Bytes)
	if fetched.Skipped {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping existing: %s", id), Level: LevelVerbose})
	}

	trainMu.Lock()
	defer trainMu.Unlock()

	code, err := m.deps.Extractor.Extract(ctx, target.Path, dirs.Train)
	if err != nil {
		res.failed = true
		logger.Error("extraction failed", "error", err)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error extracting %s: %v", id, err), Level: LevelError})
		return res
	}
	if code != 0 {
		res.warning = true
		logger.Warn("extraction exited non-zero", "exit_code", code)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Extraction of %s exited with code %d", id, code), Level: LevelWarning})
	}

	split, err := m.deps.Splitter.Split(dirs.Train, dirs.Validation, m.opts.ValidationSplit)
	if err != nil {
		res.failed = true
		logger.Error("split failed", "error", err)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error splitting %s: %v", dirs.Label, err), Level: LevelError})
		return res
	}

	logger.Debug("category done", "train_total", split.TotalFiles, "moved", len(split.Moved))
	m.progress(ProgressEvent{Message: fmt.Sprintf("Done: %s (%d to validation)", id, len(split.Moved)), Level: LevelVerbose})
	return res
}

func (m *Manager) normalize(ctx context.Context, dirs model.LabelDirs) {
	if m.deps.Normalizer == nil || m.opts.ResizeMaxSize <= 0 || ctx.Err() != nil {
		return
	}
	for _, dir := range []string{dirs.Train, dirs.Validation} {
		n, err := m.deps.Normalizer.NormalizeDir(ctx, dir, m.opts.ResizeMaxSize)
		if err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warn("normalization failed", "dir", dir, "error", err)
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error resizing images in %s: %v", dir, err), Level: LevelWarning})
			continue
		}
		if n > 0 {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Resized %d images in %s", n, dir), Level: LevelVerbose})
		}
	}
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
