package archive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
)

// ExtractionError reports an extraction process that could not be run to
// completion (binary missing, pipes unavailable, context cancelled).
// A process that ran and exited non-zero is not an ExtractionError.
type ExtractionError struct {
	Archive string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extractor unpacks archives with an external tar binary.
type Extractor struct {
	binary string
	logger *slog.Logger
}

// NewExtractor creates an Extractor using binary (default "tar").
func NewExtractor(binary string, logger *slog.Logger) *Extractor {
	if binary == "" {
		binary = "tar"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{binary: binary, logger: logger.With("component", "extract")}
}

// Extract runs `<binary> -C destDir -xf archivePath` and returns its exit code.
//
// The process's stdout and stderr are logged line by line. A non-zero exit
// code is returned with a nil error: the caller decides how severe it is.
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string) (int, error) {
	cmd := exec.CommandContext(ctx, e.binary, "-C", destDir, "-xf", archivePath)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, &ExtractionError{Archive: archivePath, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, &ExtractionError{Archive: archivePath, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return -1, &ExtractionError{Archive: archivePath, Err: err}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go e.pump(&wg, stdout, "stdout", archivePath)
	go e.pump(&wg, stderr, "stderr", archivePath)
	wg.Wait()

	code, err := exitResult(ctx, archivePath, cmd.Wait())
	if err == nil {
		e.logger.Debug("extraction finished", "archive", archivePath, "code", code)
	}
	return code, err
}

// exitResult maps the result of cmd.Wait to an exit code. A process killed
// because ctx ended is an ExtractionError; one that finished is not.
func exitResult(ctx context.Context, archivePath string, waitErr error) (int, error) {
	if waitErr == nil {
		return 0, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, &ExtractionError{Archive: archivePath, Err: ctxErr}
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, &ExtractionError{Archive: archivePath, Err: waitErr}
}

func (e *Extractor) pump(wg *sync.WaitGroup, r io.Reader, stream, archivePath string) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		e.logger.Info(stream, "archive", archivePath, "line", scanner.Text())
	}
	// Drain the rest after an overlong line.
	_, _ = io.Copy(io.Discard, r)
}
