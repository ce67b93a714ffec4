package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	ioutils "github.com/handiism/imagenet-downloader/internal/io"
	"github.com/handiism/imagenet-downloader/internal/model"
)

// FileName is the database file name inside the dataset state directory.
const FileName = "history.db"

// RunSummary is one stored run.
type RunSummary struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Succeeded    bool
	Instructions int
	Resolved     int
	Failed       int
	Skipped      int
	Warnings     int
	Bytes        int64
}

// Duration returns how long the run took.
func (r RunSummary) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// InstructionRecord is one stored instruction outcome.
type InstructionRecord struct {
	Position  int
	Label     string
	WNID      string
	Recursive bool
	Resolved  int
	Attempted int
	Failed    int
	Skipped   int
	Warnings  int
	Bytes     int64
	Error     string
}

// Store persists run outcomes in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Path returns the database location for a dataset layout.
func Path(layout model.Layout) string {
	return filepath.Join(layout.StateDir(), FileName)
}

// Open opens or creates the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := ioutils.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores a finished run and its instruction outcomes.
func (s *Store) Record(ctx context.Context, run model.RunOutcome) error {
	if run.RunID == "" {
		return errors.New("run id is empty")
	}
	totals := run.Totals()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO runs (
            id, started_at, finished_at, succeeded, instruction_count,
            resolved, failed, skipped, warnings, bytes
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		formatTime(run.Started),
		formatTime(run.Finished),
		boolToInt(run.Succeeded()),
		len(run.Instructions),
		totals.Resolved,
		totals.Failed,
		totals.Skipped,
		totals.ExtractionWarnings,
		totals.Bytes,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, o := range run.Instructions {
		var errMsg any
		if o.Err != nil {
			errMsg = o.Err.Error()
		}
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO run_instructions (
                run_id, position, label, wnid, recursive, resolved, attempted,
                failed, skipped, warnings, bytes, error_message
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID,
			i,
			o.Instruction.Label,
			string(o.Instruction.RootID),
			boolToInt(o.Instruction.Recursive),
			o.Resolved,
			o.Attempted,
			o.Failed,
			o.Skipped,
			o.ExtractionWarnings,
			o.Bytes,
			errMsg,
		)
		if err != nil {
			return fmt.Errorf("insert instruction %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = "id, started_at, finished_at, succeeded, instruction_count, resolved, failed, skipped, warnings, bytes"

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns the run with id, or nil when it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*RunSummary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

// Instructions returns the instruction outcomes of a run in order.
func (s *Store) Instructions(ctx context.Context, runID string) ([]InstructionRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT position, label, wnid, recursive, resolved, attempted, failed, skipped, warnings, bytes, error_message
         FROM run_instructions WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query instructions: %w", err)
	}
	defer rows.Close()

	var records []InstructionRecord
	for rows.Next() {
		var (
			rec       InstructionRecord
			recursive int
			errMsg    sql.NullString
		)
		if err := rows.Scan(
			&rec.Position,
			&rec.Label,
			&rec.WNID,
			&recursive,
			&rec.Resolved,
			&rec.Attempted,
			&rec.Failed,
			&rec.Skipped,
			&rec.Warnings,
			&rec.Bytes,
			&errMsg,
		); err != nil {
			return nil, err
		}
		rec.Recursive = recursive != 0
		rec.Error = errMsg.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (RunSummary, error) {
	var (
		run         RunSummary
		startedRaw  string
		finishedRaw string
		succeeded   int
	)
	if err := scanner.Scan(
		&run.ID,
		&startedRaw,
		&finishedRaw,
		&succeeded,
		&run.Instructions,
		&run.Resolved,
		&run.Failed,
		&run.Skipped,
		&run.Warnings,
		&run.Bytes,
	); err != nil {
		return RunSummary{}, err
	}
	run.Succeeded = succeeded != 0
	if t, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
		run.StartedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, finishedRaw); err == nil {
		run.FinishedAt = t
	}
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
