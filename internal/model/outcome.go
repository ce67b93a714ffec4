package model

import "time"

// DownloadTarget pairs a category with the archive path it is fetched to.
type DownloadTarget struct {
	ID   CategoryID
	Path string
}

// SplitResult describes one train/validation split pass.
type SplitResult struct {
	// TotalFiles is the number of entries found in the train directory.
	TotalFiles int

	// ValidationCount is floor(TotalFiles * percent / 100).
	ValidationCount int

	// Moved lists the names that were moved to the validation directory.
	// It is shorter than ValidationCount only when some moves failed.
	Moved []string
}

// ValidationCount returns floor(total * percent / 100) for non-negative inputs.
func ValidationCount(total, percent int) int {
	if total <= 0 || percent <= 0 {
		return 0
	}
	if percent >= 100 {
		return total
	}
	return total * percent / 100
}

// InstructionOutcome aggregates the results of one instruction.
type InstructionOutcome struct {
	Instruction Instruction

	// Resolved is the number of category ids the instruction expanded to.
	Resolved int

	// Attempted counts ids whose pipeline ran (success or failure).
	Attempted int

	// Failed counts ids whose fetch, extraction start or split failed.
	Failed int

	// Skipped counts ids whose archive was already on disk.
	Skipped int

	// ExtractionWarnings counts extractions that exited non-zero.
	ExtractionWarnings int

	// Bytes is the number of archive bytes downloaded.
	Bytes int64

	// Err is set when the instruction itself could not be processed
	// (label directories or id resolution).
	Err error
}

// Succeeded reports whether the instruction resolved and every id passed.
func (o InstructionOutcome) Succeeded() bool {
	return o.Err == nil && o.Failed == 0
}

// RunOutcome aggregates a full multi-instruction run.
type RunOutcome struct {
	RunID        string
	Started      time.Time
	Finished     time.Time
	Instructions []InstructionOutcome
}

// Succeeded reports whether every instruction succeeded.
func (r RunOutcome) Succeeded() bool {
	for _, o := range r.Instructions {
		if !o.Succeeded() {
			return false
		}
	}
	return true
}

// Totals sums the per-instruction counters.
func (r RunOutcome) Totals() InstructionOutcome {
	var total InstructionOutcome
	for _, o := range r.Instructions {
		total.Resolved += o.Resolved
		total.Attempted += o.Attempted
		total.Failed += o.Failed
		total.Skipped += o.Skipped
		total.ExtractionWarnings += o.ExtractionWarnings
		total.Bytes += o.Bytes
	}
	return total
}

// Duration returns how long the run took.
func (r RunOutcome) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}
