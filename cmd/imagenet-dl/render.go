package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/handiism/imagenet-downloader/internal/download"
	"github.com/handiism/imagenet-downloader/internal/model"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, footer []string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	tw.AppendHeader(toRow(headers, columns))
	for _, row := range rows {
		tw.AppendRow(toRow(row, columns))
	}
	if len(footer) > 0 {
		tw.AppendFooter(toRow(footer, columns))
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			AlignFooter: align,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func toRow(values []string, columns int) table.Row {
	r := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		if i < len(values) {
			r[i] = values[i]
		} else {
			r[i] = ""
		}
	}
	return r
}

func writeRunSummary(w io.Writer, run model.RunOutcome) {
	headers := []string{"Label", "WNID", "Recursive", "Categories", "Failed", "Skipped", "Warnings", "Downloaded", "Status"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft}

	rows := make([][]string, 0, len(run.Instructions))
	for _, o := range run.Instructions {
		rows = append(rows, []string{
			o.Instruction.Label,
			o.Instruction.RootID.String(),
			yesNo(o.Instruction.Recursive),
			strconv.Itoa(o.Resolved),
			strconv.Itoa(o.Failed),
			strconv.Itoa(o.Skipped),
			strconv.Itoa(o.ExtractionWarnings),
			formatBytes(o.Bytes),
			instructionStatus(o),
		})
	}

	totals := run.Totals()
	footer := []string{
		"Total", "", "",
		strconv.Itoa(totals.Resolved),
		strconv.Itoa(totals.Failed),
		strconv.Itoa(totals.Skipped),
		strconv.Itoa(totals.ExtractionWarnings),
		formatBytes(totals.Bytes),
		runStatus(run.Succeeded()),
	}

	fmt.Fprintln(w, renderTable(headers, rows, footer, aligns))
	fmt.Fprintf(w, "Run %s finished in %s\n", run.RunID, run.Duration().Round(time.Second))
	for _, o := range run.Instructions {
		if o.Err != nil {
			fmt.Fprintf(w, "  %s (%s): %v\n", o.Instruction.Label, o.Instruction.RootID, o.Err)
		}
	}
}

func instructionStatus(o model.InstructionOutcome) string {
	switch {
	case o.Err != nil:
		return "error"
	case o.Failed > 0:
		return "partial"
	default:
		return "ok"
	}
}

func runStatus(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func formatBytes(n int64) string {
	if n <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(n))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// aggregateBar shows one spinner with the combined byte count of all
// concurrent archive downloads.
type aggregateBar struct {
	mu     sync.Mutex
	bar    *progressbar.ProgressBar
	active int
	done   int
}

func newAggregateBar(w io.Writer) *aggregateBar {
	return &aggregateBar{
		bar: progressbar.NewOptions64(-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("waiting"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		),
	}
}

func (a *aggregateBar) factory(id model.CategoryID, total int64) download.ProgressBar {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active++
	a.describe()
	return &archiveBar{parent: a}
}

func (a *aggregateBar) describe() {
	a.bar.Describe(fmt.Sprintf("%d downloading, %d done", a.active, a.done))
}

func (a *aggregateBar) println(w io.Writer, line string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.bar.Clear()
	fmt.Fprintln(w, line)
}

func (a *aggregateBar) close() {
	_ = a.bar.Finish()
}

type archiveBar struct {
	parent *aggregateBar
	once   sync.Once
}

func (b *archiveBar) Add64(n int64) error {
	return b.parent.bar.Add64(n)
}

func (b *archiveBar) Finish() error {
	b.once.Do(func() {
		b.parent.mu.Lock()
		defer b.parent.mu.Unlock()
		b.parent.active--
		b.parent.done++
		b.parent.describe()
	})
	return nil
}
