package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/handiism/imagenet-downloader/internal/history"
	"github.com/handiism/imagenet-downloader/internal/model"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recent runs, or show the instructions of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			path := history.Path(model.Layout{BaseDir: settings.BaseDir})
			out := cmd.OutOrStdout()
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintf(out, "No runs recorded in %s\n", settings.BaseDir)
				return nil
			}

			store, err := history.Open(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				return showRun(cmd, store, args[0])
			}

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}

			headers := []string{"Run", "Started", "Duration", "Instructions", "Categories", "Failed", "Skipped", "Downloaded", "Status"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.ID,
					humanize.Time(r.StartedAt),
					r.Duration().Round(time.Second).String(),
					strconv.Itoa(r.Instructions),
					strconv.Itoa(r.Resolved),
					strconv.Itoa(r.Failed),
					strconv.Itoa(r.Skipped),
					formatBytes(r.Bytes),
					runStatus(r.Succeeded),
				})
			}
			fmt.Fprintln(out, renderTable(headers, rows, nil, aligns))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to list")
	return cmd
}

func showRun(cmd *cobra.Command, store *history.Store, runID string) error {
	run, err := store.Get(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}
	records, err := store.Instructions(cmd.Context(), runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s started %s (%s), %s\n\n",
		run.ID, run.StartedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(run.StartedAt), runStatus(run.Succeeded))

	headers := []string{"#", "Label", "WNID", "Recursive", "Categories", "Failed", "Skipped", "Warnings", "Downloaded", "Error"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.Itoa(r.Position + 1),
			r.Label,
			r.WNID,
			yesNo(r.Recursive),
			strconv.Itoa(r.Resolved),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Warnings),
			formatBytes(r.Bytes),
			r.Error,
		})
	}
	fmt.Fprintln(out, renderTable(headers, rows, nil, aligns))
	return nil
}
