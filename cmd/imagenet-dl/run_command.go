package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/handiism/imagenet-downloader/internal/config"
	"github.com/handiism/imagenet-downloader/internal/download"
	"github.com/handiism/imagenet-downloader/internal/history"
	ioutils "github.com/handiism/imagenet-downloader/internal/io"
	"github.com/handiism/imagenet-downloader/internal/model"
)

type runOptions struct {
	wnids       string
	label       string
	recursive   bool
	manifest    string
	concurrency int
	split       int
	baseDir     string
	noProgress  bool
	verbose     bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Download, extract and split synsets into a dataset",
		Example: `  imagenet-dl run --label dog --wnid n02084071 --recursive
  imagenet-dl run --label dog --wnid n02085620,n02085782
  imagenet-dl run --manifest instructions.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			if err := applyRunOverrides(cmd, settings, opts); err != nil {
				return err
			}
			if err := settings.RequireCredentials(); err != nil {
				return err
			}
			instructions, err := resolveInstructions(opts, settings)
			if err != nil {
				return err
			}
			return executeRun(cmd, ctx, settings, instructions, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.wnids, "wnid", "w", "", "Parent WNID(s), comma-separated")
	cmd.Flags().StringVarP(&opts.label, "label", "l", "", "Label (directory name) for the downloaded images")
	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "r", false, "Download every hyponym of the WNID instead of the WNID itself")
	cmd.Flags().StringVarP(&opts.manifest, "manifest", "m", "", "JSON file with a list of instructions")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Categories processed at once (overrides config)")
	cmd.Flags().IntVar(&opts.split, "split", 0, "Validation percentage 0-100 (overrides config)")
	cmd.Flags().StringVarP(&opts.baseDir, "base-dir", "o", "", "Dataset base directory (overrides config)")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable the download progress bar")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show per-category progress messages")
	cmd.MarkFlagsMutuallyExclusive("wnid", "manifest")

	return cmd
}

func applyRunOverrides(cmd *cobra.Command, settings *config.Settings, opts runOptions) error {
	if cmd.Flags().Changed("concurrency") {
		settings.MaxConcurrentDownloads = opts.concurrency
	}
	if cmd.Flags().Changed("split") {
		settings.ValidationSplit = opts.split
	}
	if cmd.Flags().Changed("base-dir") {
		base, err := config.ExpandPath(opts.baseDir)
		if err != nil {
			return err
		}
		settings.BaseDir = base
	}
	return settings.Validate()
}

func resolveInstructions(opts runOptions, settings *config.Settings) ([]model.Instruction, error) {
	if strings.TrimSpace(opts.wnids) != "" {
		if strings.TrimSpace(opts.label) == "" {
			return nil, errors.New("--label is required with --wnid")
		}
		return model.ExpandInstructions(opts.label, opts.wnids, opts.recursive)
	}

	manifest := strings.TrimSpace(opts.manifest)
	if manifest == "" {
		manifest = settings.Manifest
	}
	if manifest == "" {
		return nil, errors.New("nothing to download: pass --label and --wnid, or --manifest")
	}
	path, err := config.ExpandPath(manifest)
	if err != nil {
		return nil, err
	}
	return model.LoadManifest(path)
}

func executeRun(cmd *cobra.Command, ctx *commandContext, settings *config.Settings, instructions []model.Instruction, opts runOptions) error {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	logger, err := ctx.logger(stderr)
	if err != nil {
		return err
	}

	var bars *aggregateBar
	if !opts.noProgress && isTerminal(stderr) {
		bars = newAggregateBar(stderr)
	}

	printer := newEventPrinter(stdout, opts.verbose, bars)
	var factory download.BarFactory
	if bars != nil {
		factory = bars.factory
	}
	manager := download.NewManager(settings, logger, printer.print, factory)

	if err := manager.PrepareLayout(); err != nil {
		return fmt.Errorf("prepare dataset directories: %w", err)
	}

	layout := manager.Layout()
	lock, err := ioutils.AcquireLock(layout.LockPath())
	if err != nil {
		return err
	}
	defer lock.Release()

	var store *history.Store
	if settings.History {
		store, err = history.Open(cmd.Context(), history.Path(layout))
		if err != nil {
			return fmt.Errorf("open run history: %w", err)
		}
		defer store.Close()
	}

	fmt.Fprintf(stdout, "Dataset: %s\n", layout.BaseDir)
	fmt.Fprintf(stdout, "Instructions: %d, concurrency %d, validation %d%%\n\n",
		len(instructions), settings.MaxConcurrentDownloads, settings.ValidationSplit)

	outcome := manager.Run(cmd.Context(), instructions)
	if bars != nil {
		bars.close()
	}

	if store != nil {
		// Interrupted runs are recorded too.
		if err := store.Record(context.WithoutCancel(cmd.Context()), outcome); err != nil {
			logger.Warn("record run history", "error", err)
		}
	}

	fmt.Fprintln(stdout)
	writeRunSummary(stdout, outcome)

	if err := cmd.Context().Err(); err != nil {
		return err
	}
	if !outcome.Succeeded() {
		return errRunFailed
	}
	return nil
}

type eventPrinter struct {
	out     io.Writer
	verbose bool
	bars    *aggregateBar
}

func newEventPrinter(out io.Writer, verbose bool, bars *aggregateBar) *eventPrinter {
	return &eventPrinter{out: out, verbose: verbose, bars: bars}
}

func (p *eventPrinter) print(event download.ProgressEvent) {
	if event.Level == download.LevelVerbose && !p.verbose {
		return
	}
	line := eventPrefix(event.Level) + event.Message
	if p.bars != nil {
		p.bars.println(p.out, line)
		return
	}
	fmt.Fprintln(p.out, line)
}

func eventPrefix(level download.ProgressLevel) string {
	switch level {
	case download.LevelError:
		return "[error] "
	case download.LevelWarning:
		return "[warn]  "
	case download.LevelSuccess:
		return "[ok]    "
	case download.LevelInfo:
		return "[info]  "
	default:
		return "        "
	}
}
