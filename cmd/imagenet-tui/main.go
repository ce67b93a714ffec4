package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/handiism/imagenet-downloader/internal/config"
	"github.com/handiism/imagenet-downloader/internal/logging"
	"github.com/handiism/imagenet-downloader/internal/tui"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var logFile string

	cmd := &cobra.Command{
		Use:           "imagenet-tui",
		Short:         "Interactive ImageNet dataset builder",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFlag
			if path == "" {
				var err error
				if path, err = config.DefaultPath(); err != nil {
					return err
				}
			}
			settings, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config %s: %w", path, err)
			}

			// The alternate screen owns the terminal, so logs go to a file or nowhere.
			var w io.Writer = io.Discard
			if logFile != "" {
				if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
					return err
				}
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				w = f
			}
			logger, err := logging.New(logging.Options{
				Level:  settings.Logging.Level,
				Format: settings.Logging.Format,
				Writer: w,
			})
			if err != nil {
				return err
			}

			return tui.Run(settings, logger)
		},
	}

	cmd.Flags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file")
	return cmd
}
