package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/handiism/imagenet-downloader/internal/http"
	"github.com/handiism/imagenet-downloader/internal/imagenet"
	"github.com/handiism/imagenet-downloader/internal/model"
)

func newWordsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "words <wnid>",
		Short: "Print the words of a synset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.imagenetClient(cmd)
			if err != nil {
				return err
			}
			words, err := client.Words(cmd.Context(), model.CategoryID(strings.TrimSpace(args[0])))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, w := range words {
				fmt.Fprintln(out, w)
			}
			return nil
		},
	}
}

func newURLsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "urls <wnid>",
		Short: "Print the image URLs of a synset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.imagenetClient(cmd)
			if err != nil {
				return err
			}
			urls, err := client.URLs(cmd.Context(), model.CategoryID(strings.TrimSpace(args[0])))
			if err != nil {
				return err
			}
			if limit > 0 && len(urls) > limit {
				urls = urls[:limit]
			}
			out := cmd.OutOrStdout()
			for _, u := range urls {
				fmt.Fprintln(out, u)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Print at most n URLs (0 for all)")
	return cmd
}

func newMappingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mapping <wnid>",
		Short: "Print the image file names of a synset with their source URLs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.imagenetClient(cmd)
			if err != nil {
				return err
			}
			mappings, err := client.Mapping(cmd.Context(), model.CategoryID(strings.TrimSpace(args[0])))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range mappings {
				fmt.Fprintf(out, "%s\t%s\n", m.Name, m.URL)
			}
			return nil
		},
	}
}

func (c *commandContext) imagenetClient(cmd *cobra.Command) (*imagenet.Client, error) {
	settings, err := c.ensureSettings()
	if err != nil {
		return nil, err
	}
	logger, err := c.logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return imagenet.NewClient(http.NewClient(settings.HTTPTimeout()), settings.APIBaseURL, logger), nil
}
