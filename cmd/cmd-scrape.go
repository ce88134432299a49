package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/stupside/reelmeta/internal/app"
	"github.com/stupside/reelmeta/internal/fetcher"
	"github.com/stupside/reelmeta/internal/pipeline"
)

// scrapeCommand returns the "scrape" CLI subcommand.
func scrapeCommand() *cli.Command {
	return &cli.Command{
		Name:      "scrape",
		Usage:     "Extract metadata for one or more video URLs and print it as JSON",
		ArgsUsage: "URL [URL...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Maximum URLs extracted at once (defaults to scrape.max_concurrency)",
			},
			&cli.BoolFlag{
				Name:  "compact",
				Usage: "Print JSON without indentation",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			urls := cmd.Args().Slice()
			if len(urls) == 0 {
				return errors.New("at least one URL is required")
			}

			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}

			ex, release := newExtractor(ctx, cfg, fetcher.New(cfg.Fetch))
			defer release()

			limit := cfg.Scrape.MaxConcurrency
			if n := cmd.Int("concurrency"); n > 0 {
				limit = n
			}

			results := pipeline.ExtractAll(ctx, ex, urls, limit)

			enc := json.NewEncoder(os.Stdout)
			if !cmd.Bool("compact") {
				enc.SetIndent("", "  ")
			}

			var out any = results
			if len(results) == 1 && results[0].Error == "" {
				out = results[0].Metadata
			}
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}

			var failed int
			for _, r := range results {
				if r.Error != "" {
					failed++
				}
			}
			if failed == len(results) {
				return fmt.Errorf("all %d urls failed", failed)
			}
			return nil
		},
	}
}
