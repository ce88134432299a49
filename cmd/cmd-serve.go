package cmd

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/stupside/reelmeta/internal/app"
	"github.com/stupside/reelmeta/internal/fetcher"
	"github.com/stupside/reelmeta/internal/server"
)

// serveCommand returns the "serve" CLI subcommand.
func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the scrape and download endpoints over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to server.addr)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}

			serverCfg := cfg.Server
			if addr := cmd.String("addr"); addr != "" {
				serverCfg.Addr = addr
			}

			f := fetcher.New(cfg.Fetch)
			ex, release := newExtractor(ctx, cfg, f)
			defer release()

			return server.New(serverCfg, ex, f).Run(ctx)
		},
	}
}
