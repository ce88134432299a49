package cmd

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/urfave/cli/v3"

	"github.com/stupside/reelmeta/internal/app"
	"github.com/stupside/reelmeta/internal/pipeline"
	"github.com/stupside/reelmeta/internal/platform"
	"github.com/stupside/reelmeta/internal/version"
)

const description = `reelmeta recovers the title, description, thumbnail, direct media URL and
engagement counters of a public Instagram, TikTok or Facebook video from its
page URL. It tries page metadata, embedded hydration state and a pattern scan
before falling back to a headless mobile Chrome that watches the network.

Configuration is read from the YAML file given by --config, then .env, then
REELMETA_ environment variables (REELMETA_GRAPH__APP_ID sets graph.app_id).`

// Root returns the root CLI command.
func Root() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:        "reelmeta",
		Usage:       "Extract video metadata from short-form video links",
		Description: description,
		Version:     version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "YAML configuration file; missing files fall back to defaults",
				Value:       "config.yaml",
				Destination: &configPath,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Log at debug level and save browser snapshots under .debug/",
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "Write logs as JSON",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := app.Load(configPath)
			if err != nil {
				return ctx, err
			}
			cmd.Metadata["config"] = cfg
			cmd.Metadata["config_path"] = configPath
			return ctx, nil
		},
		Commands: []*cli.Command{
			scrapeCommand(),
			serveCommand(),
			infoCommand(),
		},
		Metadata: map[string]any{},
	}
}

// infoCommand reports the build and the effective extraction policy.
func infoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Print build information and per-platform extraction policy",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			slog.InfoContext(ctx, "build",
				"version", version.Version,
				"commit", version.Commit,
				"build_time", version.BuildTime,
				"go", runtime.Version(),
			)

			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}

			slog.InfoContext(ctx, "config",
				"path", cmd.Root().Metadata["config_path"],
				"graph_credentials", cfg.Graph.AppID != "" && cfg.Graph.ClientToken != "",
				"cache", cfg.Cache.Enabled,
			)

			for _, kind := range platform.Kinds() {
				p := pipeline.Policy(cfg.Platforms, kind)
				slog.InfoContext(ctx, "platform",
					"name", kind,
					"api_first", p.APIFirst,
					"trust_embedded_state", p.TrustEmbeddedState,
					"browser_mode", p.Browser.Mode,
					"attempts", p.Browser.Attempts,
					"block_resources", p.Browser.BlockResources,
				)
			}
			return nil
		},
	}
}
