package cmd

import (
	"context"
	"log/slog"

	"github.com/stupside/reelmeta/internal/app"
	"github.com/stupside/reelmeta/internal/browser"
	"github.com/stupside/reelmeta/internal/cache"
	"github.com/stupside/reelmeta/internal/fetcher"
	"github.com/stupside/reelmeta/internal/graph"
	"github.com/stupside/reelmeta/internal/pipeline"
)

// newExtractor wires the engine from config. The returned func releases
// the cache connection.
func newExtractor(ctx context.Context, cfg *app.Config, f *fetcher.Client) (pipeline.Extractor, func()) {
	graphClient := graph.New(cfg.Graph)
	if !graphClient.Enabled() {
		slog.WarnContext(ctx, "graph api credentials not set, facebook falls back to scraping")
	}

	var ex pipeline.Extractor = pipeline.New(cfg.Platforms, pipeline.Deps{
		Fetcher:  f,
		Graph:    graphClient,
		Browsers: pipeline.Sessions(browser.NewChrome(cfg.Browser), cfg.Platforms),
	})

	if !cfg.Cache.Enabled {
		return ex, func() {}
	}

	rdb, err := cache.NewClient(ctx, cfg.Cache)
	if err != nil {
		slog.WarnContext(ctx, "result cache disabled", "addr", cfg.Cache.Addr, "error", err)
		return ex, func() {}
	}

	slog.InfoContext(ctx, "result cache enabled", "addr", cfg.Cache.Addr, "ttl", cfg.Cache.TTL)
	return cache.New(ex, rdb, cfg.Cache.TTL), func() { rdb.Close() }
}
