// Package pipeline runs the per-platform chain of extraction strategies.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stupside/reelmeta/internal/app"
	"github.com/stupside/reelmeta/internal/browser"
	"github.com/stupside/reelmeta/internal/extract"
	"github.com/stupside/reelmeta/internal/fetcher"
	"github.com/stupside/reelmeta/internal/graph"
	"github.com/stupside/reelmeta/internal/metadata"
	"github.com/stupside/reelmeta/internal/metrics"
	"github.com/stupside/reelmeta/internal/platform"
)

// Fetcher retrieves the static document.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Document, error)
}

// Capturer finds a media URL by rendering the page.
type Capturer interface {
	Capture(ctx context.Context, targetURL string) (string, error)
}

// Graph reads video objects from the Graph API.
type Graph interface {
	Enabled() bool
	Video(ctx context.Context, id string) (*graph.Video, error)
}

// Deps are the collaborators shared by every request.
type Deps struct {
	Fetcher Fetcher
	Graph   Graph
	// Browsers holds one Capturer per platform; a missing entry disables
	// the browser step for that platform.
	Browsers map[platform.Kind]Capturer
}

// Engine extracts metadata. It is safe for concurrent use; all
// per-request state lives in the request.
type Engine struct {
	deps   Deps
	chains map[platform.Kind][]step
}

// New builds the strategy chain of every platform from its policy.
func New(cfg app.PlatformsConfig, deps Deps) *Engine {
	e := &Engine{
		deps:   deps,
		chains: make(map[platform.Kind][]step, len(platform.Kinds())),
	}
	for _, kind := range platform.Kinds() {
		e.chains[kind] = e.chain(kind, Policy(cfg, kind))
	}
	return e
}

// Policy returns the configured policy of kind.
func Policy(cfg app.PlatformsConfig, kind platform.Kind) app.PlatformConfig {
	switch kind {
	case platform.Instagram:
		return cfg.Instagram
	case platform.TikTok:
		return cfg.TikTok
	case platform.Facebook:
		return cfg.Facebook
	}
	return app.PlatformConfig{}
}

// Sessions creates one browser session per platform whose mode allows it.
func Sessions(l browser.Launcher, cfg app.PlatformsConfig) map[platform.Kind]Capturer {
	out := make(map[platform.Kind]Capturer, len(platform.Kinds()))
	for _, kind := range platform.Kinds() {
		policy := Policy(cfg, kind).Browser
		if policy.Mode == app.BrowserNever {
			continue
		}
		out[kind] = browser.NewSession(l, browser.OptionsFrom(policy))
	}
	return out
}

// request is the state of one extraction.
type request struct {
	platform.Request
	md  *metadata.VideoMetadata
	doc *fetcher.Document
}

// Extract classifies rawURL and runs its platform's chain. The only error
// returned is platform.ErrUnsupported; strategy failures degrade to a
// partially filled record.
func (e *Engine) Extract(ctx context.Context, rawURL string) (*metadata.VideoMetadata, error) {
	req, err := platform.Classify(rawURL)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	r := &request{Request: req, md: metadata.New(req.Platform)}

	slog.InfoContext(ctx, "pipeline: extracting", "platform", req.Platform, "url", rawURL)

	for _, st := range e.chains[req.Platform] {
		if st.needsDocument && r.doc == nil {
			slog.DebugContext(ctx, "pipeline: skipping step without document", "step", st.name)
			continue
		}
		if st.needsMedia && r.md.HasVideo() {
			continue
		}

		outcome, err := e.run(ctx, st, r)
		label := outcome.String()
		if err != nil {
			label = "error"
			slog.InfoContext(ctx, "pipeline: step failed", "step", st.name, "platform", req.Platform, "error", err)
		} else {
			slog.DebugContext(ctx, "pipeline: step finished", "step", st.name, "outcome", outcome)
		}
		metrics.StrategyOutcomes.WithLabelValues(string(req.Platform), st.name, label).Inc()

		if outcome == extract.Filled && st.final {
			break
		}
	}

	result := "partial"
	if r.md.HasVideo() {
		result = "complete"
	}
	metrics.Extractions.WithLabelValues(string(req.Platform), result).Inc()
	metrics.ExtractionDuration.WithLabelValues(string(req.Platform)).Observe(time.Since(start).Seconds())

	slog.InfoContext(ctx, "pipeline: extracted",
		"platform", req.Platform,
		"url", rawURL,
		"has_video", r.md.HasVideo(),
		"elapsed", time.Since(start),
	)

	return r.md, nil
}

// run executes one step and turns a panic into an error.
func (e *Engine) run(ctx context.Context, st step, r *request) (outcome extract.Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			slog.ErrorContext(ctx, "pipeline: step panicked", "step", st.name, "panic", p)
			outcome, err = extract.Unfilled, fmt.Errorf("step %s panicked: %v", st.name, p)
		}
	}()
	return st.run(ctx, r)
}
