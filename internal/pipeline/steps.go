package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/stupside/reelmeta/internal/app"
	"github.com/stupside/reelmeta/internal/browser"
	"github.com/stupside/reelmeta/internal/extract"
	"github.com/stupside/reelmeta/internal/graph"
	"github.com/stupside/reelmeta/internal/platform"
)

// step is one strategy in a chain.
type step struct {
	name string
	// final ends the chain when the step fills something.
	final bool
	// needsDocument skips the step when the static fetch failed.
	needsDocument bool
	// needsMedia skips the step once a media URL is known.
	needsMedia bool
	run        func(ctx context.Context, r *request) (extract.Outcome, error)
}

func (e *Engine) chain(kind platform.Kind, policy app.PlatformConfig) []step {
	var steps []step

	if kind == platform.Facebook && policy.APIFirst && e.deps.Graph != nil {
		steps = append(steps, step{name: "graph", final: true, run: e.graphStep})
	}

	// In always mode nothing before the browser may end the chain.
	always := policy.Browser.Mode == app.BrowserAlways

	steps = append(steps,
		step{name: "static", run: e.staticStep},
		step{name: "state", needsDocument: true, final: policy.TrustEmbeddedState && !always, run: stateStep},
		step{name: "pattern", needsDocument: true, needsMedia: true, final: !always, run: patternStep},
	)

	if capturer, ok := e.deps.Browsers[kind]; ok && policy.Browser.Mode != app.BrowserNever {
		steps = append(steps, step{
			name:       "browser",
			final:      true,
			needsMedia: !always,
			run:        browserStep(capturer),
		})
	}

	return steps
}

func (e *Engine) graphStep(ctx context.Context, r *request) (extract.Outcome, error) {
	if !e.deps.Graph.Enabled() {
		return extract.Unfilled, graph.ErrNotConfigured
	}

	id, err := graph.VideoID(r.SourceURL)
	if err != nil {
		return extract.Unfilled, err
	}

	v, err := e.deps.Graph.Video(ctx, id)
	if err != nil {
		return extract.Unfilled, fmt.Errorf("fetching video %s: %w", id, err)
	}

	if v.Apply(r.md, r.SourceURL) {
		return extract.Filled, nil
	}
	return extract.Unfilled, nil
}

func (e *Engine) staticStep(ctx context.Context, r *request) (extract.Outcome, error) {
	doc, err := e.deps.Fetcher.Fetch(ctx, r.SourceURL)
	if err != nil {
		return extract.Unfilled, fmt.Errorf("fetching document: %w", err)
	}
	r.doc = doc

	html, err := extract.ParseDocument(doc.Body)
	if err != nil {
		return extract.Unfilled, err
	}
	return extract.MetaTags(html, r.md), nil
}

func stateStep(_ context.Context, r *request) (extract.Outcome, error) {
	return extract.EmbeddedState(r.Platform, r.doc.Body, r.md), nil
}

func patternStep(_ context.Context, r *request) (extract.Outcome, error) {
	return extract.PatternScan(string(r.doc.Body), r.md), nil
}

func browserStep(c Capturer) func(context.Context, *request) (extract.Outcome, error) {
	return func(ctx context.Context, r *request) (extract.Outcome, error) {
		u, err := c.Capture(ctx, r.SourceURL)
		if err != nil {
			if errors.Is(err, browser.ErrNoMedia) {
				return extract.Unfilled, nil
			}
			return extract.Unfilled, err
		}
		if r.md.SetVideoURL(u) {
			return extract.Filled, nil
		}
		return extract.Unfilled, nil
	}
}
