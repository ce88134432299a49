package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/stupside/reelmeta/internal/metadata"
)

// Extractor is anything that turns a URL into metadata.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) (*metadata.VideoMetadata, error)
}

// Result pairs a URL with its extraction outcome.
type Result struct {
	URL      string                  `json:"url"`
	Metadata *metadata.VideoMetadata `json:"metadata,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// ExtractAll runs Extract concurrently on all URLs, at most limit at a
// time, and returns results in input order.
func ExtractAll(ctx context.Context, ex Extractor, urls []string, limit int) []Result {
	var g errgroup.Group
	g.SetLimit(max(limit, 1))

	results := make([]Result, len(urls))

	for i, rawURL := range urls {
		g.Go(func() error {
			results[i].URL = rawURL

			md, err := ex.Extract(ctx, rawURL)
			if err != nil {
				slog.WarnContext(ctx, "pipeline: extraction failed", "url", rawURL, "error", err)
				results[i].Error = err.Error()
				return nil
			}
			results[i].Metadata = md
			return nil
		})
	}

	_ = g.Wait()

	return results
}
