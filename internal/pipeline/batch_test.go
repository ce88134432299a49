package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stupside/reelmeta/internal/metadata"
	"github.com/stupside/reelmeta/internal/platform"
)

type countingExtractor struct {
	inflight atomic.Int32
	peak     atomic.Int32
}

func (c *countingExtractor) Extract(_ context.Context, rawURL string) (*metadata.VideoMetadata, error) {
	kind, err := platform.Detect(rawURL)
	if err != nil {
		return nil, err
	}

	n := c.inflight.Add(1)
	defer c.inflight.Add(-1)
	for {
		peak := c.peak.Load()
		if n <= peak || c.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)

	md := metadata.New(kind)
	md.SetTitle(rawURL)
	return md, nil
}

func TestExtractAllKeepsOrderAndLimit(t *testing.T) {
	urls := []string{
		"https://www.tiktok.com/@a/video/1",
		"https://example.com/nope",
		"https://www.instagram.com/reel/b/",
		"https://www.facebook.com/reel/3",
		"https://www.tiktok.com/@c/video/4",
	}

	ex := &countingExtractor{}
	results := ExtractAll(context.Background(), ex, urls, 2)

	assert.Len(t, results, len(urls))
	for i, r := range results {
		assert.Equal(t, urls[i], r.URL)
	}
	assert.NotEmpty(t, results[1].Error)
	assert.Nil(t, results[1].Metadata)
	assert.Equal(t, platform.Instagram, results[2].Metadata.Platform)
	assert.LessOrEqual(t, ex.peak.Load(), int32(2))
}
