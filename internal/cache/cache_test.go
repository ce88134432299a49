package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupside/reelmeta/internal/app"
	"github.com/stupside/reelmeta/internal/metadata"
	"github.com/stupside/reelmeta/internal/platform"
)

type stubExtractor struct {
	md    *metadata.VideoMetadata
	err   error
	calls int
}

func (s *stubExtractor) Extract(context.Context, string) (*metadata.VideoMetadata, error) {
	s.calls++
	if s.md == nil {
		return nil, s.err
	}
	return s.md.Clone(), s.err
}

func setup(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func complete() *metadata.VideoMetadata {
	md := metadata.New(platform.TikTok)
	md.SetTitle("hello")
	md.SetVideoURL("https://v16/a.mp4")
	md.SetStats(&metadata.Stats{Plays: 10})
	return md
}

const testURL = "https://www.tiktok.com/@u/video/1"

func TestCacheMissThenHit(t *testing.T) {
	mr, rdb := setup(t)
	next := &stubExtractor{md: complete()}
	c := New(next, rdb, time.Minute)

	first, err := c.Extract(context.Background(), testURL)
	require.NoError(t, err)
	second, err := c.Extract(context.Background(), testURL)
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists(Key(testURL)))
	assert.Equal(t, time.Minute, mr.TTL(Key(testURL)))
}

func TestCacheExpires(t *testing.T) {
	mr, rdb := setup(t)
	next := &stubExtractor{md: complete()}
	c := New(next, rdb, time.Minute)

	_, _ = c.Extract(context.Background(), testURL)
	mr.FastForward(2 * time.Minute)
	_, _ = c.Extract(context.Background(), testURL)

	assert.Equal(t, 2, next.calls)
}

func TestCacheSkipsPartialResults(t *testing.T) {
	mr, rdb := setup(t)
	partial := metadata.New(platform.Instagram)
	partial.SetTitle("no video")
	c := New(&stubExtractor{md: partial}, rdb, time.Minute)

	_, err := c.Extract(context.Background(), testURL)
	require.NoError(t, err)
	assert.False(t, mr.Exists(Key(testURL)))
}

func TestCachePassesErrorsThrough(t *testing.T) {
	_, rdb := setup(t)
	c := New(&stubExtractor{err: platform.ErrUnsupported}, rdb, time.Minute)

	_, err := c.Extract(context.Background(), "https://example.com/x")
	assert.ErrorIs(t, err, platform.ErrUnsupported)
}

func TestCacheSurvivesRedisOutage(t *testing.T) {
	mr, rdb := setup(t)
	next := &stubExtractor{md: complete()}
	c := New(next, rdb, time.Minute)
	mr.Close()

	md, err := c.Extract(context.Background(), testURL)
	require.NoError(t, err)
	assert.Equal(t, "https://v16/a.mp4", md.VideoURL)
}

func TestCacheIgnoresCorruptEntry(t *testing.T) {
	mr, rdb := setup(t)
	require.NoError(t, mr.Set(Key(testURL), "{not json"))
	next := &stubExtractor{md: complete()}

	_, err := New(next, rdb, time.Minute).Extract(context.Background(), testURL)
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()

	client, err := NewClient(context.Background(), app.CacheConfig{Enabled: true, Addr: addr})
	require.NoError(t, err)
	client.Close()

	mr.Close()
	_, err = NewClient(context.Background(), app.CacheConfig{Enabled: true, Addr: addr})
	assert.Error(t, err)
}
