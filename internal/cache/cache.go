// Package cache keeps extraction results in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stupside/reelmeta/internal/app"
	"github.com/stupside/reelmeta/internal/metadata"
	"github.com/stupside/reelmeta/internal/metrics"
	"github.com/stupside/reelmeta/internal/pipeline"
)

const keyPrefix = "reelmeta:result:"

const pingTimeout = 5 * time.Second

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg app.CacheConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Cache decorates an Extractor with a Redis result cache. Only results
// holding a media URL are stored. Redis failures are logged and never fail
// an extraction.
type Cache struct {
	next pipeline.Extractor
	rdb  *redis.Client
	ttl  time.Duration
}

// New wraps next.
func New(next pipeline.Extractor, rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{next: next, rdb: rdb, ttl: ttl}
}

// Key returns the Redis key of rawURL.
func Key(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (c *Cache) Extract(ctx context.Context, rawURL string) (*metadata.VideoMetadata, error) {
	key := Key(rawURL)

	if md, ok := c.lookup(ctx, key); ok {
		slog.DebugContext(ctx, "cache: hit", "url", rawURL)
		return md, nil
	}

	md, err := c.next.Extract(ctx, rawURL)
	if err != nil || md == nil || !md.HasVideo() {
		return md, err
	}

	if raw, err := json.Marshal(md); err != nil {
		slog.WarnContext(ctx, "cache: encoding result failed", "url", rawURL, "error", err)
	} else if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "cache: storing result failed", "url", rawURL, "error", err)
	}

	return md, nil
}

func (c *Cache) lookup(ctx context.Context, key string) (*metadata.VideoMetadata, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		slog.WarnContext(ctx, "cache: lookup failed", "key", key, "error", err)
		return nil, false
	}

	var md metadata.VideoMetadata
	if err := json.Unmarshal(raw, &md); err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		slog.WarnContext(ctx, "cache: decoding cached result failed", "key", key, "error", err)
		return nil, false
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return &md, true
}
