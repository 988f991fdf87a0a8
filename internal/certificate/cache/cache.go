// Package cache keeps rendered certificate documents in Redis so repeated
// retrievals skip re-rendering.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "certdoc:"
	defaultTTL = 24 * time.Hour
)

// DocumentCache stores documents keyed by certificate identity and layout version.
// Records are immutable, so entries never need invalidation.
type DocumentCache struct {
	client  redis.Cmdable
	version string
	ttl     time.Duration
}

// New creates a cache for documents produced by the given renderer version.
func New(client redis.Cmdable, version string, ttl time.Duration) *DocumentCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &DocumentCache{client: client, version: version, ttl: ttl}
}

func (c *DocumentCache) key(id int64) string {
	return keyPrefix + "v" + c.version + ":" + strconv.FormatInt(id, 10)
}

// Get returns the cached document and whether it was present.
func (c *DocumentCache) Get(ctx context.Context, id int64) ([]byte, bool, error) {
	doc, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached document %d: %w", id, err)
	}
	return doc, true, nil
}

// Put stores the document with the configured TTL.
func (c *DocumentCache) Put(ctx context.Context, id int64, document []byte) error {
	if err := c.client.Set(ctx, c.key(id), document, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache document %d: %w", id, err)
	}
	return nil
}
