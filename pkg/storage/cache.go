package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/medrecords/pkg/common/logger"
)

const documentKeyPrefix = "records:doc:"

// DocumentCache keeps encoded documents in Redis keyed by parser version and
// the SHA-256 of the source text, so resubmitted text skips the parser until
// the parser changes.
type DocumentCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDocumentCache(client *redis.Client, ttl time.Duration) *DocumentCache {
	return &DocumentCache{client: client, ttl: ttl}
}

func DocumentKey(contentHash, parserVersion string) string {
	return documentKeyPrefix + parserVersion + ":" + contentHash
}

// Get returns the cached payload. A miss is reported as ok=false with a nil
// error.
func (c *DocumentCache) Get(ctx context.Context, contentHash, parserVersion string) ([]byte, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	data, err := c.client.Get(ctx, DocumentKey(contentHash, parserVersion)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return data, true, nil
}

func (c *DocumentCache) Set(ctx context.Context, contentHash, parserVersion string, payload []byte) error {
	if c == nil || c.client == nil {
		return nil
	}
	key := DocumentKey(contentHash, parserVersion)
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	logger.WithField("key", key).Debug("Cached parsed document")
	return nil
}
