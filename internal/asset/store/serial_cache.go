package store

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const serialSetKey = "ecotrace:serials"

// SerialCache is a best-effort Redis set of known serial numbers, used by the
// bulk register path to reject duplicates before touching the primary store.
// Cache errors degrade to a miss: the store-level unique index remains the
// authority on serial uniqueness.
type SerialCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewSerialCache(client *redis.Client, logger *slog.Logger) *SerialCache {
	return &SerialCache{client: client, logger: logger}
}

// Contains reports whether the serial is known to the cache. False on any
// cache error.
func (c *SerialCache) Contains(ctx context.Context, serial string) bool {
	if c == nil || c.client == nil {
		return false
	}
	known, err := c.client.SIsMember(ctx, serialSetKey, normalizeSerial(serial)).Result()
	if err != nil {
		c.logger.WarnContext(ctx, "serial cache lookup failed", "error", err)
		return false
	}
	return known
}

// Add records a serial in the cache after a successful create.
func (c *SerialCache) Add(ctx context.Context, serial string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.SAdd(ctx, serialSetKey, normalizeSerial(serial)).Err(); err != nil {
		c.logger.WarnContext(ctx, "serial cache add failed", "error", err)
	}
}
