package store

import (
	"context"
	stderrors "errors"

	"github.com/redis/go-redis/v9"

	"github.com/adverant/nexus/region-annotator/internal/errors"
)

// sessionField is the hash field holding the session document
const sessionField = "xml"

// FetchSession returns the stored session document
func (c *Conn) FetchSession(ctx context.Context, key string) (string, error) {
	data, err := c.client.HGet(ctx, key, sessionField).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return "", errors.NewNoDataError(key)
		}
		return "", errors.NewStoreFailedError(key, "HGET", err)
	}
	return data, nil
}

// SaveSession overwrites the stored session document. With explicitNotify the write is
// followed by a keyspace-style publish, for stores that do not emit key events.
func (c *Conn) SaveSession(ctx context.Context, key, xml string, explicitNotify bool) error {
	if err := c.client.HSet(ctx, key, sessionField, xml).Err(); err != nil {
		return errors.NewStoreFailedError(key, "HSET", err)
	}

	if explicitNotify {
		if err := c.client.Publish(ctx, c.KeyspaceChannel(key), "hset").Err(); err != nil {
			// the document is stored; peers resync on their next fetch
			c.logger.Warn("Failed to publish session change", "key", key, "error", err)
		}
	}
	return nil
}
