package store

import (
	"context"
	stderrors "errors"

	"github.com/redis/go-redis/v9"

	"github.com/adverant/nexus/region-annotator/internal/errors"
)

// ImageReference returns the key stored in field of the record at key
func (c *Conn) ImageReference(ctx context.Context, key, field string) (string, error) {
	ref, err := c.client.HGet(ctx, key, field).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return "", errors.NewNoDataError(key)
		}
		return "", errors.NewStoreFailedError(key, "HGET", err)
	}
	return ref, nil
}

// LoadImage returns the raw image bytes. Without a field the bytes live at key;
// with a field, key is a record whose field names the key holding the bytes.
func (c *Conn) LoadImage(ctx context.Context, key, field string) ([]byte, error) {
	if field != "" {
		ref, err := c.ImageReference(ctx, key, field)
		if err != nil {
			return nil, err
		}
		key = ref
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, errors.NewNoDataError(key)
		}
		return nil, errors.NewStoreFailedError(key, "GET", err)
	}
	return data, nil
}
