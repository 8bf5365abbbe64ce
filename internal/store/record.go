package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/adverant/nexus/region-annotator/internal/errors"
)

// Reserved record fields. They never reach the store as hash fields.
const (
	MetaDBKey  = "META_DB_KEY"
	MetaDBTTL  = "META_DB_TTL"
	metaPrefix = "META_"
)

// Record is a per-image hash plus its META_ fields
type Record map[string]string

// NewRecord creates an empty record with a fresh key and no expiration
func NewRecord() Record {
	return Record{
		MetaDBKey: uuid.NewString(),
		MetaDBTTL: "-1",
	}
}

// Key returns the record's store key, if it has one
func (r Record) Key() (string, bool) {
	k, ok := r[MetaDBKey]
	return k, ok
}

// Create adds an empty field and reports whether it was new
func (r Record) Create(field string) bool {
	if _, ok := r[field]; ok {
		return false
	}
	r[field] = ""
	return true
}

func (r Record) Set(field, value string) {
	r[field] = value
}

// Remove deletes a field and reports whether it was present
func (r Record) Remove(field string) bool {
	if _, ok := r[field]; !ok {
		return false
	}
	delete(r, field)
	return true
}

// Fields returns the record without META_ fields
func (r Record) Fields() map[string]string {
	out := make(map[string]string, len(r))
	for k, v := range r {
		if !strings.HasPrefix(k, metaPrefix) {
			out[k] = v
		}
	}
	return out
}

// TTL parses META_DB_TTL. Absent, unparsable or non-positive values mean no expiration.
func (r Record) TTL() (time.Duration, bool) {
	raw, ok := r[MetaDBTTL]
	if !ok {
		return 0, false
	}
	secs, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || secs <= 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// LoadRecord reads the hash at key and tags it with META_DB_KEY
func (c *Conn) LoadRecord(ctx context.Context, key string) (Record, error) {
	fields, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, errors.NewStoreFailedError(key, "HGETALL", err)
	}
	rec := Record(fields)
	rec[MetaDBKey] = key
	return rec, nil
}

// WriteRecord stores the record's plain fields, deletes hash fields the record no
// longer has, and applies META_DB_TTL. rec is not modified.
func (c *Conn) WriteRecord(ctx context.Context, rec Record) error {
	key, ok := rec.Key()
	if !ok || key == "" {
		return errors.NewMergeKeyMissingError(MetaDBKey)
	}

	fields := rec.Fields()
	existing, err := c.client.HKeys(ctx, key).Result()
	if err != nil {
		return errors.NewStoreFailedError(key, "HKEYS", err)
	}

	var stale []string
	for _, f := range existing {
		if _, ok := fields[f]; !ok {
			stale = append(stale, f)
		}
	}

	ttl, expires := rec.TTL()
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(fields) > 0 {
			pipe.HSet(ctx, key, fields)
		}
		if len(stale) > 0 {
			pipe.HDel(ctx, key, stale...)
		}
		if expires {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return errors.NewStoreFailedError(key, "HSET", err)
	}

	if len(stale) > 0 {
		c.logger.Debug("Removed record fields", "key", key, "fields", stale)
	}
	return nil
}

// DeleteRecord removes the record. A record without a key is a no-op.
func (c *Conn) DeleteRecord(ctx context.Context, rec Record) error {
	key, ok := rec.Key()
	if !ok {
		c.logger.Debug("Delete skipped, record has no key")
		return nil
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return errors.NewStoreFailedError(key, "DEL", err)
	}
	return nil
}
