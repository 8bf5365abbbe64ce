/**
 * Shared store connection for the region annotator
 *
 * One Conn is built at startup from configuration and handed to every component that
 * needs the store. Keys that embed the endpoint (session, sources list) are derived
 * from the host/port the Conn was built with, so every client pointed at the same
 * endpoint shares one session document.
 */

package store

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/adverant/nexus/region-annotator/internal/errors"
	"github.com/adverant/nexus/region-annotator/internal/logging"
)

// Options holds connection settings
type Options struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Conn wraps the store client together with the endpoint it points at
type Conn struct {
	client *redis.Client
	host   string
	port   int
	db     int
	logger *logging.Logger
}

// NewConn connects to the store and verifies the connection
func NewConn(ctx context.Context, opts Options) (*Conn, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("store host is required")
	}
	if opts.Port <= 0 {
		return nil, fmt.Errorf("store port is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		Password: opts.Password,
		DB:       opts.DB,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.NewStoreFailedError("", "PING", err)
	}

	return &Conn{
		client: client,
		host:   opts.Host,
		port:   opts.Port,
		db:     opts.DB,
		logger: logging.NewLogger("store"),
	}, nil
}

// Close releases the client
func (c *Conn) Close() error {
	return c.client.Close()
}

func (c *Conn) Host() string { return c.host }

func (c *Conn) Port() int { return c.port }

// SessionKey is <namespace>:session:<host>:<port>
func (c *Conn) SessionKey(namespace string) string {
	return fmt.Sprintf("%s:session:%s:%d", namespace, c.host, c.port)
}

// SourcesKey is the list of record keys that "run on all" iterates,
// <namespace>:<host>:<port>
func (c *Conn) SourcesKey(namespace string) string {
	return fmt.Sprintf("%s:%s:%d", namespace, c.host, c.port)
}

// KeyspaceChannel is the channel the store publishes key events for key on
func (c *Conn) KeyspaceChannel(key string) string {
	return c.keyspacePrefix() + key
}

func (c *Conn) keyspacePrefix() string {
	return fmt.Sprintf("__keyspace@%d__:", c.db)
}

// EnableKeyspaceEvents turns on keyspace notifications for all key events
func (c *Conn) EnableKeyspaceEvents(ctx context.Context) error {
	if err := c.client.ConfigSet(ctx, "notify-keyspace-events", "KA").Err(); err != nil {
		return errors.NewStoreFailedError("", "CONFIG SET", err)
	}
	return nil
}

// Sources returns the record keys listed under the sources key
func (c *Conn) Sources(ctx context.Context, namespace string) ([]string, error) {
	key := c.SourcesKey(namespace)
	sources, err := c.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, errors.NewStoreFailedError(key, "LRANGE", err)
	}
	return sources, nil
}

// SourcePosition returns the index of recordKey in the sources list
func (c *Conn) SourcePosition(ctx context.Context, namespace, recordKey string) (int, bool, error) {
	sources, err := c.Sources(ctx, namespace)
	if err != nil {
		return 0, false, err
	}
	for i, s := range sources {
		if s == recordKey {
			return i, true, nil
		}
	}
	return 0, false, nil
}
