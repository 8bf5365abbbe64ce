package store

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/adverant/nexus/region-annotator/internal/errors"
)

// Subscription forwards the names of changed keys from the store's keyspace events.
// It only forwards; consumers decide what a change means.
type Subscription struct {
	pubsub *redis.PubSub
	prefix string
	keys   chan string
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Subscribe listens for keyspace events on every key of the connection's database
func (c *Conn) Subscribe(ctx context.Context) (*Subscription, error) {
	prefix := c.keyspacePrefix()
	pubsub := c.client.PSubscribe(ctx, prefix+"*")

	// Wait for the subscription to be confirmed so no event after return is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, errors.NewStoreFailedError(prefix+"*", "PSUBSCRIBE", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		pubsub: pubsub,
		prefix: prefix,
		keys:   make(chan string, 64),
		cancel: cancel,
	}

	s.wg.Add(1)
	go s.listen(subCtx)

	c.logger.Info("Subscribed to keyspace events", "pattern", prefix+"*")
	return s, nil
}

// Keys yields changed key names. It is closed when the subscription stops.
func (s *Subscription) Keys() <-chan string {
	return s.keys
}

// Close stops the listener and waits for it to exit
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.pubsub.Close()
		s.wg.Wait()
	})
	return err
}

func (s *Subscription) listen(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.keys)

	messages := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			key := strings.TrimPrefix(msg.Channel, s.prefix)
			select {
			case s.keys <- key:
			case <-ctx.Done():
				return
			}
		}
	}
}
