package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"shared-menu/internal/logger"

	"github.com/redis/go-redis/v9"
)

// RedisBroker distributes changes between processes over Redis pub/sub.
// Each table maps to the Redis channel "<prefix>:<table>".
type RedisBroker struct {
	client *redis.Client
	prefix string
}

// NewRedisBroker connects to the Redis server at url (redis://...).
func NewRedisBroker(ctx context.Context, url, prefix string) (*RedisBroker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisBroker{client: client, prefix: prefix}, nil
}

func (b *RedisBroker) topic(table string) string {
	return topicName(b.prefix, table)
}

func topicName(prefix, table string) string {
	if prefix == "" {
		return table
	}
	return prefix + ":" + table
}

func (b *RedisBroker) Publish(ctx context.Context, c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	if err := b.client.Publish(ctx, b.topic(c.Table), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, channel, table string, fn Handler) (Subscription, error) {
	ps := b.client.Subscribe(ctx, b.topic(table))
	// Wait for the subscription confirmation so no change published after
	// Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", table, err)
	}

	s := &redisSub{ps: ps}
	go func() {
		for msg := range ps.Channel() {
			c, err := decodeChange([]byte(msg.Payload))
			if err != nil {
				logger.Warn("ignoring malformed change on %s for %s: %v", msg.Channel, channel, err)
				continue
			}
			fn(c)
		}
	}()
	logger.Debug("subscribed %s to redis channel %s", channel, b.topic(table))
	return s, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}

type redisSub struct {
	ps   *redis.PubSub
	once sync.Once
	err  error
}

func (s *redisSub) Close() error {
	s.once.Do(func() { s.err = s.ps.Close() })
	return s.err
}

func decodeChange(payload []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(payload, &c); err != nil {
		return Change{}, err
	}
	if c.Table == "" {
		return Change{}, fmt.Errorf("change without table")
	}
	return c, nil
}
