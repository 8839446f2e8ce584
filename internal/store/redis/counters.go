// Package redis backs the login failure counters with a shared Redis
// instance so lockout state holds across API replicas.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"praxis.software/internal/auth"
)

// Counters implements auth.CounterStore on go-redis. Incr uses a pipeline
// so the increment and its expiry land atomically; concurrent failures
// from several replicas never lose a count.
type Counters struct {
	client *redis.Client
	prefix string
}

var _ auth.CounterStore = (*Counters)(nil)

// NewCounters wraps an existing client. The prefix namespaces keys when
// the instance is shared with other workloads.
func NewCounters(client *redis.Client, prefix string) *Counters {
	if prefix == "" {
		prefix = "praxis"
	}
	return &Counters{client: client, prefix: prefix}
}

// Open dials Redis and verifies the connection.
func Open(ctx context.Context, addr, password string, db int) (*Counters, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewCounters(client, ""), nil
}

func (c *Counters) Close() error { return c.client.Close() }

func (c *Counters) key(k string) string { return c.prefix + ":" + k }

func (c *Counters) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, c.key(key))
	if ttl > 0 {
		pipe.Expire(ctx, c.key(key), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}
	return incr.Val(), nil
}

func (c *Counters) Get(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Get(ctx, c.key(key)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get: %w", err)
	}
	return n, nil
}

func (c *Counters) Reset(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// SetLock marks a key locked. A zero ttl persists the lock until an
// explicit Reset; that is how hard locks survive restarts.
func (c *Counters) SetLock(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(key), 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *Counters) Locked(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}
