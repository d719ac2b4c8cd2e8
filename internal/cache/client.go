package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eventfold/analytics/internal/logger"
)

// Cache defines the key/value operations the service needs from its cache
// store. Values are JSON-serialized; deletion is pattern-based.
//
//go:generate mockgen -source=client.go -destination=../mocks/cache.go -package=mocks -mock_names=Cache=MockCache
type Cache interface {
	// Connected reports whether the client currently holds a live connection
	Connected() bool
	// Get unmarshals the value at key into dest; the bool reports a hit
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	// Set stores a JSON-serialized value with a bounded time-to-live
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Delete removes specific keys
	Delete(ctx context.Context, keys ...string) error
	// DeletePattern removes every key matching a glob pattern
	DeletePattern(ctx context.Context, pattern string) error
}

// Config holds cache client configuration
type Config struct {
	Addr           string
	Password       string
	DB             int
	ConnectTimeout time.Duration
}

// Client is a Redis-backed Cache with an explicit connect/close lifecycle.
// All read/write methods are no-ops while disconnected so callers never have
// to special-case an unavailable cache.
type Client struct {
	rdb       *redis.Client
	connected atomic.Bool
}

// NewClient constructs a client; no connection is made until Connect
func NewClient(cfg Config) *Client {
	return &Client{
		rdb: redis.NewClient(&redis.Options{
			Addr:        cfg.Addr,
			Password:    cfg.Password,
			DB:          cfg.DB,
			DialTimeout: cfg.ConnectTimeout,
		}),
	}
}

// Connect pings the server with exponential backoff until it answers or the
// context expires. A failed connect leaves the client usable in disconnected
// mode: reads miss, writes and invalidations are skipped.
func (c *Client) Connect(ctx context.Context) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	err := backoff.Retry(func() error {
		return c.rdb.Ping(ctx).Err()
	}, policy)
	if err != nil {
		return fmt.Errorf("failed to connect to cache: %w", err)
	}

	c.connected.Store(true)
	return nil
}

// Close closes the underlying connection
func (c *Client) Close() error {
	if !c.connected.CompareAndSwap(true, false) {
		return nil
	}
	return c.rdb.Close()
}

// Connected reports whether the client currently holds a live connection
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Get unmarshals the value at key into dest; the bool reports a hit
func (c *Client) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Connected() {
		return false, nil
	}

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache key %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode cache key %s: %w", key, err)
	}
	return true, nil
}

// Set stores a JSON-serialized value with a bounded time-to-live
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Connected() {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache key %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}
	return nil
}

// Delete removes specific keys
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if !c.Connected() || len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}

// DeletePattern removes every key matching a glob pattern using SCAN, so it
// never blocks the server the way KEYS would
func (c *Client) DeletePattern(ctx context.Context, pattern string) error {
	if !c.Connected() {
		return nil
	}

	var deleted int
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to delete keys for pattern %s: %w", pattern, err)
			}
			deleted += len(batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan pattern %s: %w", pattern, err)
	}
	if len(batch) > 0 {
		if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to delete keys for pattern %s: %w", pattern, err)
		}
		deleted += len(batch)
	}

	if deleted > 0 {
		logger.Debug("deleted cache keys",
			zap.String("pattern", pattern),
			zap.Int("count", deleted),
		)
	}
	return nil
}
