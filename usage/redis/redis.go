// Package redis provides a usage.Cache backed by Redis, so resolved usage
// survives a process restart and is shared across every scheduler instance
// pointed at the same Redis deployment.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"goa.design/convorun/message"
	"goa.design/convorun/usage"
)

// Cache is a usage.Cache backed by a Redis client, keyed by completion id.
// Keys are namespaced under KeyPrefix so they do not collide with unrelated
// keyspaces sharing the same Redis deployment. TTL is enforced natively by
// Redis's own key expiry rather than an embedded timestamp.
type Cache struct {
	client    *redis.Client
	KeyPrefix string
}

// New wraps client as a usage.Cache. prefix namespaces all keys this Cache
// writes; pass "" to use the default "convorun:usage:".
func New(client *redis.Client, prefix string) *Cache {
	if prefix == "" {
		prefix = "convorun:usage:"
	}
	return &Cache{client: client, KeyPrefix: prefix}
}

func (c *Cache) key(completionID string) string {
	return c.KeyPrefix + completionID
}

// TryGet implements usage.Cache.
func (c *Cache) TryGet(ctx context.Context, completionID string) (message.Usage, bool, error) {
	raw, err := c.client.Get(ctx, c.key(completionID)).Bytes()
	if err == redis.Nil {
		return message.Usage{}, false, nil
	}
	if err != nil {
		return message.Usage{}, false, fmt.Errorf("usage/redis: get %q: %w", completionID, err)
	}
	var u message.Usage
	if err := json.Unmarshal(raw, &u); err != nil {
		return message.Usage{}, false, fmt.Errorf("usage/redis: decode %q: %w", completionID, err)
	}
	return u, true, nil
}

// Set implements usage.Cache.
func (c *Cache) Set(ctx context.Context, completionID string, u message.Usage, ttl time.Duration) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("usage/redis: encode %q: %w", completionID, err)
	}
	if err := c.client.Set(ctx, c.key(completionID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("usage/redis: set %q: %w", completionID, err)
	}
	return nil
}

// Dispose implements usage.Cache by closing the underlying Redis client.
func (c *Cache) Dispose() error {
	return c.client.Close()
}

var _ usage.Cache = (*Cache)(nil)
