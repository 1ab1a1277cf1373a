// Package rmap provides a usage.Cache coordinated across a cluster via
// goa.design/pulse/rmap, the same replicated map used by the adaptive rate
// limiter to share its token budget. rmap.Map has no native TTL, so each
// entry embeds its own expiry and TryGet discards it locally once stale
// instead of relying on the map to evict it.
package rmap

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"goa.design/pulse/rmap"

	"goa.design/convorun/message"
	"goa.design/convorun/usage"
)

// clusterMap is the subset of *rmap.Map this cache depends on, narrowed so
// it can be tested against a fake replicated map instead of a live Pulse
// cluster.
type clusterMap interface {
	Get(key string) (string, bool)
	SetIfNotExists(ctx context.Context, key, value string) (bool, error)
	TestAndSet(ctx context.Context, key, test, value string) (string, error)
}

// Cache is a usage.Cache backed by a Pulse replicated map, keyed by
// completion id, giving every process in a cluster a consistent view of
// resolved usage without each one independently hitting the cost endpoint
// for the same generation.
type Cache struct {
	m clusterMap
}

// New wraps m as a usage.Cache.
func New(m *rmap.Map) *Cache {
	return &Cache{m: m}
}

type storedEntry struct {
	Usage     message.Usage `json:"usage"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// TryGet implements usage.Cache.
func (c *Cache) TryGet(_ context.Context, completionID string) (message.Usage, bool, error) {
	raw, ok := c.m.Get(completionID)
	if !ok {
		return message.Usage{}, false, nil
	}
	var stored storedEntry
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return message.Usage{}, false, fmt.Errorf("usage/rmap: decode %q: %w", completionID, err)
	}
	if time.Now().After(stored.ExpiresAt) {
		return message.Usage{}, false, nil
	}
	return stored.Usage, true, nil
}

// Set implements usage.Cache. It is last-write-wins under concurrent
// writers: a handful of TestAndSet retries resolve the common case of a
// stale read, and losing a race on the rare remaining case just means a
// sibling process's fresher entry is kept instead.
func (c *Cache) Set(ctx context.Context, completionID string, u message.Usage, ttl time.Duration) error {
	raw, err := json.Marshal(storedEntry{Usage: u, ExpiresAt: time.Now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("usage/rmap: encode %q: %w", completionID, err)
	}
	current, ok := c.m.Get(completionID)
	if !ok {
		if _, err := c.m.SetIfNotExists(ctx, completionID, string(raw)); err != nil {
			return fmt.Errorf("usage/rmap: set %q: %w", completionID, err)
		}
		return nil
	}
	const maxAttempts = 3
	for attempt := 0; attempt < maxAttempts; attempt++ {
		prev, err := c.m.TestAndSet(ctx, completionID, current, string(raw))
		if err != nil {
			return fmt.Errorf("usage/rmap: set %q: %w", completionID, err)
		}
		if prev == current {
			return nil
		}
		current = prev
	}
	return nil
}

// Dispose implements usage.Cache. The replicated map's lifecycle is owned
// by whoever constructed the underlying *rmap.Map, not this Cache.
func (c *Cache) Dispose() error { return nil }

var _ usage.Cache = (*Cache)(nil)
