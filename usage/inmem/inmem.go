// Package inmem provides an in-process usage.Cache for tests and single
// instance deployments.
package inmem

import (
	"context"
	"sync"
	"time"

	"goa.design/convorun/message"
	"goa.design/convorun/usage"
)

type entry struct {
	usage   message.Usage
	expires time.Time
}

// Cache is a goroutine-safe, process-local usage.Cache keyed by completion
// id.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[string]entry), now: time.Now}
}

// TryGet implements usage.Cache.
func (c *Cache) TryGet(_ context.Context, completionID string) (message.Usage, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[completionID]
	if !ok || c.now().After(e.expires) {
		return message.Usage{}, false, nil
	}
	return e.usage, true, nil
}

// Set implements usage.Cache.
func (c *Cache) Set(_ context.Context, completionID string, u message.Usage, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[completionID] = entry{usage: u, expires: c.now().Add(ttl)}
	return nil
}

// Dispose implements usage.Cache. A process-local map holds no background
// resource to release.
func (c *Cache) Dispose() error { return nil }

var _ usage.Cache = (*Cache)(nil)
