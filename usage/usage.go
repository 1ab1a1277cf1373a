// Package usage implements usage enrichment: ensuring every run with a
// completion id terminates in exactly one authoritative UsageMessage,
// filling in token counts and cost either from a provider-reported inline
// payload or from an async lookup against a cost-lookup endpoint, cached by
// completion id so repeated lookups for the same generation are free.
package usage

import (
	"context"
	"time"

	"goa.design/convorun/message"
)

// Cache stores a Usage per completion id with a TTL, so two enrichments of
// the same completion id within the window never call the cost endpoint
// twice.
type Cache interface {
	// TryGet returns the cached Usage and true if present and unexpired.
	TryGet(ctx context.Context, completionID string) (message.Usage, bool, error)
	// Set stores u for completionID, expiring after ttl.
	Set(ctx context.Context, completionID string, u message.Usage, ttl time.Duration) error
	// Dispose releases any background sweep resource held by the cache.
	Dispose() error
}

// Lookup resolves a completion id's usage and cost against an external
// source, typically a cost-lookup HTTP endpoint. streaming selects the
// per-call timeout: callers in a streaming context get the shorter budget.
type Lookup interface {
	Lookup(ctx context.Context, completionID string, streaming bool) (message.Usage, error)
}

// Config controls enrichment behavior.
type Config struct {
	Cache Cache
	// Endpoint is consulted when a buffered UsageMessage needs enhancement
	// or when no inline usage was reported at all. Enrichment degrades to
	// a pass-through of whatever usage was already buffered when Endpoint
	// is nil.
	Endpoint Lookup
	// TTL is how long a resolved Usage stays cached, default 300s.
	TTL time.Duration
}

func (c Config) ttl() time.Duration {
	if c.TTL <= 0 {
		return 300 * time.Second
	}
	return c.TTL
}

// CompletionID determines a message's completion id, checked in order:
// Base().GenerationID, metadata["completion_id"], metadata["id"]. The
// second return value is false if none are set.
func CompletionID(m message.Message) (string, bool) {
	base := m.Base()
	if base.GenerationID != "" {
		return base.GenerationID, true
	}
	if v, ok := base.Metadata.Get("completion_id"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	if v, ok := base.Metadata.Get("id"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// InlineUsage reports the provider-supplied usage payload carried in
// metadata["inline_usage"] or metadata["usage"], accepting either a
// message.Usage value or a raw map of prompt_tokens/completion_tokens/
// total_tokens/total_cost. Returns false unless a payload is present and
// its total_tokens is greater than zero.
func InlineUsage(m message.Message) (message.Usage, bool) {
	base := m.Base()
	if v, ok := base.Metadata.Get("inline_usage"); ok {
		if u, ok := parseUsagePayload(v); ok && u.TotalTokens > 0 {
			return u, true
		}
	}
	if v, ok := base.Metadata.Get("usage"); ok {
		if u, ok := parseUsagePayload(v); ok && u.TotalTokens > 0 {
			return u, true
		}
	}
	return message.Usage{}, false
}

func parseUsagePayload(v any) (message.Usage, bool) {
	switch payload := v.(type) {
	case message.Usage:
		return payload.Recompute(), true
	case map[string]any:
		u := message.Usage{
			InputTokens:  toInt64(payload["prompt_tokens"]),
			OutputTokens: toInt64(payload["completion_tokens"]),
			TotalTokens:  toInt64(payload["total_tokens"]),
		}
		if u.TotalTokens == 0 {
			u = u.Recompute()
		}
		if cost, ok := toFloat64(payload["total_cost"]); ok {
			u = u.ApplyCostOverlay(0, 0, cost)
		}
		return u, true
	default:
		return message.Usage{}, false
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
