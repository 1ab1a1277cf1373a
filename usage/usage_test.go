package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goa.design/convorun/message"
	"goa.design/convorun/provider"
	"goa.design/convorun/provider/fake"
)

type fakeCache struct {
	entries map[string]message.Usage
}

func newFakeCache() *fakeCache { return &fakeCache{entries: map[string]message.Usage{}} }

func (c *fakeCache) TryGet(_ context.Context, completionID string) (message.Usage, bool, error) {
	u, ok := c.entries[completionID]
	return u, ok, nil
}

func (c *fakeCache) Set(_ context.Context, completionID string, u message.Usage, _ time.Duration) error {
	c.entries[completionID] = u
	return nil
}

func (c *fakeCache) Dispose() error { return nil }

type fakeLookup struct {
	calls int
	usage message.Usage
	err   error
}

func (l *fakeLookup) Lookup(context.Context, string, bool) (message.Usage, error) {
	l.calls++
	if l.err != nil {
		return message.Usage{}, l.err
	}
	return l.usage, nil
}

func TestCompletionIDPrefersGenerationID(t *testing.T) {
	m := &message.UsageMessage{Common: message.Common{GenerationID: "g1"}}
	id, ok := CompletionID(m)
	require.True(t, ok)
	require.Equal(t, "g1", id)
}

func TestCompletionIDFallsBackToMetadata(t *testing.T) {
	meta := message.NewMetadata()
	meta.Set("completion_id", "c1")
	m := &message.UsageMessage{Common: message.Common{Metadata: meta}}
	id, ok := CompletionID(m)
	require.True(t, ok)
	require.Equal(t, "c1", id)
}

func TestCompletionIDAbsent(t *testing.T) {
	_, ok := CompletionID(&message.UsageMessage{})
	require.False(t, ok)
}

func TestInlineUsageFromRawMap(t *testing.T) {
	meta := message.NewMetadata()
	meta.Set("inline_usage", map[string]any{
		"prompt_tokens": int64(10), "completion_tokens": int64(20), "total_tokens": int64(30), "total_cost": 0.001,
	})
	m := &message.UsageMessage{Common: message.Common{Metadata: meta}}
	u, ok := InlineUsage(m)
	require.True(t, ok)
	require.Equal(t, int64(10), u.InputTokens)
	require.Equal(t, int64(20), u.OutputTokens)
	require.Equal(t, int64(30), u.TotalTokens)
	require.Equal(t, 0.001, *u.TotalCostUSD)
}

func TestInlineUsageAbsentWhenZero(t *testing.T) {
	meta := message.NewMetadata()
	meta.Set("usage", map[string]any{"total_tokens": int64(0)})
	m := &message.UsageMessage{Common: message.Common{Metadata: meta}}
	_, ok := InlineUsage(m)
	require.False(t, ok)
}

func TestEnrichmentMiddlewareEmitsInlineUsageWithoutCallingEndpoint(t *testing.T) {
	meta := message.NewMetadata()
	meta.Set("inline_usage", map[string]any{"prompt_tokens": int64(10), "completion_tokens": int64(20), "total_tokens": int64(30), "total_cost": 0.001})
	agent := fake.New().WithStreams(fake.StreamScript{Deltas: []message.Message{
		&message.Text{Content: "hi"},
		&message.UsageMessage{Common: message.Common{GenerationID: "g1", Metadata: meta}},
	}})
	lookup := &fakeLookup{}
	mw := EnrichmentMiddleware(Config{Cache: newFakeCache(), Endpoint: lookup}, nil)
	wrapped := mw(agent)

	stream, err := wrapped.StreamReply(context.Background(), nil, provider.GenerateReplyOptions{})
	require.NoError(t, err)
	var last message.Message
	for {
		m, err := stream.Recv()
		if err != nil {
			break
		}
		last = m
	}
	um, ok := last.(*message.UsageMessage)
	require.True(t, ok)
	require.Equal(t, int64(30), um.Usage.TotalTokens)
	v, _ := um.Usage.Extra.Get("source")
	require.Equal(t, "inline", v)
	require.Equal(t, 0, lookup.calls)
}

func TestEnrichmentMiddlewareMergesEndpointOverlayAndFlagsDiscrepancy(t *testing.T) {
	agent := fake.New().WithStreams(fake.StreamScript{Deltas: []message.Message{
		&message.Text{Content: "hi"},
		&message.UsageMessage{Common: message.Common{GenerationID: "g1"}, Usage: message.Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30}},
	}})
	cost := 0.002
	lookup := &fakeLookup{usage: message.Usage{InputTokens: 11, OutputTokens: 21, TotalTokens: 32, TotalCostUSD: &cost}}
	mw := EnrichmentMiddleware(Config{Cache: newFakeCache(), Endpoint: lookup}, nil)
	wrapped := mw(agent)

	stream, err := wrapped.StreamReply(context.Background(), nil, provider.GenerateReplyOptions{})
	require.NoError(t, err)
	var last message.Message
	for {
		m, err := stream.Recv()
		if err != nil {
			break
		}
		last = m
	}
	um, ok := last.(*message.UsageMessage)
	require.True(t, ok)
	require.Equal(t, int64(11), um.Usage.InputTokens)
	require.Equal(t, int64(21), um.Usage.OutputTokens)
	require.Equal(t, int64(32), um.Usage.TotalTokens)
	require.Equal(t, 0.002, *um.Usage.TotalCostUSD)
	enhancedBy, _ := um.Usage.Extra.Get("enhanced_by")
	require.Equal(t, "openrouter_middleware", enhancedBy)
	resolved, _ := um.Usage.Extra.Get("token_discrepancies_resolved")
	require.Equal(t, true, resolved)
	require.Equal(t, 1, lookup.calls)
}

func TestEnrichmentMiddlewareCacheHitSkipsEndpoint(t *testing.T) {
	cache := newFakeCache()
	cost := 0.5
	cache.entries["g1"] = message.Usage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3, TotalCostUSD: &cost}
	lookup := &fakeLookup{err: errors.New("must not be called")}
	agent := fake.New().WithStreams(fake.StreamScript{Deltas: []message.Message{
		&message.UsageMessage{Common: message.Common{GenerationID: "g1"}, Usage: message.Usage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3}},
	}})
	mw := EnrichmentMiddleware(Config{Cache: cache, Endpoint: lookup}, nil)
	wrapped := mw(agent)

	stream, err := wrapped.StreamReply(context.Background(), nil, provider.GenerateReplyOptions{})
	require.NoError(t, err)
	var last message.Message
	for {
		m, err := stream.Recv()
		if err != nil {
			break
		}
		last = m
	}
	um, ok := last.(*message.UsageMessage)
	require.True(t, ok)
	cached, _ := um.Usage.Extra.Get("cached")
	require.Equal(t, true, cached)
	require.Equal(t, 0, lookup.calls)
}
