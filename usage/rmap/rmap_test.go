package rmap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goa.design/convorun/message"
)

type fakeClusterMap struct {
	values map[string]string
}

func newFakeClusterMap() *fakeClusterMap {
	return &fakeClusterMap{values: make(map[string]string)}
}

func (m *fakeClusterMap) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *fakeClusterMap) SetIfNotExists(_ context.Context, key, value string) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value
	return true, nil
}

func (m *fakeClusterMap) TestAndSet(_ context.Context, key, test, value string) (string, error) {
	cur, ok := m.values[key]
	if !ok || cur != test {
		return cur, nil
	}
	m.values[key] = value
	return cur, nil
}

func TestSetThenTryGetRoundTrips(t *testing.T) {
	c := &Cache{m: newFakeClusterMap()}
	u := message.Usage{Model: "gpt-5", Provider: "openai", InputTokens: 10, OutputTokens: 20, TotalTokens: 30}

	require.NoError(t, c.Set(context.Background(), "gen-1", u, time.Hour))

	got, ok, err := c.TryGet(context.Background(), "gen-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, u, got)
}

func TestTryGetMissReturnsFalse(t *testing.T) {
	c := &Cache{m: newFakeClusterMap()}
	_, ok, err := c.TryGet(context.Background(), "unknown")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTryGetExpiredEntryReturnsFalse(t *testing.T) {
	c := &Cache{m: newFakeClusterMap()}
	require.NoError(t, c.Set(context.Background(), "gen-1", message.Usage{Model: "gpt-5"}, -time.Minute))

	_, ok, err := c.TryGet(context.Background(), "gen-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetOverwritesExistingEntry(t *testing.T) {
	cm := newFakeClusterMap()
	c := &Cache{m: cm}
	require.NoError(t, c.Set(context.Background(), "gen-1", message.Usage{Model: "gpt-5", InputTokens: 1}, time.Hour))
	require.NoError(t, c.Set(context.Background(), "gen-1", message.Usage{Model: "gpt-5", InputTokens: 2}, time.Hour))

	got, ok, err := c.TryGet(context.Background(), "gen-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(2), got.InputTokens)
}
