package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goa.design/convorun/message"
)

func TestTryGetMissReturnsFalse(t *testing.T) {
	c := New()
	_, ok, err := c.TryGet(context.Background(), "gen-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetThenTryGetHitsBeforeExpiry(t *testing.T) {
	c := New()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "gen-1", message.Usage{Model: "gpt-x", InputTokens: 10}, time.Hour))
	u, ok, err := c.TryGet(ctx, "gen-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(10), u.InputTokens)
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	c := New()
	frozen := time.Now()
	c.now = func() time.Time { return frozen }
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "gen-1", message.Usage{Model: "gpt-x"}, time.Minute))
	c.now = func() time.Time { return frozen.Add(2 * time.Minute) }
	_, ok, err := c.TryGet(ctx, "gen-1")
	require.NoError(t, err)
	require.False(t, ok, "expected entry to have expired")
}
