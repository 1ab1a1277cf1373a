package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKvToOtelSkipsOddTrailingValueAndNonStringKeys(t *testing.T) {
	attrs := kvToOtel([]any{"thread_id", "t1", "attempt", 3, 123, "ignored", "dangling"})
	require.Len(t, attrs, 2)
	require.Equal(t, "thread_id", string(attrs[0].Key))
	require.Equal(t, "t1", attrs[0].Value.AsString())
	require.Equal(t, "attempt", string(attrs[1].Key))
	require.Equal(t, "3", attrs[1].Value.AsString())
}

func TestToStringFormatsArbitraryValues(t *testing.T) {
	require.Equal(t, "42", toString(42))
	require.Equal(t, "true", toString(true))
}
