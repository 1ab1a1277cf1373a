package message

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetadataMergePreservesOrderAndOverwrites(t *testing.T) {
	a := MetadataFromPairs("x", 1, "y", 2)
	b := MetadataFromPairs("y", 20, "z", 3)
	merged := a.Merge(b)
	require.Equal(t, []string{"x", "y", "z"}, merged.Keys())
	v, ok := merged.Get("y")
	require.True(t, ok)
	require.Equal(t, 20, v)
}

func TestMetadataCloneIsIndependent(t *testing.T) {
	a := MetadataFromPairs("x", 1)
	b := a.Clone()
	b.Set("x", 2)
	v, _ := a.Get("x")
	require.Equal(t, 1, v, "mutating the clone must not affect the original")
}

func TestUsageMergeOverlaysSetFieldsAndKeepsUnsetOnes(t *testing.T) {
	first := Usage{InputTokens: 10, OutputTokens: 5}
	second := Usage{InputTokens: 30}
	merged := first.Merge(second)
	require.Equal(t, int64(30), merged.InputTokens)
	require.Equal(t, int64(5), merged.OutputTokens)
}

func TestUsageMergeIsIdempotent(t *testing.T) {
	u := Usage{Model: "m1", InputTokens: 10, OutputTokens: 5, ReasoningTokens: 2}
	require.Equal(t, u, u.Merge(u))
}

func TestUsageApplyCostOverlayIsIdempotent(t *testing.T) {
	base := Usage{InputTokens: 100, OutputTokens: 50}
	once := base.ApplyCostOverlay(0.01, 0.02, 0.03)
	twice := once.ApplyCostOverlay(0.01, 0.02, 0.03)
	require.Equal(t, *once.TotalCostUSD, *twice.TotalCostUSD)
	require.Equal(t, once.InputTokens, twice.InputTokens)
}

func TestEnvelopeDelegatesCapabilities(t *testing.T) {
	inner := &Text{Common: Common{Role: RoleAssistant}, Content: "hello"}
	env := &Envelope{Inner: inner, Destination: "sub-1"}
	text, ok := GetText(env)
	require.True(t, ok)
	require.Equal(t, "hello", text)
}

func TestEnvelopeWithNoInnerHasNoCapabilities(t *testing.T) {
	env := &Envelope{}
	_, ok := GetText(env)
	require.False(t, ok)
}

func TestCompositeAggregatesTextAndToolCalls(t *testing.T) {
	composite := &Composite{
		Parts: []Message{
			&Text{Content: "thinking..."},
			&ToolsCall{Calls: []ToolCall{{ToolCallID: "1", Name: "search"}}},
		},
	}
	text, ok := GetText(composite)
	require.True(t, ok)
	require.Equal(t, "thinking...", text)
	calls, ok := GetToolCalls(composite)
	require.True(t, ok)
	require.Len(t, calls, 1)
	require.Equal(t, "search", calls[0].Name)
}

func TestToolsCallAggregateExposesCallAndResultText(t *testing.T) {
	agg := &ToolsCallAggregate{
		Call:   ToolsCall{Calls: []ToolCall{{ToolCallID: "1", Name: "lookup"}}},
		Result: ToolsCallResult{Results: []ToolCallResult{{ToolCallID: "1", Content: []ToolResultContent{{Text: "42"}}}}},
	}
	calls, ok := GetToolCalls(agg)
	require.True(t, ok)
	require.Equal(t, "lookup", calls[0].Name)
	text, ok := GetText(agg)
	require.True(t, ok)
	require.Equal(t, "42", text)
}

func TestIsUpdateClassifiesDeltaKinds(t *testing.T) {
	require.True(t, IsUpdate(&TextUpdate{}))
	require.True(t, IsUpdate(&ToolsCallUpdate{}))
	require.False(t, IsUpdate(&Text{}))
	require.False(t, IsUpdate(&UsageMessage{}))
}

func TestReasoningEncryptedHasNoText(t *testing.T) {
	r := &Reasoning{Visibility: ReasoningEncrypted, OpaqueToken: "opaque-token"}
	_, ok := GetText(r)
	require.False(t, ok)
}
