package streambuild

import (
	"testing"

	"github.com/stretchr/testify/require"
	"goa.design/convorun/message"
)

func TestTextBuilderConcatenatesDeltasInOrder(t *testing.T) {
	b := NewTextBuilder(message.TextUpdate{Common: message.Common{GenerationID: "g1", MessageOrderIdx: 1}, Delta: "Hel"})
	require.NoError(t, b.Feed(&message.TextUpdate{Common: message.Common{GenerationID: "g1", MessageOrderIdx: 1}, Delta: "lo"}))
	built := b.Build().(*message.Text)
	require.Equal(t, "Hello", built.Content)
}

func TestTextBuilderRejectsDeltaFromDifferentItem(t *testing.T) {
	b := NewTextBuilder(message.TextUpdate{Common: message.Common{GenerationID: "g1", MessageOrderIdx: 1}, Delta: "a"})
	err := b.Feed(&message.TextUpdate{Common: message.Common{GenerationID: "g1", MessageOrderIdx: 2}, Delta: "b"})
	require.Error(t, err)
}

func TestTextBuilderAcceptsOnlyMatchingItem(t *testing.T) {
	b := NewTextBuilder(message.TextUpdate{Common: message.Common{GenerationID: "g1", MessageOrderIdx: 1}})
	require.True(t, b.Accepts(&message.TextUpdate{Common: message.Common{GenerationID: "g1", MessageOrderIdx: 1}}))
	require.False(t, b.Accepts(&message.TextUpdate{Common: message.Common{GenerationID: "g2", MessageOrderIdx: 1}}))
	require.False(t, b.Accepts(&message.Text{}))
}

func TestReasoningBuilderSwitchesToEncryptedToken(t *testing.T) {
	b := NewReasoningBuilder(message.ReasoningUpdate{
		Common:     message.Common{GenerationID: "g1", MessageOrderIdx: 1},
		Delta:      "partial thought",
		Visibility: message.ReasoningPlain,
	})
	require.NoError(t, b.Feed(&message.ReasoningUpdate{
		Common:     message.Common{GenerationID: "g1", MessageOrderIdx: 1},
		Delta:      "opaque-blob",
		Visibility: message.ReasoningEncrypted,
	}))
	built := b.Build().(*message.Reasoning)
	require.Equal(t, message.ReasoningEncrypted, built.Visibility)
	require.Equal(t, "opaque-blob", built.OpaqueToken)
	require.Empty(t, built.Content)
}

func TestToolCallBuilderAssemblesFragmentedArguments(t *testing.T) {
	b := NewToolCallBuilder(message.ToolCallUpdate{ToolCallID: "c1", Name: "search", ArgumentsJSON: `{"q":`})
	require.NoError(t, b.Feed(&message.ToolCallUpdate{ToolCallID: "c1", ArgumentsJSON: `"go"}`}))
	call := b.ToolCall()
	require.Equal(t, `{"q":"go"}`, call.ArgumentsJSON)
	require.Equal(t, "search", call.Name)
}

func TestToolsCallBuilderClosesOnNewIDAndAssignsSequentialIdx(t *testing.T) {
	b := NewToolsCallBuilder()
	require.NoError(t, b.Feed(&message.ToolsCallUpdate{
		Common: message.Common{GenerationID: "g1", MessageOrderIdx: 1},
		Updates: []message.ToolCallUpdate{
			{ToolCallID: "a", Name: "first", ArgumentsJSON: `{"x":1}`},
			{ToolCallID: "b", Name: "second", ArgumentsJSON: `{"y":2}`},
		},
	}))
	built := b.Build().(*message.ToolsCall)
	require.Len(t, built.Calls, 2)
	require.Equal(t, "a", built.Calls[0].ToolCallID)
	require.Equal(t, `{"x":1}`, built.Calls[0].ArgumentsJSON)
	require.Equal(t, 0, built.Calls[0].ToolCallIdx)
	require.Equal(t, "b", built.Calls[1].ToolCallID)
	require.Equal(t, `{"y":2}`, built.Calls[1].ArgumentsJSON)
	require.Equal(t, 1, built.Calls[1].ToolCallIdx)
}

func TestToolsCallBuilderSameIndexContinuesOpenCall(t *testing.T) {
	zero, one := 0, 1
	b := NewToolsCallBuilder()
	require.NoError(t, b.Feed(&message.ToolsCallUpdate{
		Common: message.Common{GenerationID: "g1", MessageOrderIdx: 1},
		Updates: []message.ToolCallUpdate{
			{ToolCallID: "a", Index: &zero, Name: "first", ArgumentsJSON: `{"x":`},
		},
	}))
	require.NoError(t, b.Feed(&message.ToolsCallUpdate{
		Common: message.Common{GenerationID: "g1", MessageOrderIdx: 1},
		Updates: []message.ToolCallUpdate{
			{Index: &zero, ArgumentsJSON: `1}`},
		},
	}))
	built := b.Build().(*message.ToolsCall)
	require.Len(t, built.Calls, 1)
	require.Equal(t, "a", built.Calls[0].ToolCallID)
	require.Equal(t, `{"x":1}`, built.Calls[0].ArgumentsJSON)
	_ = one
}

func TestToolsCallBuilderIDlessUpdateContinuesCurrentlyOpenCall(t *testing.T) {
	b := NewToolsCallBuilder()
	require.NoError(t, b.Feed(&message.ToolsCallUpdate{
		Common: message.Common{GenerationID: "g1", MessageOrderIdx: 1},
		Updates: []message.ToolCallUpdate{
			{ToolCallID: "t1", ArgumentsJSON: `{}`},
		},
	}))
	require.NoError(t, b.Feed(&message.ToolsCallUpdate{
		Common: message.Common{GenerationID: "g1", MessageOrderIdx: 1},
		Updates: []message.ToolCallUpdate{
			{ToolCallID: "t2", ArgumentsJSON: `{`},
		},
	}))
	require.NoError(t, b.Feed(&message.ToolsCallUpdate{
		Common: message.Common{GenerationID: "g1", MessageOrderIdx: 1},
		Updates: []message.ToolCallUpdate{
			{ArgumentsJSON: `}`},
		},
	}))
	built := b.Build().(*message.ToolsCall)
	require.Len(t, built.Calls, 2)
	require.Equal(t, "t1", built.Calls[0].ToolCallID)
	require.Equal(t, "t2", built.Calls[1].ToolCallID)
	require.Equal(t, "{}", built.Calls[1].ArgumentsJSON)
}

func TestToolsCallBuilderRejectsBatchFromDifferentItem(t *testing.T) {
	b := NewToolsCallBuilder()
	require.NoError(t, b.Feed(&message.ToolsCallUpdate{Common: message.Common{GenerationID: "g1", MessageOrderIdx: 1}}))
	err := b.Feed(&message.ToolsCallUpdate{Common: message.Common{GenerationID: "g1", MessageOrderIdx: 2}})
	require.Error(t, err)
}
