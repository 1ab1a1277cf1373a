package persist

import (
	"testing"

	"github.com/stretchr/testify/require"
	"goa.design/convorun/message"
)

func TestCompactMergesAdjacentCallAndResult(t *testing.T) {
	history := []message.Message{
		&message.Text{Content: "thinking"},
		&message.ToolsCall{Common: message.Common{RunID: "r1"}, Calls: []message.ToolCall{{ToolCallID: "c1"}}},
		&message.ToolsCallResult{Common: message.Common{RunID: "r1"}, Results: []message.ToolCallResult{{ToolCallID: "c1"}}},
		&message.Text{Content: "done"},
	}
	compacted := Compact(history)
	require.Len(t, compacted, 3)
	_, ok := compacted[1].(*message.ToolsCallAggregate)
	require.True(t, ok)
}

func TestCompactLeavesUnpairedCallAlone(t *testing.T) {
	history := []message.Message{
		&message.ToolsCall{Common: message.Common{RunID: "r1"}},
		&message.Text{Content: "no result followed"},
	}
	compacted := Compact(history)
	require.Len(t, compacted, 2)
	_, ok := compacted[0].(*message.ToolsCall)
	require.True(t, ok)
}

func TestExpandReversesCompact(t *testing.T) {
	history := []message.Message{
		&message.ToolsCall{Common: message.Common{RunID: "r1"}, Calls: []message.ToolCall{{ToolCallID: "c1", Name: "lookup"}}},
		&message.ToolsCallResult{Common: message.Common{RunID: "r1"}, Results: []message.ToolCallResult{{ToolCallID: "c1"}}},
	}
	expanded := Expand(Compact(history))
	require.Len(t, expanded, 2)
	call, ok := expanded[0].(*message.ToolsCall)
	require.True(t, ok)
	require.Equal(t, "lookup", call.Calls[0].Name)
	_, ok = expanded[1].(*message.ToolsCallResult)
	require.True(t, ok)
}

func TestCompactRequiresMatchingRunID(t *testing.T) {
	history := []message.Message{
		&message.ToolsCall{Common: message.Common{RunID: "r1"}},
		&message.ToolsCallResult{Common: message.Common{RunID: "r2"}},
	}
	compacted := Compact(history)
	require.Len(t, compacted, 2)
}
