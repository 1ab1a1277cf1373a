// Package persist bridges the live message algebra and durable storage: it
// compacts adjacent tool call/result pairs into a single
// message.ToolsCallAggregate before a thread's history is written out, and
// expands them back on load so in-memory history always looks like a plain
// sequence of turns to the scheduler and provider boundary.
package persist

import "goa.design/convorun/message"

// Compact walks history and replaces every adjacent
// (message.ToolsCall, message.ToolsCallResult) pair sharing a RunID with a
// single message.ToolsCallAggregate. Messages that do not form such a pair
// are passed through unchanged. Compaction is purely a storage-size
// optimization: Expand(Compact(h)) reproduces h's semantic content (though
// not necessarily its exact slice identity).
func Compact(history []message.Message) []message.Message {
	out := make([]message.Message, 0, len(history))
	for i := 0; i < len(history); i++ {
		call, ok := history[i].(*message.ToolsCall)
		if ok && i+1 < len(history) {
			if result, ok := history[i+1].(*message.ToolsCallResult); ok && result.RunID == call.RunID {
				out = append(out, &message.ToolsCallAggregate{
					Common: call.Common,
					Call:   *call,
					Result: *result,
				})
				i++
				continue
			}
		}
		out = append(out, history[i])
	}
	return out
}

// Expand reverses Compact, splitting every message.ToolsCallAggregate back
// into its constituent ToolsCall followed by ToolsCallResult. It is used
// when loading persisted history back into a form the provider boundary
// (which knows only the base message algebra, not the aggregate) can
// consume directly.
func Expand(history []message.Message) []message.Message {
	out := make([]message.Message, 0, len(history))
	for _, m := range history {
		agg, ok := m.(*message.ToolsCallAggregate)
		if !ok {
			out = append(out, m)
			continue
		}
		call := agg.Call
		result := agg.Result
		out = append(out, &call, &result)
	}
	return out
}
