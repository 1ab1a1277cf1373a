package scheduler

import (
	"context"

	"goa.design/convorun/message"
)

// FunctionRegistry executes ExecutionLocalFunction tool calls on behalf of
// the agentic run loop. The loop never calls it for ExecutionProviderServer
// calls: those are the provider's own responsibility to execute and
// report, per spec.
type FunctionRegistry interface {
	// Call executes one tool call and returns its result. Call must not
	// block indefinitely; ctx is cancelled if the owning run is stopped.
	Call(ctx context.Context, call message.ToolCall) message.ToolCallResult
}

// FunctionRegistryFunc adapts a plain function to FunctionRegistry.
type FunctionRegistryFunc func(ctx context.Context, call message.ToolCall) message.ToolCallResult

// Call implements FunctionRegistry.
func (f FunctionRegistryFunc) Call(ctx context.Context, call message.ToolCall) message.ToolCallResult {
	return f(ctx, call)
}

// MapFunctionRegistry dispatches calls by tool name to a fixed set of
// handlers, for callers that want to register tools individually instead
// of writing a single switch statement.
type MapFunctionRegistry map[string]func(ctx context.Context, argumentsJSON string) (string, error)

// Call implements FunctionRegistry. A name with no registered handler, or
// a handler returning an error, produces an IsError result rather than
// panicking the run loop.
func (m MapFunctionRegistry) Call(ctx context.Context, call message.ToolCall) message.ToolCallResult {
	fn, ok := m[call.Name]
	if !ok {
		return message.ToolCallResult{
			ToolCallID: call.ToolCallID,
			IsError:    true,
			Content:    []message.ToolResultContent{{Text: "no function registered for tool " + call.Name}},
		}
	}
	out, err := fn(ctx, call.ArgumentsJSON)
	if err != nil {
		return message.ToolCallResult{
			ToolCallID: call.ToolCallID,
			IsError:    true,
			Content:    []message.ToolResultContent{{Text: err.Error()}},
		}
	}
	return message.ToolCallResult{ToolCallID: call.ToolCallID, Content: []message.ToolResultContent{{Text: out}}}
}
