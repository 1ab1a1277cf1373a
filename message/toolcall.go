package message

// ExecutionTarget classifies where a ToolCall is expected to execute.
type ExecutionTarget string

const (
	// ExecutionLocalFunction indicates the caller's runtime must execute
	// the tool and report a ToolCallResult back to the provider.
	ExecutionLocalFunction ExecutionTarget = "local_function"
	// ExecutionProviderServer indicates the provider executes the tool
	// itself (a server-side tool); see ServerToolUse/ServerToolResult.
	ExecutionProviderServer ExecutionTarget = "provider_server"
)

// ToolCall is a single named invocation request with its (possibly still
// assembling) JSON argument payload.
type ToolCall struct {
	// ToolCallID uniquely identifies this call within its GenerationID,
	// correlating it to its eventual ToolCallResult.
	ToolCallID string
	Name       string
	// ArgumentsJSON is the tool call's argument object serialized as
	// JSON text. During streaming it is a growing, not-yet-valid-JSON
	// prefix; on ToolsCall it is complete and parses as a JSON object.
	ArgumentsJSON string
	Target        ExecutionTarget
	// ToolCallIdx is assigned sequentially (0, 1, 2...) in the order
	// calls close while a ToolsCallBuilder assembles them, independent of
	// ToolCallID or Index, which a provider may omit or reuse.
	ToolCallIdx int
}

// ToolCallUpdate is a streaming delta to one tool call's argument text. A
// provider identifies which call a delta belongs to by ToolCallID, Index,
// or neither: a delta carrying neither continues whatever call is
// currently open in the builder (see ToolsCallBuilder).
type ToolCallUpdate struct {
	Common
	ToolCallID string
	// Index is the provider's stable positional slot for this call among
	// concurrently streaming calls, when it reports one instead of (or
	// alongside) ToolCallID. Nil when the provider does not distinguish
	// calls by position.
	Index         *int
	Name          string
	ArgumentsJSON string
	Target        ExecutionTarget
}

func (ToolCallUpdate) isMessage()       {}
func (ToolCallUpdate) Kind() Kind       { return KindToolCallUpdate }
func (m *ToolCallUpdate) Base() *Common { return &m.Common }

// ToolsCall is a completed set of one or more tool call requests emitted
// together as the assistant's turn output, all sharing MessageOrderIdx.
type ToolsCall struct {
	Common
	Calls []ToolCall
}

func (ToolsCall) isMessage()       {}
func (ToolsCall) Kind() Kind       { return KindToolsCall }
func (m *ToolsCall) Base() *Common { return &m.Common }

// GetToolCalls implements ToolCallsGetter.
func (m ToolsCall) GetToolCalls() ([]ToolCall, bool) {
	if len(m.Calls) == 0 {
		return nil, false
	}
	return m.Calls, true
}

// ToolsCallUpdate batches ToolCallUpdate deltas for a single streaming
// chunk, when a provider reports multiple tool calls progressing together.
type ToolsCallUpdate struct {
	Common
	Updates []ToolCallUpdate
}

func (ToolsCallUpdate) isMessage()       {}
func (ToolsCallUpdate) Kind() Kind       { return KindToolsCallUpdate }
func (m *ToolsCallUpdate) Base() *Common { return &m.Common }
