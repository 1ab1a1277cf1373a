package message

// TodoItem is one entry in a TodoContext list.
type TodoItem struct {
	ID     string
	Text   string
	Done   bool
	Active bool
}

// TodoContext is a system-role message injecting the current task list
// into the conversation context ahead of a generation, so the provider can
// see outstanding work without it being persisted as conversational
// history in its own right.
type TodoContext struct {
	Common
	Items []TodoItem
}

func (TodoContext) isMessage()       {}
func (TodoContext) Kind() Kind       { return KindTodoContext }
func (m *TodoContext) Base() *Common { return &m.Common }

// GetText renders the todo list as a simple checklist, so generic
// transcript views can display it without special-casing the type.
func (m TodoContext) GetText() (string, bool) {
	if len(m.Items) == 0 {
		return "", false
	}
	var out string
	for _, it := range m.Items {
		box := "[ ]"
		if it.Done {
			box = "[x]"
		}
		out += box + " " + it.Text + "\n"
	}
	return out, true
}

// Composite bundles an ordered set of sub-messages produced together as
// one assistant turn (for example interleaved text and tool calls sharing
// a single MessageOrderIdx), so consumers that want the whole turn can
// take it as one value instead of correlating by order index themselves.
type Composite struct {
	Common
	Parts []Message
}

func (Composite) isMessage()       {}
func (Composite) Kind() Kind       { return KindComposite }
func (m *Composite) Base() *Common { return &m.Common }

// GetText concatenates the text of every part that has one.
func (m Composite) GetText() (string, bool) {
	var out string
	found := false
	for _, p := range m.Parts {
		if t, ok := GetText(p); ok {
			out += t
			found = true
		}
	}
	return out, found
}

// GetToolCalls collects tool calls from every part that carries any.
func (m Composite) GetToolCalls() ([]ToolCall, bool) {
	var out []ToolCall
	for _, p := range m.Parts {
		if calls, ok := GetToolCalls(p); ok {
			out = append(out, calls...)
		}
	}
	return out, len(out) > 0
}

// Envelope wraps an inner Message with routing attributes (destination
// subscriber, delivery sequence) that do not belong on the message
// algebra itself. Capability queries delegate to Inner so an Envelope is
// transparent to code written against TextGetter/ToolCallsGetter/etc.
type Envelope struct {
	Common
	Inner Message
	// Destination optionally restricts delivery to one subscriber of a
	// scheduler fanout; empty means broadcast to all subscribers.
	Destination string
	// Sequence is the scheduler-assigned fanout sequence number, strictly
	// increasing per subscriber, used to detect gaps after reconnect.
	Sequence uint64
}

func (Envelope) isMessage()       {}
func (Envelope) Kind() Kind       { return KindEnvelope }
func (m *Envelope) Base() *Common { return &m.Common }

func (m Envelope) GetText() (string, bool) {
	if m.Inner == nil {
		return "", false
	}
	return GetText(m.Inner)
}

func (m Envelope) GetBinary() ([]byte, string, bool) {
	if m.Inner == nil {
		return nil, "", false
	}
	return GetBinary(m.Inner)
}

func (m Envelope) GetToolCalls() ([]ToolCall, bool) {
	if m.Inner == nil {
		return nil, false
	}
	return GetToolCalls(m.Inner)
}

func (m Envelope) GetUsage() (Usage, bool) {
	if m.Inner == nil {
		return Usage{}, false
	}
	return GetUsage(m.Inner)
}

// RunStatus classifies the terminal or transitional state carried by
// RunAssignmentMessage and RunCompletedMessage.
type RunStatus string

const (
	RunStatusAssigned  RunStatus = "assigned"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunAssignmentMessage is a control message announcing that a batch of
// queued inputs has been accepted by the scheduler and assigned a RunID,
// published to every subscriber of the owning thread so late subscribers
// can correlate subsequent messages. InputIDs names every receipt_id drawn
// into this run's batch: per invariant, each receipt_id appears in exactly
// one RunAssignmentMessage across the thread's lifetime.
type RunAssignmentMessage struct {
	Common
	AssignedTo  string
	InputIDs    []string
	WasInjected bool
}

func (RunAssignmentMessage) isMessage()       {}
func (RunAssignmentMessage) Kind() Kind       { return KindRunAssignmentMessage }
func (m *RunAssignmentMessage) Base() *Common { return &m.Common }

// RunCompletedMessage is a control message announcing that a run reached a
// terminal state.
type RunCompletedMessage struct {
	Common
	Status RunStatus
	// ErrorMessage is set when Status is RunStatusFailed.
	ErrorMessage string
}

func (RunCompletedMessage) isMessage()       {}
func (RunCompletedMessage) Kind() Kind       { return KindRunCompletedMessage }
func (m *RunCompletedMessage) Base() *Common { return &m.Common }
