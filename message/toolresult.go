package message

// ToolResultContent is a single content block inside a ToolCallResult,
// mirroring the provider convention that a tool's output may itself be a
// mix of text and binary blocks.
type ToolResultContent struct {
	Text      string
	Data      []byte
	MediaType string
}

// ToolCallResult carries the outcome of executing one ToolCall.
type ToolCallResult struct {
	ToolCallID string
	Content    []ToolResultContent
	IsError    bool
}

// GetText concatenates the result's text blocks.
func (r ToolCallResult) GetText() (string, bool) {
	var out string
	found := false
	for _, c := range r.Content {
		if c.Text != "" {
			out += c.Text
			found = true
		}
	}
	return out, found
}

// GetBinary returns the first binary block present, if any.
func (r ToolCallResult) GetBinary() ([]byte, string, bool) {
	for _, c := range r.Content {
		if len(c.Data) > 0 {
			return c.Data, c.MediaType, true
		}
	}
	return nil, "", false
}

// ToolsCallResult reports results for one or more tool calls as a single
// message, the counterpart turn to a ToolsCall.
type ToolsCallResult struct {
	Common
	Results []ToolCallResult
}

func (ToolsCallResult) isMessage()       {}
func (ToolsCallResult) Kind() Kind       { return KindToolsCallResult }
func (m *ToolsCallResult) Base() *Common { return &m.Common }

// GetText implements TextGetter by concatenating all result texts in order.
func (m ToolsCallResult) GetText() (string, bool) {
	var out string
	found := false
	for _, r := range m.Results {
		if t, ok := r.GetText(); ok {
			out += t
			found = true
		}
	}
	return out, found
}

// ToolsCallAggregate pairs a completed ToolsCall with its ToolsCallResult
// for compact persistence and history replay: a single history entry that
// carries both the request and its outcome instead of two separate
// messages a consumer must correlate by ToolCallID.
type ToolsCallAggregate struct {
	Common
	Call   ToolsCall
	Result ToolsCallResult
}

func (ToolsCallAggregate) isMessage()       {}
func (ToolsCallAggregate) Kind() Kind       { return KindToolsCallAggregate }
func (m *ToolsCallAggregate) Base() *Common { return &m.Common }

// GetToolCalls implements ToolCallsGetter by exposing the original calls.
func (m ToolsCallAggregate) GetToolCalls() ([]ToolCall, bool) {
	return m.Call.GetToolCalls()
}

// GetText implements TextGetter by exposing the result text.
func (m ToolsCallAggregate) GetText() (string, bool) {
	return m.Result.GetText()
}
