package message

// ServerToolUse records that the provider invoked one of its own
// server-side tools (web search, code execution) during generation. Unlike
// ToolsCall, no ToolCallResult is expected from the caller; the outcome
// arrives as a ServerToolResult in the same stream.
type ServerToolUse struct {
	Common
	ToolCallID    string
	Name          string
	ArgumentsJSON string
}

func (ServerToolUse) isMessage()       {}
func (ServerToolUse) Kind() Kind       { return KindServerToolUse }
func (m *ServerToolUse) Base() *Common { return &m.Common }

// ServerToolResult carries the provider-executed outcome for a prior
// ServerToolUse, correlated by ToolCallID.
type ServerToolResult struct {
	Common
	ToolCallID string
	Content    []ToolResultContent
	IsError    bool
}

func (ServerToolResult) isMessage()       {}
func (ServerToolResult) Kind() Kind       { return KindServerToolResult }
func (m *ServerToolResult) Base() *Common { return &m.Common }

// GetText implements TextGetter.
func (m ServerToolResult) GetText() (string, bool) {
	var out string
	found := false
	for _, c := range m.Content {
		if c.Text != "" {
			out += c.Text
			found = true
		}
	}
	return out, found
}
