// Package message implements the polymorphic conversation message algebra:
// a closed set of tagged variants (text, reasoning, tool call/result, usage,
// citation, control) plus capability queries that let consumers extract text,
// binary payloads, tool calls, or usage without a type switch on every call
// site. Each variant is immutable after construction; Envelope delegates
// capabilities to the message it wraps rather than re-implementing them.
//
// Equality is structural (plain Go struct comparison/reflect.DeepEqual);
// serialization is left to callers via Encode and Decode in json.go so the core
// algebra stays independent of any particular wire format.
package message

import "encoding/json"

// Role identifies the speaker of a Message.
type Role string

const (
	// RoleNone is used for control messages that have no conversational
	// speaker (run assignment/completion markers).
	RoleNone Role = ""
	// RoleUser identifies end-user authored content.
	RoleUser Role = "user"
	// RoleAssistant identifies model-authored content.
	RoleAssistant Role = "assistant"
	// RoleSystem identifies system-authored content (prompts, TodoContext).
	RoleSystem Role = "system"
	// RoleTool identifies tool-authored content (tool results).
	RoleTool Role = "tool"
)

// Metadata is an ordered string-keyed dictionary attached to messages and
// usage payloads. Ordering is preserved across Set calls so round-tripping
// through a store does not reorder keys a caller depends on for display.
// The zero value is an empty, ready-to-use Metadata.
type Metadata struct {
	keys   []string
	values map[string]any
}

// NewMetadata returns an empty Metadata. Use MetadataFromPairs to build one
// with entries in a given order.
func NewMetadata() Metadata {
	return Metadata{values: map[string]any{}}
}

// MetadataFromPairs builds a Metadata preserving the given key/value order.
// pairs must have an even length; malformed trailing keys are ignored.
func MetadataFromPairs(pairs ...any) Metadata {
	m := NewMetadata()
	for i := 0; i+1 < len(pairs); i += 2 {
		key, _ := pairs[i].(string)
		if key == "" {
			continue
		}
		m.Set(key, pairs[i+1])
	}
	return m
}

// Get returns the value stored at key and whether it was present.
func (m Metadata) Get(key string) (any, bool) {
	if m.values == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Set inserts or overwrites key, appending it to the key order only the
// first time it is set.
func (m *Metadata) Set(key string, value any) {
	if m.values == nil {
		m.values = map[string]any{}
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Keys returns the metadata keys in insertion order.
func (m Metadata) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len reports the number of entries.
func (m Metadata) Len() int { return len(m.keys) }

// Merge returns a new Metadata containing m's entries followed by other's,
// with other's values overwriting m's for shared keys. Key order follows
// first-seen position across m then other, matching the "later keys
// overwrite" contract used by streaming builders.
func (m Metadata) Merge(other Metadata) Metadata {
	out := NewMetadata()
	for _, k := range m.keys {
		v, _ := m.Get(k)
		out.Set(k, v)
	}
	for _, k := range other.keys {
		v, _ := other.Get(k)
		out.Set(k, v)
	}
	return out
}

// MarshalJSON encodes Metadata as an array of [key, value] pairs, preserving
// insertion order through round-trips (a plain JSON object would not,
// since encoding/json sorts map keys on decode).
func (m Metadata) MarshalJSON() ([]byte, error) {
	pairs := make([][2]any, 0, m.Len())
	for _, k := range m.keys {
		v, _ := m.Get(k)
		pairs = append(pairs, [2]any{k, v})
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON decodes Metadata from the [key, value]-pairs form produced
// by MarshalJSON.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var pairs [][2]any
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	*m = Metadata{}
	for _, p := range pairs {
		key, _ := p[0].(string)
		if key == "" {
			continue
		}
		m.Set(key, p[1])
	}
	return nil
}

// Clone returns a deep-enough copy safe for independent mutation; values
// themselves are not deep-copied.
func (m Metadata) Clone() Metadata {
	out := Metadata{keys: append([]string(nil), m.keys...), values: make(map[string]any, len(m.values))}
	for k, v := range m.values {
		out.values[k] = v
	}
	return out
}

// Common carries the attributes shared by every Message variant, per the
// data model in the specification: role, provenance, and ordering.
type Common struct {
	Role Role

	// FromAgent optionally identifies the agent that authored the message,
	// for multi-agent deployments. Empty when not applicable.
	FromAgent string

	GenerationID string
	ThreadID     string
	RunID        string
	ParentRunID  string

	// MessageOrderIdx is monotonically non-decreasing within a GenerationID;
	// all streaming updates for one logical item share a single index.
	MessageOrderIdx int64

	Metadata Metadata
}

// Message is the marker interface implemented by every concrete variant.
// Base returns a pointer into the variant's embedded Common so callers can
// read or, in builder code, populate shared attributes without a type
// switch.
type Message interface {
	isMessage()
	// Kind returns a stable discriminator tag for the concrete variant,
	// used by codecs and the builder contract. It never changes value for
	// a given Go type.
	Kind() Kind
	Base() *Common
}

// Kind is the stable discriminator tag for a Message's concrete Go type.
type Kind string

const (
	KindText                 Kind = "text"
	KindTextUpdate            Kind = "text_update"
	KindReasoning             Kind = "reasoning"
	KindReasoningUpdate       Kind = "reasoning_update"
	KindImage                 Kind = "image"
	KindToolCall              Kind = "tool_call"
	KindToolCallUpdate        Kind = "tool_call_update"
	KindToolsCall             Kind = "tools_call"
	KindToolsCallUpdate       Kind = "tools_call_update"
	KindToolCallResult        Kind = "tool_call_result"
	KindToolsCallResult       Kind = "tools_call_result"
	KindToolsCallAggregate    Kind = "tools_call_aggregate"
	KindServerToolUse         Kind = "server_tool_use"
	KindServerToolResult      Kind = "server_tool_result"
	KindTextWithCitations     Kind = "text_with_citations"
	KindUsageMessage          Kind = "usage"
	KindTodoContext           Kind = "todo_context"
	KindComposite             Kind = "composite"
	KindEnvelope              Kind = "envelope"
	KindRunAssignmentMessage  Kind = "run_assignment"
	KindRunCompletedMessage   Kind = "run_completed"
)

// Capability query interfaces. A variant implements the subset relevant to
// its payload; Envelope forwards to its inner message (see control.go).

// TextGetter is implemented by variants that can surface a text
// representation of their content.
type TextGetter interface {
	// GetText returns the text representation and true, or ("", false) when
	// the variant cannot produce text (e.g. Encrypted reasoning).
	GetText() (string, bool)
}

// BinaryGetter is implemented by variants that can surface binary content
// (images, or tool results carrying binary payloads).
type BinaryGetter interface {
	// GetBinary returns the raw bytes, a media type, and true, or
	// (nil, "", false) when not applicable.
	GetBinary() ([]byte, string, bool)
}

// ToolCallsGetter is implemented by variants that carry one or more tool
// call declarations.
type ToolCallsGetter interface {
	GetToolCalls() ([]ToolCall, bool)
}

// UsageGetter is implemented by variants that carry a Usage payload.
type UsageGetter interface {
	GetUsage() (Usage, bool)
}

// GetText is a free function convenience wrapper so callers do not need to
// type-assert TextGetter themselves.
func GetText(m Message) (string, bool) {
	if tg, ok := m.(TextGetter); ok {
		return tg.GetText()
	}
	return "", false
}

// GetBinary is the BinaryGetter convenience wrapper.
func GetBinary(m Message) ([]byte, string, bool) {
	if bg, ok := m.(BinaryGetter); ok {
		return bg.GetBinary()
	}
	return nil, "", false
}

// GetToolCalls is the ToolCallsGetter convenience wrapper.
func GetToolCalls(m Message) ([]ToolCall, bool) {
	if tg, ok := m.(ToolCallsGetter); ok {
		return tg.GetToolCalls()
	}
	return nil, false
}

// GetUsage is the UsageGetter convenience wrapper.
func GetUsage(m Message) (Usage, bool) {
	if ug, ok := m.(UsageGetter); ok {
		return ug.GetUsage()
	}
	return Usage{}, false
}

// IsUpdate reports whether m is a streaming delta rather than a completed
// item (TextUpdate, ReasoningUpdate, ToolCallUpdate, ToolsCallUpdate).
func IsUpdate(m Message) bool {
	switch m.Kind() {
	case KindTextUpdate, KindReasoningUpdate, KindToolCallUpdate, KindToolsCallUpdate:
		return true
	default:
		return false
	}
}
