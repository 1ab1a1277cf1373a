package streambuild

import (
	"fmt"

	"goa.design/convorun/message"
)

// ToolCallBuilder assembles message.ToolCallUpdate deltas for a single
// ToolCallID into one message.ToolCall.
type ToolCallBuilder struct {
	common        message.Common
	toolCallID    string
	name          string
	argumentsJSON string
	target        message.ExecutionTarget
}

// NewToolCallBuilder opens a builder scoped to the first update's
// ToolCallID.
func NewToolCallBuilder(first message.ToolCallUpdate) *ToolCallBuilder {
	return &ToolCallBuilder{
		common:        first.Common,
		toolCallID:    first.ToolCallID,
		name:          first.Name,
		argumentsJSON: first.ArgumentsJSON,
		target:        first.Target,
	}
}

// Accepts implements Builder.
func (b *ToolCallBuilder) Accepts(m message.Message) bool {
	u, ok := m.(*message.ToolCallUpdate)
	if !ok {
		return false
	}
	return u.ToolCallID == b.toolCallID
}

// Feed implements Builder.
func (b *ToolCallBuilder) Feed(m message.Message) error {
	u, ok := m.(*message.ToolCallUpdate)
	if !ok {
		return fmt.Errorf("streambuild: ToolCallBuilder.Feed got %T, want *message.ToolCallUpdate", m)
	}
	if u.ToolCallID != b.toolCallID {
		return fmt.Errorf("streambuild: update for tool call %q does not belong to open call %q", u.ToolCallID, b.toolCallID)
	}
	if u.Name != "" {
		b.name = u.Name
	}
	if u.Target != "" {
		b.target = u.Target
	}
	b.argumentsJSON += u.ArgumentsJSON
	return nil
}

// Build implements Builder, returning a message.ToolsCall with exactly one
// call so it shares a type with ToolsCallBuilder's output.
func (b *ToolCallBuilder) Build() message.Message {
	return &message.ToolsCall{
		Common: b.common,
		Calls: []message.ToolCall{{
			ToolCallID:    b.toolCallID,
			Name:          b.name,
			ArgumentsJSON: b.argumentsJSON,
			Target:        b.target,
		}},
	}
}

// ToolCall returns the assembled call directly, for callers that do not
// need the wrapping ToolsCall envelope.
func (b *ToolCallBuilder) ToolCall() message.ToolCall {
	return message.ToolCall{
		ToolCallID:    b.toolCallID,
		Name:          b.name,
		ArgumentsJSON: b.argumentsJSON,
		Target:        b.target,
	}
}

// openToolCall is the call currently accumulating deltas inside a
// ToolsCallBuilder.
type openToolCall struct {
	toolCallID    string
	index         *int
	name          string
	argumentsJSON string
	target        message.ExecutionTarget
}

// startsNewCall reports whether u identifies a call distinct from open: a
// new call starts only when u carries a non-null ToolCallID or Index that
// differs from open's. An update carrying neither (the common case for a
// provider that streams one tool call's arguments at a time) continues
// whatever call is currently open.
func startsNewCall(open *openToolCall, u *message.ToolCallUpdate) bool {
	if u.ToolCallID != "" && u.ToolCallID != open.toolCallID {
		return true
	}
	if u.Index != nil && (open.index == nil || *u.Index != *open.index) {
		return true
	}
	return false
}

// ToolsCallBuilder assembles message.ToolsCallUpdate batches into a single
// completed message.ToolsCall. It tracks exactly one "currently open" call
// at a time: a delta closes the open call and starts a new one only when it
// carries a new, non-null ToolCallID or Index, per the open-call boundary
// rule a provider's streaming deltas must satisfy. ToolCallIdx is assigned
// to each call in the order it closes.
type ToolsCallBuilder struct {
	common message.Common
	opened bool
	closed []message.ToolCall
	open   *openToolCall
}

// NewToolsCallBuilder returns an empty builder; the first Feed call
// determines the item's GenerationID/MessageOrderIdx.
func NewToolsCallBuilder() *ToolsCallBuilder {
	return &ToolsCallBuilder{}
}

// Accepts implements Builder.
func (b *ToolsCallBuilder) Accepts(m message.Message) bool {
	u, ok := m.(*message.ToolsCallUpdate)
	if !ok {
		return false
	}
	if !b.opened {
		return true
	}
	return sameItem(b.common, u.Common)
}

// Feed implements Builder.
func (b *ToolsCallBuilder) Feed(m message.Message) error {
	u, ok := m.(*message.ToolsCallUpdate)
	if !ok {
		return fmt.Errorf("streambuild: ToolsCallBuilder.Feed got %T, want *message.ToolsCallUpdate", m)
	}
	if !b.opened {
		b.common = u.Common
		b.opened = true
	} else if !sameItem(b.common, u.Common) {
		return fmt.Errorf("streambuild: batch for generation %q order %d does not belong to open item (generation %q order %d)",
			u.GenerationID, u.MessageOrderIdx, b.common.GenerationID, b.common.MessageOrderIdx)
	}
	for i := range u.Updates {
		b.feedOne(&u.Updates[i])
	}
	return nil
}

func (b *ToolsCallBuilder) feedOne(u *message.ToolCallUpdate) {
	if b.open != nil && startsNewCall(b.open, u) {
		b.closeOpen()
	}
	if b.open == nil {
		b.open = &openToolCall{toolCallID: u.ToolCallID, index: u.Index}
	} else {
		if u.ToolCallID != "" {
			b.open.toolCallID = u.ToolCallID
		}
		if u.Index != nil {
			b.open.index = u.Index
		}
	}
	if u.Name != "" {
		b.open.name = u.Name
	}
	if u.Target != "" {
		b.open.target = u.Target
	}
	b.open.argumentsJSON += u.ArgumentsJSON
}

func (b *ToolsCallBuilder) closeOpen() {
	if b.open == nil {
		return
	}
	b.closed = append(b.closed, message.ToolCall{
		ToolCallID:    b.open.toolCallID,
		Name:          b.open.name,
		ArgumentsJSON: b.open.argumentsJSON,
		Target:        b.open.target,
		ToolCallIdx:   len(b.closed),
	})
	b.open = nil
}

// Build implements Builder, closing whatever call is still open.
func (b *ToolsCallBuilder) Build() message.Message {
	b.closeOpen()
	return &message.ToolsCall{Common: b.common, Calls: b.closed}
}
