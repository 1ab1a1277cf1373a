package streambuild

import (
	"fmt"

	"goa.design/convorun/message"
)

// ReasoningBuilder assembles message.ReasoningUpdate deltas into a
// message.Reasoning. Encrypted reasoning arrives as a single
// non-incremental delta carrying the full opaque token; Plain and
// Summary visibility accumulate text across multiple deltas like
// TextBuilder.
type ReasoningBuilder struct {
	common     message.Common
	opened     bool
	content    string
	visibility message.ReasoningVisibility
}

// NewReasoningBuilder opens a builder scoped to the first delta.
func NewReasoningBuilder(first message.ReasoningUpdate) *ReasoningBuilder {
	return &ReasoningBuilder{common: first.Common, opened: true, content: first.Delta, visibility: first.Visibility}
}

// Accepts implements Builder.
func (b *ReasoningBuilder) Accepts(m message.Message) bool {
	u, ok := m.(*message.ReasoningUpdate)
	if !ok {
		return false
	}
	return sameItem(b.common, u.Common)
}

// Feed implements Builder.
func (b *ReasoningBuilder) Feed(m message.Message) error {
	u, ok := m.(*message.ReasoningUpdate)
	if !ok {
		return fmt.Errorf("streambuild: ReasoningBuilder.Feed got %T, want *message.ReasoningUpdate", m)
	}
	if !b.opened {
		b.common = u.Common
		b.visibility = u.Visibility
		b.opened = true
	} else if !sameItem(b.common, u.Common) {
		return fmt.Errorf("streambuild: delta for generation %q order %d does not belong to open item (generation %q order %d)",
			u.GenerationID, u.MessageOrderIdx, b.common.GenerationID, b.common.MessageOrderIdx)
	}
	if u.Visibility == message.ReasoningEncrypted {
		b.visibility = message.ReasoningEncrypted
		b.content = u.Delta
		return nil
	}
	b.content += u.Delta
	return nil
}

// Build implements Builder.
func (b *ReasoningBuilder) Build() message.Message {
	r := &message.Reasoning{Common: b.common, Visibility: b.visibility}
	if b.visibility == message.ReasoningEncrypted {
		r.OpaqueToken = b.content
	} else {
		r.Content = b.content
	}
	return r
}
