package streambuild

import (
	"fmt"

	"goa.design/convorun/message"
)

// TextBuilder assembles message.TextUpdate deltas into a message.Text.
type TextBuilder struct {
	common  message.Common
	opened  bool
	content string
}

// NewTextBuilder opens a builder scoped to the first delta's
// GenerationID/MessageOrderIdx/ThreadID/RunID.
func NewTextBuilder(first message.TextUpdate) *TextBuilder {
	return &TextBuilder{common: first.Common, opened: true, content: first.Delta}
}

// Accepts implements Builder.
func (b *TextBuilder) Accepts(m message.Message) bool {
	u, ok := m.(*message.TextUpdate)
	if !ok {
		return false
	}
	return sameItem(b.common, u.Common)
}

// Feed implements Builder.
func (b *TextBuilder) Feed(m message.Message) error {
	u, ok := m.(*message.TextUpdate)
	if !ok {
		return fmt.Errorf("streambuild: TextBuilder.Feed got %T, want *message.TextUpdate", m)
	}
	if !b.opened {
		b.common = u.Common
		b.opened = true
	} else if !sameItem(b.common, u.Common) {
		return fmt.Errorf("streambuild: delta for generation %q order %d does not belong to open item (generation %q order %d)",
			u.GenerationID, u.MessageOrderIdx, b.common.GenerationID, b.common.MessageOrderIdx)
	}
	b.content += u.Delta
	return nil
}

// Build implements Builder.
func (b *TextBuilder) Build() message.Message {
	return &message.Text{Common: b.common, Content: b.content}
}

func sameItem(a, b message.Common) bool {
	return a.GenerationID == b.GenerationID && a.MessageOrderIdx == b.MessageOrderIdx
}
