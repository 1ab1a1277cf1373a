// Package streambuild assembles streaming message deltas (message.TextUpdate,
// message.ReasoningUpdate, message.ToolCallUpdate, message.ToolsCallUpdate)
// into the completed item each delta stream eventually produces. A Builder
// is scoped to a single GenerationID/MessageOrderIdx: construct one per item
// as it starts, feed it every delta observed for that item in order, and
// call Build once the provider signals the item is complete.
//
// Boundary detection: a delta belongs to the builder's item only while
// GenerationID and MessageOrderIdx match what the builder was opened with;
// any other combination starts a new item and the caller must open a new
// Builder for it. ToolCallBuilder is the exception: it matches deltas by
// ToolCallID.
package streambuild

import "goa.design/convorun/message"

// Builder accumulates deltas of one kind into a single completed message.
type Builder interface {
	// Accepts reports whether m belongs to this builder's in-progress
	// item (same concrete delta kind, GenerationID, and MessageOrderIdx).
	Accepts(m message.Message) bool
	// Feed appends m's delta content. Callers must call Accepts first;
	// Feed on a message that would fail Accepts returns an error.
	Feed(m message.Message) error
	// Build returns the completed message assembled so far. It may be
	// called repeatedly; it does not reset accumulated state.
	Build() message.Message
}
