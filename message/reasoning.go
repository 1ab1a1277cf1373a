package message

// ReasoningVisibility classifies how a Reasoning item's content may be
// surfaced to a caller.
type ReasoningVisibility string

const (
	// ReasoningPlain content is provider-supplied plaintext, safe to
	// display and to feed back into a subsequent request.
	ReasoningPlain ReasoningVisibility = "plain"
	// ReasoningSummary content is a provider-generated summary of
	// internal reasoning, safe to display but not a verbatim transcript.
	ReasoningSummary ReasoningVisibility = "summary"
	// ReasoningEncrypted content is an opaque provider token that must be
	// round-tripped verbatim on follow-up requests and cannot be
	// rendered as text.
	ReasoningEncrypted ReasoningVisibility = "encrypted"
)

// Reasoning is a completed chain-of-thought or summarized-thinking item.
type Reasoning struct {
	Common
	Content    string
	Visibility ReasoningVisibility
	// OpaqueToken carries the provider's encrypted reasoning token when
	// Visibility is ReasoningEncrypted; Content is empty in that case.
	OpaqueToken string
}

func (Reasoning) isMessage()       {}
func (Reasoning) Kind() Kind       { return KindReasoning }
func (m *Reasoning) Base() *Common { return &m.Common }

// GetText implements TextGetter. Encrypted reasoning has no text
// representation.
func (m Reasoning) GetText() (string, bool) {
	if m.Visibility == ReasoningEncrypted {
		return "", false
	}
	return m.Content, true
}

// ReasoningUpdate is a streaming delta for an in-progress Reasoning item.
type ReasoningUpdate struct {
	Common
	Delta      string
	Visibility ReasoningVisibility
}

func (ReasoningUpdate) isMessage()       {}
func (ReasoningUpdate) Kind() Kind       { return KindReasoningUpdate }
func (m *ReasoningUpdate) Base() *Common { return &m.Common }

func (m ReasoningUpdate) GetText() (string, bool) {
	if m.Visibility == ReasoningEncrypted {
		return "", false
	}
	return m.Delta, true
}
