package message

import "time"

// Attachment is a binary payload accompanying a UserInput, carried
// alongside its text (an uploaded image, a pasted document).
type Attachment struct {
	MediaType string
	Data      []byte
	SourceURL string
}

// UserInput is the external-facing request to send a new user turn into a
// thread, accepted by a scheduler's Send operation before it becomes part
// of the message algebra proper.
type UserInput struct {
	ThreadID    string
	FromAgent   string
	Text        string
	Attachments []Attachment
	Metadata    Metadata
	// InputID optionally names this input; Send echoes it back on the
	// SendReceipt. Send does not deduplicate by InputID: sending an input
	// again with the same InputID queues it a second time.
	InputID string
	// ParentRunID is set when this input is injected mid-run (for example
	// a tool result or an operator correction) rather than submitted by a
	// client waiting on a fresh run.
	ParentRunID string
}

// QueuedInput is a UserInput after it has been accepted into a
// scheduler's bounded input queue, carrying the bookkeeping needed to
// report back a SendReceipt and to preserve FIFO ordering. The queue is
// held in memory and does not survive a restart.
// It is not yet assigned to a run: a run is assigned only once a batch of
// QueuedInput is drained together, producing one RunAssignment that
// correlates every receipt in the batch to that run.
type QueuedInput struct {
	Input     UserInput
	ReceiptID string
	QueuedAt  time.Time
}

// SendReceipt is returned synchronously to the caller of a scheduler's
// Send operation once input has been accepted into the scheduler's
// in-memory queue, before any run has
// been assigned to it. ReceiptID is distinct from the eventual RunID: one
// receipt always ends up in exactly one RunAssignment.input_ids, but many
// receipts queued in the same drain share a single run.
type SendReceipt struct {
	ReceiptID string
	InputID   string
	ThreadID  string
	QueuedAt  time.Time
	// Accepted is false when the queue was full and the input was
	// rejected rather than enqueued.
	Accepted bool
}

// RunAssignment records which run id and generation id were assigned to a
// batch of queued input once a scheduler drained and started executing it.
// It is the plain data twin of RunAssignmentMessage, carrying the
// receipt-to-run correlation RunAssignmentMessage alone cannot: every
// receipt_id present in InputIDs belongs to exactly this run.
type RunAssignment struct {
	RunID        string
	GenerationID string
	ThreadID     string
	InputIDs     []string
	ParentRunID  string
	// WasInjected is true when this run was started to deliver a
	// mid-run injection (a ParentRunID-bearing input) rather than a
	// fresh top-level turn.
	WasInjected bool
	AssignedTo  string
	AssignedAt  time.Time
}

// ThreadStatus classifies the lifecycle state of a conversation thread.
type ThreadStatus string

const (
	ThreadStatusActive ThreadStatus = "active"
	ThreadStatusIdle   ThreadStatus = "idle"
	ThreadStatusEnded  ThreadStatus = "ended"
)

// ThreadMetadata describes a conversation thread independently of its
// message history, for listing, housekeeping, and run-state recovery.
type ThreadMetadata struct {
	ThreadID  string
	Status    ThreadStatus
	CreatedAt time.Time
	// LastActivityAt is the thread's last_updated timestamp: the moment
	// its metadata, not necessarily its history, was last written.
	LastActivityAt time.Time
	// CurrentRunID is set while a run is in flight and cleared (to "")
	// when CompleteRun persists completion, so a restarted scheduler can
	// tell a crashed-mid-run thread from one that finished cleanly.
	CurrentRunID string
	// LatestRunID is the most recently completed run, preserved across
	// CompleteRun updates so RecoverAsync can resume run-id continuity
	// (for example assigning ParentRunID to injected follow-up runs)
	// without replaying the full message history to find it.
	LatestRunID string
	// SessionMappings correlates this thread to identifiers in other
	// systems (a provider's own session/conversation id, a support
	// ticket id), preserved verbatim across every metadata update.
	SessionMappings map[string]string
	// Metadata carries caller-defined thread properties, preserved
	// verbatim across every metadata update the same way SessionMappings
	// is.
	Metadata Metadata
}
