// Package store defines durable persistence for conversation threads and
// their message history, mirroring the lifecycle contract of the teacher
// framework's session store: explicit creation, explicit termination, and
// idempotent operations so a crashed scheduler can safely retry.
package store

import (
	"context"
	"errors"
	"time"

	"goa.design/convorun/message"
)

type (
	// PersistedMessage is a message.Message flattened for storage, keeping
	// the ordering key alongside the encoded payload so a store can sort
	// and page through history without decoding every row.
	PersistedMessage struct {
		ThreadID        string
		GenerationID    string
		MessageOrderIdx int64
		Kind            message.Kind
		Payload         []byte
		CreatedAt       time.Time
	}

	// ConversationStore persists thread lifecycle state and message
	// history.
	//
	// Implementations surface failures to callers rather than swallowing
	// them. The scheduler logs a failed write and carries on with the run;
	// a persistence failure never fails a run.
	ConversationStore interface {
		// CreateThread creates, or idempotently returns, an active thread.
		// Returns ErrThreadEnded when the thread exists but is terminal.
		CreateThread(ctx context.Context, threadID string, createdAt time.Time) (message.ThreadMetadata, error)
		// LoadThread loads thread metadata. Returns ErrThreadNotFound when
		// the thread does not exist.
		LoadThread(ctx context.Context, threadID string) (message.ThreadMetadata, error)
		// EndThread marks a thread ended. Idempotent: ending an
		// already-ended thread returns the stored metadata unchanged.
		EndThread(ctx context.Context, threadID string, endedAt time.Time) (message.ThreadMetadata, error)

		// SaveMetadata durably replaces a thread's full metadata record.
		// Callers are responsible for carrying forward fields they do not
		// intend to change (Metadata, SessionMappings): this is a
		// full-replace write, not a per-field patch. The core never
		// assumes atomicity between AppendMessages and SaveMetadata; a
		// crash between the two is recovered by RecoverAsync reconciling
		// against LoadHistory.
		SaveMetadata(ctx context.Context, threadID string, metadata message.ThreadMetadata) error

		// AppendMessages durably appends messages to a thread's history in
		// the given order. Appending is additive only; stores never
		// rewrite or reorder previously appended rows.
		AppendMessages(ctx context.Context, threadID string, msgs []PersistedMessage) error
		// LoadHistory returns a thread's persisted messages ordered by
		// MessageOrderIdx then insertion order, starting strictly after
		// afterOrderIdx. Passing 0 loads every row whose MessageOrderIdx is
		// positive; rows stored at index 0 are never returned.
		LoadHistory(ctx context.Context, threadID string, afterOrderIdx int64) ([]PersistedMessage, error)
	}
)

var (
	// ErrThreadNotFound indicates a thread does not exist in the store.
	ErrThreadNotFound = errors.New("store: thread not found")
	// ErrThreadEnded indicates a thread exists but is ended.
	ErrThreadEnded = errors.New("store: thread ended")
)

// Decode decodes every PersistedMessage in msgs back into the message
// algebra, in the order given. It stops and returns the first decode
// error encountered.
func Decode(msgs []PersistedMessage) ([]message.Message, error) {
	out := make([]message.Message, 0, len(msgs))
	for _, pm := range msgs {
		m, err := message.Decode(pm.Payload)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// ToPersisted encodes msgs for storage under threadID, stamping CreatedAt
// with now for every row.
func ToPersisted(threadID string, msgs []message.Message, now time.Time) ([]PersistedMessage, error) {
	out := make([]PersistedMessage, 0, len(msgs))
	for _, m := range msgs {
		payload, err := message.Encode(m)
		if err != nil {
			return nil, err
		}
		base := m.Base()
		out = append(out, PersistedMessage{
			ThreadID:        threadID,
			GenerationID:    base.GenerationID,
			MessageOrderIdx: base.MessageOrderIdx,
			Kind:            m.Kind(),
			Payload:         payload,
			CreatedAt:       now,
		})
	}
	return out, nil
}
