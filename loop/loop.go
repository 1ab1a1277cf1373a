// Package loop implements the three client-facing delivery modes layered
// on top of a scheduler.Scheduler: PollLoop for clients that periodically
// ask "what's new", PushLoop for clients that hold a live connection open
// (interactively, or for exactly one run), and TranslatorLoop for bridging
// the fanout stream into a JSON event protocol a non-Go client can consume.
package loop

import (
	"context"
	"time"

	"goa.design/convorun/message"
)

// Scheduler is the subset of scheduler.Scheduler the loop package depends
// on, kept narrow so loop can be tested against a fake without importing
// the scheduler package's full dependency graph.
type Scheduler interface {
	Send(ctx context.Context, input message.UserInput) (message.SendReceipt, error)
	Subscribe(threadID string) (<-chan message.Envelope, func(), error)
}

// PollLoop repeatedly asks a store for history past a cursor, for clients
// that cannot hold a streaming connection open.
type PollLoop struct {
	History func(ctx context.Context, threadID string, afterOrderIdx int64) ([]message.Message, error)
	// Interval is how often Poll checks for new history. Callers that
	// want tighter latency should call Poll directly in their own loop
	// instead of Run.
	Interval time.Duration
}

// Poll returns every message with MessageOrderIdx greater than
// afterOrderIdx, and the new cursor to pass on the next call.
func (p PollLoop) Poll(ctx context.Context, threadID string, afterOrderIdx int64) ([]message.Message, int64, error) {
	msgs, err := p.History(ctx, threadID, afterOrderIdx)
	if err != nil {
		return nil, afterOrderIdx, err
	}
	cursor := afterOrderIdx
	for _, m := range msgs {
		if idx := m.Base().MessageOrderIdx; idx > cursor {
			cursor = idx
		}
	}
	return msgs, cursor, nil
}

// Run polls on Interval until ctx is cancelled, invoking onMessages with
// each non-empty batch. It blocks until ctx.Done.
func (p PollLoop) Run(ctx context.Context, threadID string, startAfter int64, onMessages func([]message.Message)) error {
	interval := p.Interval
	if interval <= 0 {
		interval = time.Second
	}
	cursor := startAfter
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			msgs, next, err := p.Poll(ctx, threadID, cursor)
			if err != nil {
				return err
			}
			cursor = next
			if len(msgs) > 0 {
				onMessages(msgs)
			}
		}
	}
}
