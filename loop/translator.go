package loop

import (
	"context"
	"encoding/json"
	"fmt"

	"goa.design/convorun/message"
)

// BridgeEvent is the JSON envelope a TranslatorLoop emits for each message,
// suitable for forwarding verbatim over a websocket or SSE connection to a
// non-Go client.
type BridgeEvent struct {
	Type    message.Kind    `json:"type"`
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"payload"`
}

// TranslatorLoop bridges a scheduler subscription into a stream of
// BridgeEvent JSON frames, so a client written in any language can consume
// the conversation without linking against the message package.
type TranslatorLoop struct {
	Scheduler Scheduler
}

// Run subscribes to threadID and writes one JSON frame per message to
// emit, until ctx is cancelled or the subscription closes.
func (t TranslatorLoop) Run(ctx context.Context, threadID string, emit func(BridgeEvent) error) error {
	sub, unsubscribe, err := t.Scheduler.Subscribe(threadID)
	if err != nil {
		return err
	}
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-sub:
			if !ok {
				return nil
			}
			payload, err := message.Encode(env.Inner)
			if err != nil {
				return fmt.Errorf("loop: encode bridge event: %w", err)
			}
			event := BridgeEvent{Type: env.Inner.Kind(), Seq: env.Sequence, Payload: payload}
			if err := emit(event); err != nil {
				return err
			}
		}
	}
}
