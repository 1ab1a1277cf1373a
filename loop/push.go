package loop

import (
	"context"

	"goa.design/convorun/message"
)

// PushMode selects how long a PushLoop keeps its subscription open.
type PushMode int

const (
	// Interactive keeps the subscription open for the lifetime of ctx,
	// delivering every message published to the thread until the caller
	// cancels (a chat client holding a connection open indefinitely).
	Interactive PushMode = iota
	// OneShot closes the subscription as soon as one full run completes
	// (observing a message.RunCompletedMessage), for callers that sent a
	// single turn and want exactly its reply.
	OneShot
)

// PushLoop delivers a thread's live message stream to a sink as it is
// published, optionally sending a new turn first.
type PushLoop struct {
	Scheduler Scheduler
	Mode      PushMode
}

// Run subscribes to threadID, optionally sends input first, and delivers
// every message to onMessage until ctx is cancelled (Interactive) or a run
// completes (OneShot). It returns when delivery stops, for any reason.
func (p PushLoop) Run(ctx context.Context, threadID string, input *message.UserInput, onMessage func(message.Message)) error {
	sub, unsubscribe, err := p.Scheduler.Subscribe(threadID)
	if err != nil {
		return err
	}
	defer unsubscribe()

	if input != nil {
		if _, err := p.Scheduler.Send(ctx, *input); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-sub:
			if !ok {
				return nil
			}
			onMessage(env.Inner)
			if p.Mode == OneShot {
				if _, done := env.Inner.(*message.RunCompletedMessage); done {
					return nil
				}
			}
		}
	}
}
