package loop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"goa.design/convorun/message"
)

type fakeScheduler struct {
	threads map[string]chan message.Envelope
	sent    []message.UserInput
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{threads: make(map[string]chan message.Envelope)}
}

func (f *fakeScheduler) Send(_ context.Context, input message.UserInput) (message.SendReceipt, error) {
	f.sent = append(f.sent, input)
	return message.SendReceipt{Accepted: true}, nil
}

func (f *fakeScheduler) Subscribe(threadID string) (<-chan message.Envelope, func(), error) {
	ch := make(chan message.Envelope, 8)
	f.threads[threadID] = ch
	return ch, func() { close(ch) }, nil
}

func (f *fakeScheduler) publish(threadID string, seq uint64, m message.Message) {
	f.threads[threadID] <- message.Envelope{Inner: m, Sequence: seq}
}

func TestPushLoopOneShotStopsAtRunCompleted(t *testing.T) {
	sched := newFakeScheduler()
	p := PushLoop{Scheduler: sched, Mode: OneShot}
	ctx := context.Background()

	var received []message.Kind
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, "t1", &message.UserInput{ThreadID: "t1", Text: "hi"}, func(m message.Message) {
			received = append(received, m.Kind())
		})
	}()

	// give the goroutine a moment to subscribe
	time.Sleep(10 * time.Millisecond)
	sched.publish("t1", 1, &message.Text{Content: "hello"})
	sched.publish("t1", 2, &message.RunCompletedMessage{Status: message.RunStatusCompleted})

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("push loop did not stop after run completion")
	}
	require.Equal(t, []message.Kind{message.KindText, message.KindRunCompletedMessage}, received)
	require.Len(t, sched.sent, 1)
}

func TestTranslatorLoopEncodesEachMessage(t *testing.T) {
	sched := newFakeScheduler()
	tr := TranslatorLoop{Scheduler: sched}
	ctx, cancel := context.WithCancel(context.Background())

	var events []BridgeEvent
	done := make(chan error, 1)
	go func() {
		done <- tr.Run(ctx, "t1", func(e BridgeEvent) error {
			events = append(events, e)
			if len(events) == 1 {
				cancel()
			}
			return nil
		})
	}()

	time.Sleep(10 * time.Millisecond)
	sched.publish("t1", 5, &message.Text{Content: "hi"})

	<-done
	require.Len(t, events, 1)
	require.Equal(t, message.KindText, events[0].Type)
	require.Equal(t, uint64(5), events[0].Seq)

	decoded, err := message.Decode(events[0].Payload)
	require.NoError(t, err)
	text, _ := message.GetText(decoded)
	require.Equal(t, "hi", text)
}

func TestPollLoopAdvancesCursor(t *testing.T) {
	calls := 0
	p := PollLoop{History: func(_ context.Context, _ string, after int64) ([]message.Message, error) {
		calls++
		if after == 0 {
			return []message.Message{&message.Text{Common: message.Common{MessageOrderIdx: 3}, Content: "a"}}, nil
		}
		return nil, nil
	}}
	msgs, cursor, err := p.Poll(context.Background(), "t1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, int64(3), cursor)
}
