package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goa.design/convorun/message"
	"goa.design/convorun/provider/fake"
	"goa.design/convorun/store/inmem"
)

func TestSendThenSubscribeReceivesAssignmentAndCompletion(t *testing.T) {
	agent := fake.New().WithStreams(fake.StreamScript{Deltas: []message.Message{&message.Text{Content: "hi there"}}})
	sched := New(Config{Store: inmem.New(), Agent: agent})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.RunAsync(ctx)
	defer sched.DisposeAsync()

	sub, unsubscribe, err := sched.Subscribe("t1")
	require.NoError(t, err)
	defer unsubscribe()

	receipt, err := sched.Send(ctx, message.UserInput{ThreadID: "t1", Text: "hello"})
	require.NoError(t, err)
	require.True(t, receipt.Accepted)

	var kinds []message.Kind
	var texts []string
	timeout := time.After(2 * time.Second)
	for len(kinds) < 3 {
		select {
		case env := <-sub:
			kinds = append(kinds, env.Inner.Kind())
			if txt, ok := env.Inner.(*message.Text); ok {
				texts = append(texts, txt.Content)
			}
		case <-timeout:
			t.Fatalf("timed out waiting for messages, got %v", kinds)
		}
	}
	require.Equal(t, message.KindRunAssignmentMessage, kinds[0])
	require.Equal(t, message.KindText, kinds[1])
	require.Equal(t, []string{"hi there"}, texts, "the user's input is added to history, not published to subscribers")
	require.Equal(t, message.KindRunCompletedMessage, kinds[2])
}

func TestSendRejectsWhenQueueFull(t *testing.T) {
	agent := fake.New()
	sched := New(Config{Store: inmem.New(), Agent: agent, InputQueueCapacity: 1})
	receipt1, err := sched.Send(context.Background(), message.UserInput{ThreadID: "t1", Text: "a"})
	require.NoError(t, err)
	require.True(t, receipt1.Accepted)
	receipt2, err := sched.Send(context.Background(), message.UserInput{ThreadID: "t1", Text: "b"})
	require.NoError(t, err)
	require.False(t, receipt2.Accepted, "second send should be rejected once the bounded queue is full")
}

func TestSendRequiresThreadID(t *testing.T) {
	sched := New(Config{Store: inmem.New(), Agent: fake.New()})
	_, err := sched.Send(context.Background(), message.UserInput{Text: "hi"})
	require.Error(t, err)
}

func TestFailedGenerationPublishesRunFailed(t *testing.T) {
	agent := fake.New() // no stream scripts configured: StreamReply always errors
	sched := New(Config{Store: inmem.New(), Agent: agent})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.RunAsync(ctx)
	defer sched.DisposeAsync()

	sub, unsubscribe, err := sched.Subscribe("t1")
	require.NoError(t, err)
	defer unsubscribe()

	_, err = sched.Send(ctx, message.UserInput{ThreadID: "t1", Text: "hello"})
	require.NoError(t, err)

	var last message.Message
	timeout := time.After(2 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case env := <-sub:
			last = env.Inner
		case <-timeout:
			t.Fatal("timed out waiting for failure message")
		}
	}
	completed, ok := last.(*message.RunCompletedMessage)
	require.True(t, ok)
	require.Equal(t, message.RunStatusFailed, completed.Status)
}

func TestTurnLoopDispatchesLocalToolCallsAndContinues(t *testing.T) {
	agent := fake.New().WithStreams(
		fake.StreamScript{Deltas: []message.Message{
			&message.ToolsCallUpdate{Updates: []message.ToolCallUpdate{{
				ToolCallID:    "call-1",
				Name:          "lookup",
				ArgumentsJSON: `{"q":"go"}`,
				Target:        message.ExecutionLocalFunction,
			}}},
		}},
		fake.StreamScript{Deltas: []message.Message{&message.Text{Content: "done"}}},
	)
	var calls int
	registry := FunctionRegistryFunc(func(_ context.Context, call message.ToolCall) message.ToolCallResult {
		calls++
		require.Equal(t, "lookup", call.Name)
		require.Equal(t, `{"q":"go"}`, call.ArgumentsJSON)
		return message.ToolCallResult{ToolCallID: call.ToolCallID, Content: []message.ToolResultContent{{Text: "42"}}}
	})
	sched := New(Config{Store: inmem.New(), Agent: agent, MaxTurnsPerRun: 2, Functions: registry})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.RunAsync(ctx)
	defer sched.DisposeAsync()

	sub, unsubscribe, err := sched.Subscribe("t1")
	require.NoError(t, err)
	defer unsubscribe()

	_, err = sched.Send(ctx, message.UserInput{ThreadID: "t1", Text: "hello"})
	require.NoError(t, err)

	var kinds []message.Kind
	timeout := time.After(2 * time.Second)
	for len(kinds) < 5 {
		select {
		case env := <-sub:
			kinds = append(kinds, env.Inner.Kind())
		case <-timeout:
			t.Fatalf("timed out waiting for messages, got %v", kinds)
		}
	}
	require.Equal(t, 1, calls, "the one local_function call must be dispatched exactly once")
	require.Contains(t, kinds, message.KindToolsCallResult)
	require.Equal(t, message.KindRunCompletedMessage, kinds[len(kinds)-1])
}

func TestBatchedSendsShareOneRunAssignment(t *testing.T) {
	agent := fake.New().WithStreams(fake.StreamScript{Deltas: []message.Message{&message.Text{Content: "hi"}}})
	sched := New(Config{Store: inmem.New(), Agent: agent})

	t1 := sched.threadFor("t1")
	r1 := message.QueuedInput{ReceiptID: "r1", Input: message.UserInput{ThreadID: "t1", Text: "a"}}
	r2 := message.QueuedInput{ReceiptID: "r2", Input: message.UserInput{ThreadID: "t1", Text: "b"}}
	t1.enqueue(r1)
	t1.enqueue(r2)

	sub, unsubscribe, err := sched.Subscribe("t1")
	require.NoError(t, err)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.dispatchWG.Add(1)
	go sched.runThreadWorker(ctx, t1)

	env := <-sub
	assign, ok := env.Inner.(*message.RunAssignmentMessage)
	require.True(t, ok)
	require.ElementsMatch(t, []string{"r1", "r2"}, assign.InputIDs, "draining both queued receipts together must assign them to one run")
}
