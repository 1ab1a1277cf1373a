package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/convorun/message"
)

func TestTryDrainInputsBatchesEverythingQueuedSoFar(t *testing.T) {
	th := newThreadState("t1")
	first := th.enqueue(message.QueuedInput{ReceiptID: "r1", Input: message.UserInput{ThreadID: "t1", Text: "a"}})
	require.True(t, first, "first enqueue on an idle thread must report a worker is needed")
	second := th.enqueue(message.QueuedInput{ReceiptID: "r2", Input: message.UserInput{ThreadID: "t1", Text: "b"}})
	require.False(t, second, "a second enqueue before any drain must not ask for a second worker")

	batch := th.tryDrainInputs()
	require.Len(t, batch, 2, "a single drain must take every input queued ahead of it, not one at a time")
	require.Equal(t, "r1", batch[0].ReceiptID)
	require.Equal(t, "r2", batch[1].ReceiptID)

	require.Nil(t, th.tryDrainInputs(), "draining an empty queue reports nil and releases workerRunning")
}

func TestStartRunAssignsDistinctRunAndGenerationIDs(t *testing.T) {
	th := newThreadState("t1")
	first := th.startRun("", false)
	th.completeRun(first.RunID)
	second := th.startRun("", false)

	require.NotEmpty(t, first.RunID)
	require.NotEmpty(t, first.GenerationID)
	require.NotEqual(t, first.RunID, first.GenerationID)
	require.NotEqual(t, first.RunID, second.RunID)
	require.Equal(t, first.RunID, second.ParentRunID, "a fresh run without an explicit parent chains off the thread's latest completed run")
}

func TestCompleteRunUpdatesCurrentAndLatest(t *testing.T) {
	th := newThreadState("t1")
	assignment := th.startRun("", false)
	current, latest := th.runState()
	require.Equal(t, assignment.RunID, current)
	require.Empty(t, latest)

	th.completeRun(assignment.RunID)
	current, latest = th.runState()
	require.Empty(t, current)
	require.Equal(t, assignment.RunID, latest)
}
