package scheduler

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"goa.design/convorun/message"
)

// threadState owns one conversation thread's in-memory history, its
// current/latest run bookkeeping, and its live subscriber set. History
// here is the run loop's working copy; the durable copy lives in
// store.ConversationStore.
type threadState struct {
	threadID string

	mu            sync.Mutex
	history       []message.Message
	nextOrderIdx  int64
	pending       []message.QueuedInput
	workerRunning bool
	currentRunID  string
	latestRunID   string

	subMu       sync.Mutex
	subscribers map[int]chan message.Envelope
	nextSubID   int
	nextSeq     uint64
}

func newThreadState(threadID string) *threadState {
	return &threadState{threadID: threadID, nextOrderIdx: 1, subscribers: make(map[int]chan message.Envelope)}
}

// subscribe registers a new fanout channel of the given buffer size and
// returns it alongside an idempotent unsubscribe closure.
func (t *threadState) subscribe(bufSize int) (<-chan message.Envelope, func(), error) {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	id := t.nextSubID
	t.nextSubID++
	ch := make(chan message.Envelope, bufSize)
	t.subscribers[id] = ch
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			t.subMu.Lock()
			defer t.subMu.Unlock()
			if c, ok := t.subscribers[id]; ok {
				delete(t.subscribers, id)
				close(c)
			}
		})
	}
	return ch, unsubscribe, nil
}

// publishToAll fans m out to every live subscriber, tagging each delivery
// with a per-subscriber monotonically increasing sequence number. A
// subscriber whose buffer is full is dropped rather than allowed to block
// delivery to the others; replaying from the store is the documented
// recovery path for a disconnected subscriber.
func (t *threadState) publishToAll(m message.Message) {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	t.nextSeq++
	seq := t.nextSeq
	for id, ch := range t.subscribers {
		env := message.Envelope{Inner: m, Sequence: seq}
		select {
		case ch <- env:
		default:
			delete(t.subscribers, id)
			close(ch)
		}
	}
}

func (t *threadState) closeAll() {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	for id, ch := range t.subscribers {
		delete(t.subscribers, id)
		close(ch)
	}
}

// addToHistory appends msgs to the in-memory working history, assigning
// each a MessageOrderIdx continuing from the thread's last assigned index
// when the message does not already carry one.
func (t *threadState) addToHistory(msgs []message.Message) []message.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range msgs {
		base := m.Base()
		if base.MessageOrderIdx == 0 {
			base.MessageOrderIdx = t.nextOrderIdx
		}
		if base.MessageOrderIdx >= t.nextOrderIdx {
			t.nextOrderIdx = base.MessageOrderIdx + 1
		}
	}
	t.history = append(t.history, msgs...)
	out := make([]message.Message, len(t.history))
	copy(out, t.history)
	return out
}

func (t *threadState) snapshotHistory() []message.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]message.Message, len(t.history))
	copy(out, t.history)
	return out
}

// enqueue appends qi to the thread's local pending queue, started lazily:
// it reports true the first time pending work appears so the caller knows
// to start a worker goroutine, and false while a worker is already
// draining it.
func (t *threadState) enqueue(qi message.QueuedInput) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, qi)
	if t.workerRunning {
		return false
	}
	t.workerRunning = true
	return true
}

// tryDrainInputs performs a non-blocking drain of every currently queued
// input, handing the whole batch to one run rather than one run per
// input. It reports nil once the pending queue is empty, at which point
// the calling worker goroutine exits.
func (t *threadState) tryDrainInputs() []message.QueuedInput {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending) == 0 {
		t.workerRunning = false
		return nil
	}
	batch := t.pending
	t.pending = nil
	return batch
}

// startRun mints a fresh run_id and generation_id for a drained batch,
// taking parent_run_id from parentRunID when set or the thread's latest
// completed run otherwise, and marks the run current.
func (t *threadState) startRun(parentRunID string, wasInjected bool) message.RunAssignment {
	t.mu.Lock()
	defer t.mu.Unlock()
	if parentRunID == "" {
		parentRunID = t.latestRunID
	}
	runID := uuid.NewString()
	t.currentRunID = runID
	return message.RunAssignment{
		RunID:        runID,
		GenerationID: uuid.NewString(),
		ThreadID:     t.threadID,
		ParentRunID:  parentRunID,
		WasInjected:  wasInjected,
		AssignedTo:   AgentIdentity,
		AssignedAt:   time.Now(),
	}
}

// completeRun records runID as the thread's latest completed run and
// clears currentRunID, mirroring the metadata update CompleteRun performs
// in the store.
func (t *threadState) completeRun(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latestRunID = runID
	t.currentRunID = ""
}

// runState snapshots the bookkeeping CompleteRun persists as thread
// metadata.
func (t *threadState) runState() (current, latest string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentRunID, t.latestRunID
}

// restoreRunState seeds currentRunID/latestRunID from recovered metadata,
// for RecoverAsync.
func (t *threadState) restoreRunState(current, latest string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentRunID = current
	t.latestRunID = latest
}
