// Package scheduler implements the duplex run loop that accepts new user
// turns, batches them into runs serialized at-most-one-in-flight per
// thread, drives the provider through an agentic tool-dispatch turn loop,
// and fans out every resulting message to all live subscribers of that
// thread. Input arrives through a single bounded multi-producer queue;
// output is distributed to per-subscriber single-producer channels so one
// slow reader cannot stall delivery to the others.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"goa.design/convorun/controlerr"
	"goa.design/convorun/message"
	"goa.design/convorun/provider"
	"goa.design/convorun/store"
	"goa.design/convorun/telemetry"
)

// Config configures a Scheduler.
type Config struct {
	Store   store.ConversationStore
	Agent   provider.ProviderAgent
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Tracer  telemetry.Tracer

	// InputQueueCapacity bounds the number of queued inputs awaiting
	// dispatch, across all threads. Send returns an unaccepted
	// SendReceipt once the queue is full rather than blocking the
	// caller indefinitely.
	InputQueueCapacity int
	// SubscriberBufferSize bounds each subscriber's fanout channel.
	// A subscriber that falls this far behind is disconnected rather
	// than allowed to apply backpressure to the whole thread.
	SubscriberBufferSize int

	// MaxTurnsPerRun bounds the number of provider round-trips a single
	// run's tool-dispatch loop will perform before giving up and
	// completing the run with whatever history has accumulated.
	MaxTurnsPerRun int
	// SystemPrompt, when set, is prepended to every provider call as a
	// single Text{Role=System} message ahead of history, never itself
	// added to persisted history.
	SystemPrompt string
	// Tools lists the tool definitions offered to the provider on every
	// turn of a run.
	Tools []provider.ToolDefinition
	// Functions dispatches ExecutionLocalFunction tool calls the
	// provider returns. A run whose turn produces local tool calls with
	// no Functions configured reports each as an error result rather
	// than panicking.
	Functions FunctionRegistry
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = telemetry.NewNoopLogger()
	}
	if c.Metrics == nil {
		c.Metrics = telemetry.NewNoopMetrics()
	}
	if c.Tracer == nil {
		c.Tracer = telemetry.NewNoopTracer()
	}
	if c.InputQueueCapacity <= 0 {
		c.InputQueueCapacity = 256
	}
	if c.SubscriberBufferSize <= 0 {
		c.SubscriberBufferSize = 64
	}
	if c.MaxTurnsPerRun <= 0 {
		c.MaxTurnsPerRun = 1
	}
	return c
}

// Scheduler is the runtime that owns a set of conversation threads, each
// with its own serialized run loop and fanout subscriber set.
type Scheduler struct {
	cfg Config

	inputs chan message.QueuedInput

	mu      sync.Mutex
	threads map[string]*threadState

	dispatchWG   sync.WaitGroup
	stopDispatch chan struct{}
	stopped      bool
}

// New constructs a Scheduler. Call RunAsync to start its dispatch loop.
func New(cfg Config) *Scheduler {
	cfg = cfg.withDefaults()
	return &Scheduler{
		cfg:          cfg,
		inputs:       make(chan message.QueuedInput, cfg.InputQueueCapacity),
		threads:      make(map[string]*threadState),
		stopDispatch: make(chan struct{}),
	}
}

// Send assigns input a fresh receipt_id, records queued_at, and enqueues it
// for dispatch. It never blocks waiting for a run to start or finish:
// Accepted is false, with no error, when the queue is full. A run_id is
// assigned only later, when a batch of queued inputs (possibly including
// this one alongside others) is drained together; see RunAssignment.
func (s *Scheduler) Send(ctx context.Context, input message.UserInput) (message.SendReceipt, error) {
	if input.ThreadID == "" {
		return message.SendReceipt{}, controlerr.New(controlerr.KindValidation, "scheduler: user input requires a thread id")
	}
	receiptID := uuid.NewString()
	now := time.Now()
	qi := message.QueuedInput{Input: input, ReceiptID: receiptID, QueuedAt: now}

	select {
	case s.inputs <- qi:
		s.cfg.Metrics.IncCounter(ctx, "scheduler.send.accepted", 1, "thread_id", input.ThreadID)
		return message.SendReceipt{ReceiptID: receiptID, InputID: input.InputID, ThreadID: input.ThreadID, QueuedAt: now, Accepted: true}, nil
	default:
		s.cfg.Metrics.IncCounter(ctx, "scheduler.send.rejected", 1, "thread_id", input.ThreadID)
		return message.SendReceipt{ReceiptID: receiptID, InputID: input.InputID, ThreadID: input.ThreadID, QueuedAt: now, Accepted: false}, nil
	}
}

// Subscribe registers a new fanout subscriber for threadID and returns a
// channel of every message published to it from this point forward, along
// with an unsubscribe function the caller must call when done. A
// subscriber never observes messages published before it subscribed;
// callers that need history should load it from the store first.
func (s *Scheduler) Subscribe(threadID string) (<-chan message.Envelope, func(), error) {
	if threadID == "" {
		return nil, nil, controlerr.New(controlerr.KindValidation, "scheduler: subscribe requires a thread id")
	}
	t := s.threadFor(threadID)
	return t.subscribe(s.cfg.SubscriberBufferSize)
}

// ExecuteRun is a convenience wrapper around Subscribe/Send: it subscribes
// to input.ThreadID, sends input, correlates the run_id by watching for the
// RunAssignmentMessage whose input_ids contains the returned receipt_id,
// and delivers every message belonging to that run to onMessage until its
// matching RunCompletedMessage, at which point it returns.
func (s *Scheduler) ExecuteRun(ctx context.Context, input message.UserInput, onMessage func(message.Message)) error {
	sub, unsubscribe, err := s.Subscribe(input.ThreadID)
	if err != nil {
		return err
	}
	defer unsubscribe()

	receipt, err := s.Send(ctx, input)
	if err != nil {
		return err
	}
	if !receipt.Accepted {
		return controlerr.New(controlerr.KindTransientTransport, "scheduler: input queue full, retry later")
	}

	var runID string
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-sub:
			if !ok {
				return nil
			}
			m := env.Inner
			if runID == "" {
				am, ok := m.(*message.RunAssignmentMessage)
				if !ok || !containsString(am.InputIDs, receipt.ReceiptID) {
					continue
				}
				runID = am.RunID
			}
			if m.Base().RunID != runID {
				continue
			}
			onMessage(m)
			if _, done := m.(*message.RunCompletedMessage); done {
				return nil
			}
		}
	}
}

func containsString(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

// RecoverAsync loads every thread's persisted metadata and history from the
// store so history continuity, MessageOrderIdx, and latest_run_id all
// survive a process restart. Metadata without history, or history without
// metadata, are both tolerated: the former leaves a fresh thread state in
// place, the latter still rebuilds history even though run-id continuity
// cannot be recovered. It is safe to call once at process start before
// RunAsync.
func (s *Scheduler) RecoverAsync(ctx context.Context, threadIDs []string) error {
	for _, id := range threadIDs {
		t := s.threadFor(id)

		if meta, err := s.cfg.Store.LoadThread(ctx, id); err == nil {
			t.restoreRunState("", meta.LatestRunID)
		} else if err != store.ErrThreadNotFound {
			return fmt.Errorf("scheduler: recover thread %q metadata: %w", id, err)
		}

		rows, err := s.cfg.Store.LoadHistory(ctx, id, 0)
		if err != nil {
			return fmt.Errorf("scheduler: recover thread %q history: %w", id, err)
		}
		msgs, err := store.Decode(rows)
		if err != nil {
			return fmt.Errorf("scheduler: decode history for thread %q: %w", id, err)
		}
		t.mu.Lock()
		t.history = msgs
		if len(msgs) > 0 {
			t.nextOrderIdx = msgs[len(msgs)-1].Base().MessageOrderIdx + 1
		}
		t.mu.Unlock()
	}
	return nil
}

// RunAsync starts the background dispatch loop that drains queued inputs
// and executes runs. It returns immediately; call StopAsync/DisposeAsync to
// shut the loop down.
func (s *Scheduler) RunAsync(ctx context.Context) {
	s.dispatchWG.Add(1)
	go s.dispatchLoop(ctx)
}

// StopAsync signals the dispatch loop to stop accepting new work and
// blocks until any run already in flight completes.
func (s *Scheduler) StopAsync() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()
	close(s.stopDispatch)
	s.dispatchWG.Wait()
}

// DisposeAsync stops the dispatch loop (if not already stopped) and
// disconnects every subscriber across every thread.
func (s *Scheduler) DisposeAsync() {
	s.StopAsync()
	s.mu.Lock()
	threads := make([]*threadState, 0, len(s.threads))
	for _, t := range s.threads {
		threads = append(threads, t)
	}
	s.mu.Unlock()
	for _, t := range threads {
		t.closeAll()
	}
}

func (s *Scheduler) threadFor(threadID string) *threadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[threadID]
	if !ok {
		t = newThreadState(threadID)
		s.threads[threadID] = t
	}
	return t
}
