package scheduler

import (
	"context"
	"io"
	"time"

	"goa.design/convorun/message"
	"goa.design/convorun/provider"
	"goa.design/convorun/store"
)

// AgentIdentity names this scheduler instance in RunAssignmentMessage, so
// multi-instance deployments can tell which process executed a run.
const AgentIdentity = "scheduler"

func (s *Scheduler) dispatchLoop(ctx context.Context) {
	defer s.dispatchWG.Done()
	for {
		select {
		case <-s.stopDispatch:
			return
		case <-ctx.Done():
			return
		case qi := <-s.inputs:
			t := s.threadFor(qi.Input.ThreadID)
			if t.enqueue(qi) {
				s.dispatchWG.Add(1)
				go s.runThreadWorker(ctx, t)
			}
		}
	}
}

// runThreadWorker drains batches of queued inputs for one thread until
// none remain, running each batch to completion as a single run before
// draining the next. Draining a fresh batch rather than one input at a
// time is what lets several inputs queued in quick succession (a burst of
// Send calls, or a Send racing a mid-run injection) share one run.
func (s *Scheduler) runThreadWorker(ctx context.Context, t *threadState) {
	defer s.dispatchWG.Done()
	for {
		batch := t.tryDrainInputs()
		if batch == nil {
			return
		}
		s.executeRun(ctx, t, batch)
	}
}

// executeRun runs one drained batch of queued inputs to completion: it
// assigns and publishes the run, appends the batch's user turns to
// history, then drives the provider through a tool-dispatch loop bounded
// by MaxTurnsPerRun, re-invoking the provider after locally executing any
// ExecutionLocalFunction tool calls it returns, until a turn produces none
// or the turn budget is exhausted. Provider and stream errors end the run
// as failed rather than propagating: there is no caller left on the stack
// to return them to, since Send already returned its receipt.
func (s *Scheduler) executeRun(ctx context.Context, t *threadState, batch []message.QueuedInput) {
	spanCtx, span := s.cfg.Tracer.StartSpan(ctx, "scheduler.execute_run")
	defer span.End()

	parentRunID := ""
	wasInjected := false
	for _, qi := range batch {
		if qi.Input.ParentRunID != "" {
			parentRunID = qi.Input.ParentRunID
			wasInjected = true
			break
		}
	}
	assignment := t.startRun(parentRunID, wasInjected)

	assignMsg := &message.RunAssignmentMessage{
		Common: message.Common{
			ThreadID:     t.threadID,
			RunID:        assignment.RunID,
			GenerationID: assignment.GenerationID,
			ParentRunID:  assignment.ParentRunID,
			Role:         message.RoleNone,
		},
		AssignedTo:  assignment.AssignedTo,
		InputIDs:    inputIDsOf(batch),
		WasInjected: assignment.WasInjected,
	}
	t.publishToAll(assignMsg)
	s.persist(spanCtx, t.threadID, []message.Message{assignMsg})

	turnMsgs := make([]message.Message, 0, len(batch))
	for _, qi := range batch {
		turnMsgs = append(turnMsgs, &message.Text{
			Common: message.Common{
				ThreadID:     t.threadID,
				RunID:        assignment.RunID,
				GenerationID: assignment.GenerationID,
				Role:         message.RoleUser,
				FromAgent:    qi.Input.FromAgent,
				Metadata:     qi.Input.Metadata,
			},
			Content: qi.Input.Text,
		})
	}
	t.addToHistory(turnMsgs)
	s.persist(spanCtx, t.threadID, turnMsgs)

	if err := s.runTurnLoop(spanCtx, t, assignment); err != nil {
		span.RecordError(err)
		s.cfg.Logger.Error(spanCtx, "run failed", "thread_id", t.threadID, "run_id", assignment.RunID, "error", err.Error())
		s.cfg.Metrics.IncCounter(spanCtx, "scheduler.run.failed", 1, "thread_id", t.threadID)
		s.completeRun(spanCtx, t, assignment.RunID, message.RunStatusFailed, err.Error())
		return
	}

	s.cfg.Metrics.IncCounter(spanCtx, "scheduler.run.completed", 1, "thread_id", t.threadID)
	s.completeRun(spanCtx, t, assignment.RunID, message.RunStatusCompleted, "")
}

// runTurnLoop implements the poll-based agentic loop: stream a reply,
// publish every delta as it arrives, and when the turn's stream closes
// with pending ExecutionLocalFunction tool calls, dispatch them through
// Functions and feed their results back in as the next turn's input.
// ExecutionProviderServer calls are never dispatched locally; the provider
// itself is responsible for executing and reporting those.
func (s *Scheduler) runTurnLoop(ctx context.Context, t *threadState, assignment message.RunAssignment) error {
	for turn := 0; turn < s.cfg.MaxTurnsPerRun; turn++ {
		history := s.historyWithSystemPrompt(t)
		opts := provider.GenerateReplyOptions{
			Tools:       s.cfg.Tools,
			Stream:      true,
			RunID:       assignment.RunID,
			ThreadID:    t.threadID,
			ParentRunID: assignment.ParentRunID,
		}
		streamer, err := s.cfg.Agent.StreamReply(ctx, history, opts)
		if err != nil {
			return err
		}

		asm := newTurnAssembler()
		for {
			delta, err := streamer.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				streamer.Close()
				return err
			}
			base := delta.Base()
			base.ThreadID = t.threadID
			base.RunID = assignment.RunID
			if base.GenerationID == "" {
				base.GenerationID = assignment.GenerationID
			}
			t.addToHistory([]message.Message{delta})
			t.publishToAll(delta)
			s.persist(ctx, t.threadID, []message.Message{delta})
			if message.IsUpdate(delta) {
				if ferr := asm.feed(delta); ferr != nil {
					s.cfg.Logger.Warn(ctx, "failed to assemble stream delta", "thread_id", t.threadID, "run_id", assignment.RunID, "error", ferr.Error())
				}
			}
		}
		streamer.Close()

		pending := asm.pendingLocalToolCalls()
		if len(pending) == 0 {
			return nil
		}

		results := make([]message.ToolCallResult, 0, len(pending))
		for _, call := range pending {
			if s.cfg.Functions == nil {
				results = append(results, message.ToolCallResult{
					ToolCallID: call.ToolCallID,
					IsError:    true,
					Content:    []message.ToolResultContent{{Text: "scheduler: no function registry configured for tool " + call.Name}},
				})
				continue
			}
			results = append(results, s.cfg.Functions.Call(ctx, call))
		}
		resultMsg := &message.ToolsCallResult{
			Common: message.Common{
				ThreadID:     t.threadID,
				RunID:        assignment.RunID,
				GenerationID: assignment.GenerationID,
				Role:         message.RoleTool,
			},
			Results: results,
		}
		t.addToHistory([]message.Message{resultMsg})
		t.publishToAll(resultMsg)
		s.persist(ctx, t.threadID, []message.Message{resultMsg})
	}
	return nil
}

// historyWithSystemPrompt returns the thread's working history, preceded
// by a single Text{Role=System} when SystemPrompt is configured. The
// system message is never itself added to persisted history.
func (s *Scheduler) historyWithSystemPrompt(t *threadState) []message.Message {
	history := t.snapshotHistory()
	if s.cfg.SystemPrompt == "" {
		return history
	}
	out := make([]message.Message, 0, len(history)+1)
	out = append(out, &message.Text{Common: message.Common{ThreadID: t.threadID, Role: message.RoleSystem}, Content: s.cfg.SystemPrompt})
	return append(out, history...)
}

// completeRun publishes RunCompletedMessage, updates the thread's
// current/latest run bookkeeping, and synchronously persists the update as
// thread metadata, preserving whatever properties and session mappings the
// store already has on record.
func (s *Scheduler) completeRun(ctx context.Context, t *threadState, runID string, status message.RunStatus, errMsg string) {
	completed := &message.RunCompletedMessage{
		Common:       message.Common{ThreadID: t.threadID, RunID: runID},
		Status:       status,
		ErrorMessage: errMsg,
	}
	t.publishToAll(completed)
	s.persist(ctx, t.threadID, []message.Message{completed})

	t.completeRun(runID)
	s.persistMetadata(ctx, t)
}

func (s *Scheduler) persist(ctx context.Context, threadID string, msgs []message.Message) {
	if s.cfg.Store == nil || len(msgs) == 0 {
		return
	}
	rows, err := store.ToPersisted(threadID, msgs, time.Now())
	if err != nil {
		s.cfg.Logger.Error(ctx, "failed to encode messages for persistence", "thread_id", threadID, "error", err.Error())
		return
	}
	if err := s.cfg.Store.AppendMessages(ctx, threadID, rows); err != nil {
		s.cfg.Logger.Error(ctx, "failed to persist messages", "thread_id", threadID, "error", err.Error())
	}
}

// persistMetadata writes the thread's current/latest run ids to the store,
// preserving every other field the store already has on record. It is a
// load-then-replace rather than a patch because ConversationStore.
// SaveMetadata is a full-replace write.
func (s *Scheduler) persistMetadata(ctx context.Context, t *threadState) {
	if s.cfg.Store == nil {
		return
	}
	meta, err := s.cfg.Store.LoadThread(ctx, t.threadID)
	if err != nil && err != store.ErrThreadNotFound {
		s.cfg.Logger.Error(ctx, "failed to load thread metadata before save", "thread_id", t.threadID, "error", err.Error())
		return
	}
	if err == store.ErrThreadNotFound {
		now := time.Now()
		meta = message.ThreadMetadata{ThreadID: t.threadID, Status: message.ThreadStatusActive, CreatedAt: now, Metadata: message.NewMetadata()}
	}
	current, latest := t.runState()
	meta.CurrentRunID = current
	meta.LatestRunID = latest
	meta.LastActivityAt = time.Now()
	if err := s.cfg.Store.SaveMetadata(ctx, t.threadID, meta); err != nil {
		s.cfg.Logger.Error(ctx, "failed to persist thread metadata", "thread_id", t.threadID, "error", err.Error())
	}
}

func inputIDsOf(batch []message.QueuedInput) []string {
	ids := make([]string, len(batch))
	for i, qi := range batch {
		ids[i] = qi.ReceiptID
	}
	return ids
}
