// Package fake provides a scriptable provider.ProviderAgent for tests and
// the demo CLI, standing in for a real vendor adapter.
package fake

import (
	"context"
	"errors"
	"io"
	"sync"

	"goa.design/convorun/message"
	"goa.design/convorun/provider"
)

// Agent replays a fixed script of replies, one per call to GenerateReply or
// StreamReply, in order. It never inspects history or options; tests that
// need to assert on them should read Calls after the run.
type Agent struct {
	mu      sync.Mutex
	script  []provider.Reply
	next    int
	Calls   []CallRecord
	streams []StreamScript
}

// CallRecord captures one invocation for test assertions.
type CallRecord struct {
	History []message.Message
	Options provider.GenerateReplyOptions
}

// StreamScript is a sequence of deltas returned by one StreamReply call.
type StreamScript struct {
	Deltas []message.Message
	Usage  message.Usage
}

// New returns an Agent that replies with script, in order, once per call.
func New(script ...provider.Reply) *Agent {
	return &Agent{script: script}
}

// WithStreams attaches streaming scripts consumed in order by StreamReply,
// independent of the non-streaming script.
func (a *Agent) WithStreams(streams ...StreamScript) *Agent {
	a.streams = streams
	return a
}

// GenerateReply implements provider.ProviderAgent.
func (a *Agent) GenerateReply(_ context.Context, history []message.Message, opts provider.GenerateReplyOptions) (provider.Reply, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Calls = append(a.Calls, CallRecord{History: history, Options: opts})
	if a.next >= len(a.script) {
		return provider.Reply{}, errors.New("fake: script exhausted")
	}
	reply := a.script[a.next]
	a.next++
	return reply, nil
}

// StreamReply implements provider.ProviderAgent.
func (a *Agent) StreamReply(_ context.Context, history []message.Message, opts provider.GenerateReplyOptions) (provider.Streamer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Calls = append(a.Calls, CallRecord{History: history, Options: opts})
	if len(a.streams) == 0 {
		return nil, errors.New("fake: no stream scripts configured")
	}
	script := a.streams[0]
	a.streams = a.streams[1:]
	return &stream{deltas: script.Deltas, usage: script.Usage}, nil
}

type stream struct {
	deltas       []message.Message
	usage        message.Usage
	idx          int
	usageEmitted bool
	closed       bool
}

// Recv implements provider.Streamer. After the scripted deltas are
// exhausted, it emits a trailing UsageMessage built from the StreamScript's
// Usage field, if the script set one, before returning io.EOF — mirroring
// how a real streaming adapter appends a final usage frame once the model
// finishes generating.
func (s *stream) Recv() (message.Message, error) {
	if s.idx < len(s.deltas) {
		m := s.deltas[s.idx]
		s.idx++
		return m, nil
	}
	if !s.usageEmitted {
		s.usageEmitted = true
		if s.usage.InputTokens != 0 || s.usage.OutputTokens != 0 || s.usage.TotalTokens != 0 {
			return &message.UsageMessage{Usage: s.usage.Recompute()}, nil
		}
	}
	return nil, io.EOF
}

func (s *stream) Close() error {
	s.closed = true
	return nil
}
