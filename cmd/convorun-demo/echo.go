package main

import (
	"context"
	"fmt"
	"io"

	"goa.design/convorun/message"
	"goa.design/convorun/provider"
)

// echoAgent is a trivial provider.ProviderAgent standing in for a real
// vendor adapter in the interactive demo: it has no script to exhaust, so
// it can answer an unbounded number of turns, unlike provider/fake.Agent.
type echoAgent struct{}

func (echoAgent) GenerateReply(_ context.Context, history []message.Message, opts provider.GenerateReplyOptions) (provider.Reply, error) {
	last := lastUserText(history)
	reply := &message.Text{
		Common:  message.Common{Role: message.RoleAssistant},
		Content: fmt.Sprintf("you said: %s", last),
	}
	meta := message.NewMetadata()
	meta.Set("completion_id", fmt.Sprintf("echo-%s-%d", opts.RunID, len(history)))
	usage := &message.UsageMessage{
		Common: message.Common{Metadata: meta},
		Usage:  message.Usage{Model: "demo-echo", Provider: "convorun-demo", InputTokens: int64(len(last)), OutputTokens: int64(len(reply.Content))}.Recompute(),
	}
	return provider.Reply{Messages: []message.Message{reply, usage}, Usage: usage.Usage}, nil
}

func (a echoAgent) StreamReply(ctx context.Context, history []message.Message, opts provider.GenerateReplyOptions) (provider.Streamer, error) {
	reply, err := a.GenerateReply(ctx, history, opts)
	if err != nil {
		return nil, err
	}
	return &bufferedStream{pending: reply.Messages}, nil
}

// lastUserText walks history backward for the most recent user-authored
// text message.
func lastUserText(history []message.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.Base().Role != message.RoleUser {
			continue
		}
		if text, ok := message.GetText(m); ok {
			return text
		}
	}
	return ""
}

// bufferedStream adapts a pre-built slice of messages to provider.Streamer,
// for providers (like echoAgent) that compute the whole reply up front but
// still need to support the streaming call path.
type bufferedStream struct {
	pending []message.Message
	idx     int
}

func (s *bufferedStream) Recv() (message.Message, error) {
	if s.idx >= len(s.pending) {
		return nil, io.EOF
	}
	m := s.pending[s.idx]
	s.idx++
	return m, nil
}

func (s *bufferedStream) Close() error { return nil }
