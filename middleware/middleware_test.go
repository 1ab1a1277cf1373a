package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"goa.design/convorun/message"
	"goa.design/convorun/provider"
)

type recordingAgent struct {
	name    string
	order   *[]string
	reply   provider.Reply
	err     error
}

func (a *recordingAgent) GenerateReply(context.Context, []message.Message, provider.GenerateReplyOptions) (provider.Reply, error) {
	*a.order = append(*a.order, a.name)
	return a.reply, a.err
}

func (a *recordingAgent) StreamReply(context.Context, []message.Message, provider.GenerateReplyOptions) (provider.Streamer, error) {
	*a.order = append(*a.order, a.name)
	return nil, a.err
}

func wrapName(name string, order *[]string) Middleware {
	return func(next provider.ProviderAgent) provider.ProviderAgent {
		return &recordingAgent{name: name, order: order, reply: provider.Reply{}}
	}
}

func TestChainAppliesOutermostFirst(t *testing.T) {
	var calls []string
	outer := func(next provider.ProviderAgent) provider.ProviderAgent {
		calls = append(calls, "outer-wrap")
		return next
	}
	inner := func(next provider.ProviderAgent) provider.ProviderAgent {
		calls = append(calls, "inner-wrap")
		return next
	}
	base := &recordingAgent{name: "base", order: &calls}
	_ = Chain(outer, inner)(base)
	require.Equal(t, []string{"inner-wrap", "outer-wrap"}, calls, "inner middleware constructs first so outer wraps it")
}
