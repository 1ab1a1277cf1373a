package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"goa.design/convorun/controlerr"
	"goa.design/convorun/message"
	"goa.design/convorun/provider"
)

type flakyAgent struct {
	failuresBeforeSuccess int
	calls                 int
}

func (a *flakyAgent) GenerateReply(context.Context, []message.Message, provider.GenerateReplyOptions) (provider.Reply, error) {
	a.calls++
	if a.calls <= a.failuresBeforeSuccess {
		return provider.Reply{}, controlerr.New(controlerr.KindTransientTransport, "temporary blip")
	}
	return provider.Reply{Messages: []message.Message{&message.Text{Content: "ok"}}}, nil
}

func (a *flakyAgent) StreamReply(context.Context, []message.Message, provider.GenerateReplyOptions) (provider.Streamer, error) {
	return nil, errors.New("not implemented")
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	flaky := &flakyAgent{failuresBeforeSuccess: 2}
	agent := Retry(RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})(flaky)
	reply, err := agent.GenerateReply(context.Background(), nil, provider.GenerateReplyOptions{})
	require.NoError(t, err)
	require.Equal(t, 3, flaky.calls)
	text, _ := message.GetText(reply.Messages[0])
	require.Equal(t, "ok", text)
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	flaky := &flakyAgent{failuresBeforeSuccess: 10}
	agent := Retry(RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})(flaky)
	_, err := agent.GenerateReply(context.Background(), nil, provider.GenerateReplyOptions{})
	require.Error(t, err)
	require.Equal(t, 2, flaky.calls)
}

func TestRetryDoesNotRetryNonTransientErrors(t *testing.T) {
	calls := 0
	wrapped := Retry(RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond})(&countingValidationAgent{calls: &calls})
	_, err := wrapped.GenerateReply(context.Background(), nil, provider.GenerateReplyOptions{})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

type countingValidationAgent struct {
	calls *int
}

func (a *countingValidationAgent) GenerateReply(context.Context, []message.Message, provider.GenerateReplyOptions) (provider.Reply, error) {
	*a.calls++
	return provider.Reply{}, controlerr.New(controlerr.KindValidation, "bad request")
}

func (a *countingValidationAgent) StreamReply(context.Context, []message.Message, provider.GenerateReplyOptions) (provider.Streamer, error) {
	return nil, errors.New("not implemented")
}
