package usage

import (
	"context"
	"io"

	"goa.design/convorun/message"
	"goa.design/convorun/middleware"
	"goa.design/convorun/provider"
	"goa.design/convorun/telemetry"
)

// EnrichmentMiddleware returns a middleware.Middleware ensuring every run
// with a completion id terminates in exactly one authoritative UsageMessage.
// It injects {"usage": {"include": true}} into the call's ExtraProperties
// (merged with anything a caller already set), forwards every non-usage
// message immediately, buffers only the latest UsageMessage seen, and
// resolves it against inline usage or the cost endpoint once the
// underlying call ends. Enrichment failures are logged and otherwise
// ignored: a pricing lookup outage must never fail a generation that
// otherwise succeeded.
func EnrichmentMiddleware(cfg Config, logger telemetry.Logger) middleware.Middleware {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return func(next provider.ProviderAgent) provider.ProviderAgent {
		return &enrichingAgent{next: next, cfg: cfg, logger: logger}
	}
}

type enrichingAgent struct {
	next   provider.ProviderAgent
	cfg    Config
	logger telemetry.Logger
}

func withInlineUsageRequested(opts provider.GenerateReplyOptions) provider.GenerateReplyOptions {
	existing, _ := opts.ExtraProperties["usage"].(map[string]any)
	merged := make(map[string]any, len(existing)+1)
	for k, v := range existing {
		merged[k] = v
	}
	merged["include"] = true
	return opts.WithExtraProperty("usage", merged)
}

func (a *enrichingAgent) GenerateReply(ctx context.Context, history []message.Message, opts provider.GenerateReplyOptions) (provider.Reply, error) {
	reply, err := a.next.GenerateReply(ctx, history, withInlineUsageRequested(opts))
	if err != nil {
		return reply, err
	}
	buffered := lastUsageMessage(reply.Messages)
	resolved := a.resolve(ctx, false, buffered)
	if resolved == nil {
		return reply, nil
	}
	reply.Usage = resolved.Usage
	reply.Messages = replaceLastUsageMessage(reply.Messages, resolved)
	return reply, nil
}

func (a *enrichingAgent) StreamReply(ctx context.Context, history []message.Message, opts provider.GenerateReplyOptions) (provider.Streamer, error) {
	stream, err := a.next.StreamReply(ctx, history, withInlineUsageRequested(opts))
	if err != nil {
		return nil, err
	}
	return &enrichingStream{inner: stream, agent: a, ctx: ctx}, nil
}

// resolve implements §4.5's resolution order: inline usage wins outright;
// a cache hit comes next; a buffered usage that already carries tokens and
// cost passes through; otherwise a buffered usage missing cost is enhanced
// via the cost endpoint and merged, and a buffered usage with no token
// counts has its usage replaced by the endpoint result. With no Endpoint
// configured, a buffered usage with tokens is returned unchanged. Returns
// nil when there is nothing to emit: no buffered usage, no completion id,
// a failed endpoint lookup, or no Endpoint and no buffered tokens.
func (a *enrichingAgent) resolve(ctx context.Context, streaming bool, buffered *message.UsageMessage) *message.UsageMessage {
	if buffered == nil {
		return nil
	}
	completionID, ok := CompletionID(buffered)
	if !ok {
		return nil
	}

	if inline, ok := InlineUsage(buffered); ok {
		out := *buffered
		out.Usage = inline
		out.Usage.Extra = out.Usage.Extra.Merge(message.MetadataFromPairs("source", "inline", "cached", false))
		return &out
	}

	if a.cfg.Cache != nil {
		if cached, ok, err := a.cfg.Cache.TryGet(ctx, completionID); err == nil && ok {
			out := *buffered
			out.Usage = cached
			out.Usage.Extra = out.Usage.Extra.Merge(message.MetadataFromPairs("cached", true))
			return &out
		}
	}

	needsEnhancement := buffered.Usage.TotalTokens > 0 && buffered.Usage.TotalCostUSD == nil
	hasComplete := buffered.Usage.TotalTokens > 0 && buffered.Usage.TotalCostUSD != nil

	if hasComplete {
		out := *buffered
		out.Usage.Extra = out.Usage.Extra.Merge(message.MetadataFromPairs("source", "passthrough", "cached", false))
		return &out
	}

	if a.cfg.Endpoint == nil {
		if buffered.Usage.TotalTokens > 0 {
			return buffered
		}
		return nil
	}

	endpointUsage, err := a.cfg.Endpoint.Lookup(ctx, completionID, streaming)
	if err != nil {
		return nil
	}
	if a.cfg.Cache != nil {
		_ = a.cfg.Cache.Set(ctx, completionID, endpointUsage, a.cfg.ttl())
	}

	if needsEnhancement {
		out := *buffered
		out.Usage = a.mergeEndpointOverlay(ctx, completionID, buffered.Usage, endpointUsage)
		return &out
	}

	out := *buffered
	out.Usage = endpointUsage
	out.Usage.Extra = out.Usage.Extra.Merge(message.MetadataFromPairs("source", "endpoint", "cached", false))
	return &out
}

// mergeEndpointOverlay implements the §4.5(c) merge: the endpoint's token
// counts win on disagreement (logged once per mismatched field), the total
// is recomputed from the winning prompt/completion halves, and the extra
// properties record that this generation's usage was enhanced.
func (a *enrichingAgent) mergeEndpointOverlay(ctx context.Context, completionID string, buffered, endpoint message.Usage) message.Usage {
	out := buffered
	discrepancy := false

	if endpoint.InputTokens != 0 && buffered.InputTokens != 0 && endpoint.InputTokens != buffered.InputTokens {
		a.logger.Warn(ctx, "usage token mismatch between provider and cost endpoint", "completion_id", completionID, "field", "prompt_tokens", "provider_value", buffered.InputTokens, "endpoint_value", endpoint.InputTokens)
		discrepancy = true
	}
	if endpoint.OutputTokens != 0 && buffered.OutputTokens != 0 && endpoint.OutputTokens != buffered.OutputTokens {
		a.logger.Warn(ctx, "usage token mismatch between provider and cost endpoint", "completion_id", completionID, "field", "completion_tokens", "provider_value", buffered.OutputTokens, "endpoint_value", endpoint.OutputTokens)
		discrepancy = true
	}

	if endpoint.InputTokens != 0 {
		out.InputTokens = endpoint.InputTokens
	}
	if endpoint.OutputTokens != 0 {
		out.OutputTokens = endpoint.OutputTokens
	}
	if out.InputTokens != 0 && out.OutputTokens != 0 {
		out = out.Recompute()
	}
	if endpoint.TotalCostUSD != nil {
		out.TotalCostUSD = endpoint.TotalCostUSD
	}
	if endpoint.Model != "" {
		out.Model = endpoint.Model
	}

	pairs := []any{"enhanced_by", "openrouter_middleware", "cached", false}
	if discrepancy {
		pairs = append(pairs, "token_discrepancies_resolved", true, "resolution_strategy", "used_openrouter_values")
	}
	out.Extra = out.Extra.Merge(message.MetadataFromPairs(pairs...))
	return out
}

func lastUsageMessage(msgs []message.Message) *message.UsageMessage {
	for i := len(msgs) - 1; i >= 0; i-- {
		if um, ok := msgs[i].(*message.UsageMessage); ok {
			return um
		}
	}
	return nil
}

func replaceLastUsageMessage(msgs []message.Message, resolved *message.UsageMessage) []message.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if _, ok := msgs[i].(*message.UsageMessage); ok {
			out := make([]message.Message, len(msgs))
			copy(out, msgs)
			out[i] = resolved
			return out
		}
	}
	return msgs
}

// enrichingStream buffers only the latest UsageMessage delta, forwarding
// everything else immediately, and resolves the buffered message against
// Config once the inner stream ends, handing the resolved UsageMessage to
// the caller as the final item.
type enrichingStream struct {
	inner provider.Streamer
	agent *enrichingAgent
	ctx   context.Context

	buffered *message.UsageMessage
	resolved *message.UsageMessage
	done     bool
}

func (s *enrichingStream) Recv() (message.Message, error) {
	if s.done {
		if s.resolved != nil {
			out := s.resolved
			s.resolved = nil
			return out, nil
		}
		return nil, io.EOF
	}

	for {
		m, err := s.inner.Recv()
		if err == io.EOF {
			s.done = true
			s.resolved = s.agent.resolve(s.ctx, true, s.buffered)
			if s.resolved != nil {
				out := s.resolved
				s.resolved = nil
				return out, nil
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		if um, ok := m.(*message.UsageMessage); ok {
			s.buffered = um
			continue
		}
		return m, nil
	}
}

func (s *enrichingStream) Close() error { return s.inner.Close() }
