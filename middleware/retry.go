package middleware

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"goa.design/convorun/controlerr"
	"goa.design/convorun/message"
	"goa.design/convorun/provider"
	"goa.design/convorun/telemetry"
)

// RetryConfig configures Retry.
type RetryConfig struct {
	MaxAttempts int
	// BaseDelay is the delay before the first retry; each subsequent
	// retry doubles it, capped at MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Logger    telemetry.Logger
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 200 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = telemetry.NewNoopLogger()
	}
	return c
}

// Retry returns a Middleware that retries GenerateReply calls classified
// as controlerr.KindTransientTransport, pacing retries with a capped
// exponential backoff. StreamReply is not retried: a stream that fails
// partway through has already delivered some deltas to the caller, and
// replaying it would duplicate history.
func Retry(cfg RetryConfig) Middleware {
	cfg = cfg.withDefaults()
	return func(next provider.ProviderAgent) provider.ProviderAgent {
		return &retryingAgent{next: next, cfg: cfg}
	}
}

type retryingAgent struct {
	next provider.ProviderAgent
	cfg  RetryConfig
}

func (a *retryingAgent) GenerateReply(ctx context.Context, history []message.Message, opts provider.GenerateReplyOptions) (provider.Reply, error) {
	delay := a.cfg.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		reply, err := a.next.GenerateReply(ctx, history, opts)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		kind, classified := controlerr.KindOf(err)
		if !classified || kind != controlerr.KindTransientTransport || attempt == a.cfg.MaxAttempts {
			return provider.Reply{}, err
		}
		a.cfg.Logger.Warn(ctx, "retrying transient provider error", "attempt", attempt, "delay_ms", delay.Milliseconds(), "error", err.Error())
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return provider.Reply{}, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if delay > a.cfg.MaxDelay {
			delay = a.cfg.MaxDelay
		}
	}
	return provider.Reply{}, lastErr
}

func (a *retryingAgent) StreamReply(ctx context.Context, history []message.Message, opts provider.GenerateReplyOptions) (provider.Streamer, error) {
	return a.next.StreamReply(ctx, history, opts)
}

// pacedLimiter wraps an x/time/rate.Limiter to space out a burst of retry
// attempts across a shared resource (for example, a cost-lookup endpoint
// called by several concurrent generations), independent of the adaptive
// token budget in AdaptiveRateLimiter.
type pacedLimiter struct {
	limiter *rate.Limiter
}

// newPacedLimiter returns a limiter allowing ratePerSecond calls per
// second with the given burst.
func newPacedLimiter(ratePerSecond float64, burst int) *pacedLimiter {
	return &pacedLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

func (p *pacedLimiter) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
