package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"goa.design/convorun/message"
	"goa.design/convorun/telemetry"
)

const (
	endpointMaxAttempts   = 7
	endpointRetrySpacing  = 500 * time.Millisecond
	endpointStreamTimeout = 3 * time.Second
	endpointUnaryTimeout  = 5 * time.Second
)

// EndpointClient looks up a completion's token counts and cost from a
// cost-lookup HTTP endpoint, retrying transport failures, non-success
// statuses, and unparseable bodies up to 7 times spaced 500ms apart before
// giving up.
type EndpointClient struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Logger     telemetry.Logger
	Metrics    telemetry.Metrics

	// limiter paces outbound calls so a burst of concurrent generations
	// hitting the endpoint at once does not look like a retry storm to it.
	limiter *rate.Limiter
}

// NewEndpointClient constructs an EndpointClient against baseURL, paced to
// at most ratePerSecond requests per second (burst of the same size).
func NewEndpointClient(baseURL, apiKey string, ratePerSecond float64) *EndpointClient {
	if ratePerSecond <= 0 {
		ratePerSecond = 5
	}
	return &EndpointClient{
		HTTPClient: &http.Client{},
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Logger:     telemetry.NewNoopLogger(),
		Metrics:    telemetry.NewNoopMetrics(),
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), int(ratePerSecond)),
	}
}

// Lookup implements Lookup, retrying up to 7 attempts spaced 500ms apart.
// The per-attempt timeout is 3s when streaming is true, 5s otherwise. On
// exhaustion it logs a warning, increments the usage_middleware_failure
// counter, and returns the last error.
func (c *EndpointClient) Lookup(ctx context.Context, completionID string, streaming bool) (message.Usage, error) {
	timeout := endpointUnaryTimeout
	if streaming {
		timeout = endpointStreamTimeout
	}

	var lastErr error
	for attempt := 1; attempt <= endpointMaxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return message.Usage{}, err
			}
		}
		u, err := c.attempt(ctx, completionID, timeout)
		if err == nil {
			return u, nil
		}
		lastErr = err
		if attempt == endpointMaxAttempts {
			break
		}
		c.Logger.Warn(ctx, "cost endpoint lookup failed, retrying", "completion_id", completionID, "attempt", attempt, "error", err.Error())
		timer := time.NewTimer(endpointRetrySpacing)
		select {
		case <-ctx.Done():
			timer.Stop()
			return message.Usage{}, ctx.Err()
		case <-timer.C:
		}
	}

	c.Metrics.IncCounter(ctx, "usage_middleware_failure", 1, "completion_id", completionID)
	c.Logger.Warn(ctx, "cost endpoint lookup exhausted retries", "completion_id", completionID, "attempts", endpointMaxAttempts, "error", lastErr.Error())
	return message.Usage{}, lastErr
}

func (c *EndpointClient) attempt(ctx context.Context, completionID string, timeout time.Duration) (message.Usage, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqURL := c.BaseURL + "/generation?id=" + url.QueryEscape(completionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return message.Usage{}, fmt.Errorf("usage: build cost endpoint request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return message.Usage{}, fmt.Errorf("usage: cost endpoint request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return message.Usage{}, fmt.Errorf("usage: cost endpoint returned status %d", resp.StatusCode)
	}

	var body endpointBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return message.Usage{}, fmt.Errorf("usage: decode cost endpoint response: %w", err)
	}
	return body.toUsage(), nil
}

type endpointBody struct {
	Data struct {
		TokensPrompt     int64   `json:"tokens_prompt"`
		TokensCompletion int64   `json:"tokens_completion"`
		TotalCost        float64 `json:"total_cost"`
		Model            string  `json:"model"`
		GenerationTime   float64 `json:"generation_time"`
		Streamed         bool    `json:"streamed"`
		CreatedAt        string  `json:"created_at"`
	} `json:"data"`
}

func (b endpointBody) toUsage() message.Usage {
	cost := b.Data.TotalCost
	u := message.Usage{
		Model:        b.Data.Model,
		InputTokens:  b.Data.TokensPrompt,
		OutputTokens: b.Data.TokensCompletion,
		TotalCostUSD: &cost,
		Extra: message.MetadataFromPairs(
			"model", b.Data.Model,
			"generation_time", b.Data.GenerationTime,
			"streamed", b.Data.Streamed,
			"created_at", b.Data.CreatedAt,
			"is_cached", false,
		),
	}
	return u.Recompute()
}
