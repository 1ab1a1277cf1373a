package message

// Usage reports token accounting and, once enrichment has run, cost for a
// single generation. Zero-valued numeric fields mean "not reported" rather
// than "zero" so that Merge can distinguish an unset field from a true
// zero count.
type Usage struct {
	Model    string
	Provider string

	InputTokens      int64
	OutputTokens     int64
	TotalTokens      int64
	CacheReadTokens  int64
	CacheWriteTokens int64
	ReasoningTokens  int64

	// InputCostUSD, OutputCostUSD, and TotalCostUSD are populated by the
	// usage enrichment middleware after an async per-model cost lookup;
	// they are nil until that lookup completes.
	InputCostUSD  *float64
	OutputCostUSD *float64
	TotalCostUSD  *float64

	// Extra carries enrichment provenance such as source ("inline",
	// "endpoint", or "passthrough"), cached, enhanced_by, token_discrepancies_resolved, and
	// resolution_strategy, set by usage.EnrichmentMiddleware.
	Extra Metadata
}

// Recompute sets TotalTokens to InputTokens+OutputTokens, the field mapping
// the cost endpoint and inline-usage paths both use when a provider reports
// the two halves but not a combined total.
func (u Usage) Recompute() Usage {
	out := u
	out.TotalTokens = out.InputTokens + out.OutputTokens
	return out
}

// Merge returns a new Usage overlaying other onto u: every field other sets
// (non-zero, non-nil, or non-empty) replaces u's value; fields other leaves
// unset pass u's value through unchanged. Because overlay is pure
// replacement rather than accumulation, merge(u, u) == u for any u: every
// field of u merged with itself reproduces the same value it already held.
func (u Usage) Merge(other Usage) Usage {
	out := u
	if other.Model != "" {
		out.Model = other.Model
	}
	if other.Provider != "" {
		out.Provider = other.Provider
	}
	if other.InputTokens != 0 {
		out.InputTokens = other.InputTokens
	}
	if other.OutputTokens != 0 {
		out.OutputTokens = other.OutputTokens
	}
	if other.TotalTokens != 0 {
		out.TotalTokens = other.TotalTokens
	}
	if other.CacheReadTokens != 0 {
		out.CacheReadTokens = other.CacheReadTokens
	}
	if other.CacheWriteTokens != 0 {
		out.CacheWriteTokens = other.CacheWriteTokens
	}
	if other.ReasoningTokens != 0 {
		out.ReasoningTokens = other.ReasoningTokens
	}
	if other.InputCostUSD != nil {
		out.InputCostUSD = other.InputCostUSD
	}
	if other.OutputCostUSD != nil {
		out.OutputCostUSD = other.OutputCostUSD
	}
	if other.TotalCostUSD != nil {
		out.TotalCostUSD = other.TotalCostUSD
	}
	if other.Extra.Len() > 0 {
		out.Extra = out.Extra.Merge(other.Extra)
	}
	return out
}

// ApplyCostOverlay sets the three cost fields from a cost lookup result
// without touching token counts. Applying the same overlay twice leaves
// the Usage unchanged the second time, satisfying merge idempotence for
// cost enrichment.
func (u Usage) ApplyCostOverlay(input, output, total float64) Usage {
	out := u
	out.InputCostUSD = &input
	out.OutputCostUSD = &output
	out.TotalCostUSD = &total
	return out
}

// UsageMessage carries a Usage snapshot as a standalone message, emitted
// once a generation completes. usage.EnrichmentMiddleware buffers the
// provider's UsageMessage and emits a single resolved one in its place
// when the call ends.
type UsageMessage struct {
	Common
	Usage Usage
}

func (UsageMessage) isMessage()       {}
func (UsageMessage) Kind() Kind       { return KindUsageMessage }
func (m *UsageMessage) Base() *Common { return &m.Common }

// GetUsage implements UsageGetter.
func (m UsageMessage) GetUsage() (Usage, bool) { return m.Usage, true }
