// Package middleware provides reusable provider.ProviderAgent wrappers
// composed around the provider boundary, the same shape the teacher
// framework uses to wrap its model.Client: a Middleware is a function from
// one ProviderAgent to another, and a Chain applies several in order.
package middleware

import "goa.design/convorun/provider"

// Middleware wraps a provider.ProviderAgent with additional behavior
// (rate limiting, usage enrichment, retries) without the wrapped agent or
// its callers needing to know it is present.
type Middleware func(provider.ProviderAgent) provider.ProviderAgent

// Chain composes middlewares into a single Middleware. Middlewares are
// applied in the order given, so Chain(a, b)(agent) calls a(b(agent)):
// a becomes the outermost layer, observing a call before b does, matching
// the net/http convention of listing handlers outside-in.
func Chain(mws ...Middleware) Middleware {
	return func(next provider.ProviderAgent) provider.ProviderAgent {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
