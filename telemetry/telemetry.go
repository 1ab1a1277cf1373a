// Package telemetry defines narrow logging, metrics, and tracing interfaces
// used throughout convorun. Concrete implementations delegate to
// goa.design/clue/log and go.opentelemetry.io/otel; tests and simple
// embedders use the no-op implementations.
package telemetry

import (
	"context"
	"time"
)

type (
	// Logger emits structured log messages keyed by alternating key/value
	// pairs, mirroring the calling convention of goa.design/clue/log.
	Logger interface {
		Debug(ctx context.Context, msg string, keyvals ...any)
		Info(ctx context.Context, msg string, keyvals ...any)
		Warn(ctx context.Context, msg string, keyvals ...any)
		Error(ctx context.Context, msg string, keyvals ...any)
	}

	// Metrics records counters and histograms for runtime observability.
	Metrics interface {
		// IncCounter increments a named counter by delta, tagged with the
		// given key/value attributes.
		IncCounter(ctx context.Context, name string, delta int64, keyvals ...any)
		// ObserveDuration records a duration against a named histogram.
		ObserveDuration(ctx context.Context, name string, d time.Duration, keyvals ...any)
	}

	// Tracer creates spans for tracing run and middleware execution.
	Tracer interface {
		StartSpan(ctx context.Context, name string) (context.Context, Span)
	}

	// Span is an active trace span.
	Span interface {
		SetAttribute(key string, value any)
		RecordError(err error)
		End()
	}
)
