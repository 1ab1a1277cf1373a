package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"goa.design/clue/log"
)

type (
	// ClueLogger delegates to goa.design/clue/log. The logger reads
	// formatting and debug settings from the context, set via
	// log.Context/log.WithFormat/log.WithDebug during process setup.
	ClueLogger struct{}

	// OtelMetrics records counters and histograms through the global OTEL
	// MeterProvider. Configure the provider once at process start (e.g. via
	// clue.ConfigureOpenTelemetry) before constructing this type.
	OtelMetrics struct {
		meter      metric.Meter
		counters   map[string]metric.Int64Counter
		histograms map[string]metric.Float64Histogram
	}

	// OtelTracer creates spans through the global OTEL TracerProvider.
	OtelTracer struct {
		tracer trace.Tracer
	}

	otelSpan struct {
		span trace.Span
	}
)

// NewClueLogger constructs a Logger backed by goa.design/clue/log.
func NewClueLogger() Logger { return ClueLogger{} }

// NewOtelMetrics constructs a Metrics recorder scoped to the given
// instrumentation name (typically the module path).
func NewOtelMetrics(instrumentationName string) *OtelMetrics {
	return &OtelMetrics{
		meter:      otel.Meter(instrumentationName),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// NewOtelTracer constructs a Tracer scoped to the given instrumentation name.
func NewOtelTracer(instrumentationName string) Tracer {
	return &OtelTracer{tracer: otel.Tracer(instrumentationName)}
}

// Debug emits a debug-level message with structured key-values.
func (ClueLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	log.Debug(ctx, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvToClue(keyvals)...)...)
}

// Info emits an info-level message with structured key-values.
func (ClueLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	log.Info(ctx, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvToClue(keyvals)...)...)
}

// Warn emits a warning-level message with structured key-values.
func (ClueLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	fielders := append([]log.Fielder{log.KV{K: "msg", V: msg}, log.KV{K: "severity", V: "warning"}}, kvToClue(keyvals)...)
	log.Warn(ctx, fielders...)
}

// Error emits an error-level message with structured key-values.
func (ClueLogger) Error(ctx context.Context, msg string, keyvals ...any) {
	log.Error(ctx, nil, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvToClue(keyvals)...)...)
}

func kvToClue(keyvals []any) []log.Fielder {
	fielders := make([]log.Fielder, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, _ := keyvals[i].(string)
		if key == "" {
			continue
		}
		fielders = append(fielders, log.KV{K: key, V: keyvals[i+1]})
	}
	return fielders
}

// IncCounter increments (creating lazily) a named counter.
func (m *OtelMetrics) IncCounter(ctx context.Context, name string, delta int64, keyvals ...any) {
	c, ok := m.counters[name]
	if !ok {
		var err error
		c, err = m.meter.Int64Counter(name)
		if err != nil {
			return
		}
		m.counters[name] = c
	}
	c.Add(ctx, delta, metric.WithAttributes(kvToOtel(keyvals)...))
}

// ObserveDuration records a duration against a named histogram.
func (m *OtelMetrics) ObserveDuration(ctx context.Context, name string, d time.Duration, keyvals ...any) {
	h, ok := m.histograms[name]
	if !ok {
		var err error
		h, err = m.meter.Float64Histogram(name, metric.WithUnit("ms"))
		if err != nil {
			return
		}
		m.histograms[name] = h
	}
	h.Record(ctx, float64(d.Milliseconds()), metric.WithAttributes(kvToOtel(keyvals)...))
}

// StartSpan starts a new span under the tracer.
func (t *OtelTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

func (s *otelSpan) SetAttribute(key string, value any) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(otelStringAttr(key, v))
	default:
		s.span.SetAttributes(otelStringAttr(key, toString(v)))
	}
}

func (s *otelSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *otelSpan) End() { s.span.End() }
