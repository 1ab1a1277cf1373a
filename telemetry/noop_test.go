package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	l := NewNoopLogger()
	ctx := context.Background()
	require.NotPanics(t, func() {
		l.Debug(ctx, "debug", "k", "v")
		l.Info(ctx, "info")
		l.Warn(ctx, "warn", "retryable", true)
		l.Error(ctx, "error", "err", errors.New("boom"))
	})
}

func TestNoopMetricsDoesNotPanic(t *testing.T) {
	m := NewNoopMetrics()
	ctx := context.Background()
	require.NotPanics(t, func() {
		m.IncCounter(ctx, "scheduler.run.completed", 1, "thread_id", "t1")
		m.ObserveDuration(ctx, "scheduler.run.duration", 5*time.Millisecond)
	})
}

func TestNoopTracerReturnsUsableSpan(t *testing.T) {
	tr := NewNoopTracer()
	ctx, span := tr.StartSpan(context.Background(), "scheduler.execute_run")
	require.NotNil(t, ctx)
	require.NotPanics(t, func() {
		span.SetAttribute("thread_id", "t1")
		span.RecordError(errors.New("boom"))
		span.End()
	})
}
