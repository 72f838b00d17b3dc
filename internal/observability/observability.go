// Package observability wires OpenTelemetry tracing and metrics for the
// tool-handler layer. Instruments are registered against the global
// delegating provider at package init time, so they are safe to use from any
// package before Setup runs — they simply forward to a no-op provider until
// then.
package observability

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/workgraph/core/internal/rpc"

// Tracer is the tool-handler tracer. It is a package-level var rather than
// threaded through every call so Dispatch can wrap every tool invocation
// without a dedicated field on Handlers.
var Tracer = otel.Tracer(instrumentationName)

// Metrics holds the instrument set every tool invocation records into.
var Metrics struct {
	Calls          metric.Int64Counter
	Failures       metric.Int64Counter
	CascadeEvents  metric.Int64Counter
	UnblockEvents  metric.Int64Counter
	CallDurationMs metric.Float64Histogram
}

func init() {
	m := otel.Meter(instrumentationName)
	Metrics.Calls, _ = m.Int64Counter("workgraph.rpc.calls",
		metric.WithDescription("Tool invocations dispatched"),
		metric.WithUnit("{call}"),
	)
	Metrics.Failures, _ = m.Int64Counter("workgraph.rpc.failures",
		metric.WithDescription("Tool invocations that returned a non-success envelope, by code"),
		metric.WithUnit("{call}"),
	)
	Metrics.CascadeEvents, _ = m.Int64Counter("workgraph.workflow.cascade_events",
		metric.WithDescription("Automatic parent-role cascades applied"),
		metric.WithUnit("{event}"),
	)
	Metrics.UnblockEvents, _ = m.Int64Counter("workgraph.workflow.unblock_events",
		metric.WithDescription("Items reported newly unblocked after an advance"),
		metric.WithUnit("{event}"),
	)
	Metrics.CallDurationMs, _ = m.Float64Histogram("workgraph.rpc.call_duration_ms",
		metric.WithDescription("Tool invocation latency"),
		metric.WithUnit("ms"),
	)
}

// Shutdown flushes and stops the providers installed by Setup.
type Shutdown func(ctx context.Context) error

// Setup installs stdout-exporting tracer and meter providers as the global
// OTel providers. Passing w as io.Discard keeps the instrumentation active
// (so Dispatch's spans and counters still run) without printing anything —
// useful for tests.
func Setup(w io.Writer) (Shutdown, error) {
	traceExp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithoutTimestamps())
	if err != nil {
		return nil, fmt.Errorf("building trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExp))
	otel.SetTracerProvider(tp)

	metricExp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("building metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(
		sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(30*time.Second)),
	))
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return err
		}
		return mp.Shutdown(ctx)
	}, nil
}

// EndSpan records err on span (if non-nil) and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
