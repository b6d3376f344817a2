package internal

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/squadracorsepolito/satwriter"

// Telemetry groups the logger, the tracer and the meter of a component.
type Telemetry struct {
	kind string
	name string

	l *Logger

	tracer trace.Tracer
	meter  metric.Meter
}

// NewTelemetry returns the [Telemetry] of the given component
// using the global tracer and meter providers.
func NewTelemetry(kind, name string) *Telemetry {
	return NewTelemetryWithLogger(NewLogger(kind, name))
}

// NewTelemetryWithLogger is like [NewTelemetry] but uses the given logger.
func NewTelemetryWithLogger(l *Logger) *Telemetry {
	return &Telemetry{
		kind: l.kind,
		name: l.name,

		l: l,

		tracer: otel.GetTracerProvider().Tracer(instrumentationName),
		meter:  otel.GetMeterProvider().Meter(instrumentationName),
	}
}

func (t *Telemetry) Logger() *Logger {
	return t.l
}

func (t *Telemetry) LogDebug(msg string, args ...any) {
	t.l.Debug(msg, args...)
}

func (t *Telemetry) LogInfo(msg string, args ...any) {
	t.l.Info(msg, args...)
}

func (t *Telemetry) LogWarn(msg string, args ...any) {
	t.l.Warn(msg, args...)
}

func (t *Telemetry) LogError(msg string, err error, args ...any) {
	t.l.Error(msg, err, args...)
}

func (t *Telemetry) setDefaultAttributes(span trace.Span) {
	span.SetAttributes(
		attribute.String("satwriter.kind", t.kind),
		attribute.String("satwriter.name", t.name),
	)
}

// NewTrace starts a new span tagged with the component kind and name.
func (t *Telemetry) NewTrace(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, spanName, opts...)
	t.setDefaultAttributes(span)
	return ctx, span
}

func (t *Telemetry) getMeterName(name string) string {
	return fmt.Sprintf("%s_%s_%s", t.kind, t.name, name)
}

// NewCounter creates an int64 counter prefixed with the component kind and name.
func (t *Telemetry) NewCounter(name string, opts ...metric.Int64CounterOption) metric.Int64Counter {
	counterName := t.getMeterName(name)
	counter, err := t.meter.Int64Counter(counterName, opts...)
	if err != nil {
		t.LogError("failed to create counter", err, "name", name)
	}

	t.LogDebug("created counter", "name", counterName)

	return counter
}

// NewHistogram creates an int64 histogram prefixed with the component kind and name.
func (t *Telemetry) NewHistogram(name string, opts ...metric.Int64HistogramOption) metric.Int64Histogram {
	histName := t.getMeterName(name)
	hist, err := t.meter.Int64Histogram(histName, opts...)
	if err != nil {
		t.LogError("failed to create histogram", err, "name", name)
	}

	t.LogDebug("created histogram", "name", histName)

	return hist
}
