package telemetry

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func Test_KafkaHeaderCarrier(t *testing.T) {
	assert := assert.New(t)

	carrier := NewKafkaHeaderCarrier([]kafka.Header{{Key: "publisher", Value: []byte("l2producer")}})

	carrier.Set("traceparent", "00-a-b-01")
	carrier.Set("traceparent", "00-c-d-01")

	assert.Equal("l2producer", carrier.Get("publisher"))
	assert.Equal("00-c-d-01", carrier.Get("traceparent"))
	assert.Empty(carrier.Get("missing"))
	assert.Equal([]string{"publisher", "traceparent"}, carrier.Keys())
	assert.Len(carrier.Headers(), 2)
}

func Test_KafkaHeaderCarrier_Trace(t *testing.T) {
	assert := assert.New(t)

	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})

	carrier := NewKafkaHeaderCarrier(nil)
	carrier.InjectTrace(trace.ContextWithSpanContext(context.Background(), spanCtx))

	assert.Equal("00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", carrier.Get("traceparent"))

	extracted := trace.SpanContextFromContext(carrier.ExtractTrace(context.Background()))
	assert.Equal(traceID, extracted.TraceID())
	assert.Equal(spanID, extracted.SpanID())
}
