package telemetry

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

var _ propagation.TextMapCarrier = (*KafkaHeaderCarrier)(nil)

// KafkaHeaderCarrier carries the trace context in the headers of a kafka message.
// Setting a key that is already present replaces its value in place.
type KafkaHeaderCarrier struct {
	headers []kafka.Header
	index   map[string]int
}

// NewKafkaHeaderCarrier returns a carrier holding a copy of headers.
func NewKafkaHeaderCarrier(headers []kafka.Header) *KafkaHeaderCarrier {
	khc := &KafkaHeaderCarrier{
		headers: make([]kafka.Header, 0, len(headers)+1),
		index:   make(map[string]int, len(headers)+1),
	}

	for _, header := range headers {
		khc.Set(header.Key, string(header.Value))
	}

	return khc
}

func (khc *KafkaHeaderCarrier) Get(key string) string {
	if idx, ok := khc.index[key]; ok {
		return string(khc.headers[idx].Value)
	}
	return ""
}

func (khc *KafkaHeaderCarrier) Set(key, value string) {
	if idx, ok := khc.index[key]; ok {
		khc.headers[idx].Value = []byte(value)
		return
	}

	khc.index[key] = len(khc.headers)
	khc.headers = append(khc.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (khc *KafkaHeaderCarrier) Keys() []string {
	keys := make([]string, len(khc.headers))
	for idx, header := range khc.headers {
		keys[idx] = header.Key
	}
	return keys
}

// Headers returns the headers to attach to the message.
func (khc *KafkaHeaderCarrier) Headers() []kafka.Header {
	return khc.headers
}

// InjectTrace writes the span context of ctx using the global propagator.
func (khc *KafkaHeaderCarrier) InjectTrace(ctx context.Context) {
	otel.GetTextMapPropagator().Inject(ctx, khc)
}

// ExtractTrace returns ctx carrying the span context found in the headers.
func (khc *KafkaHeaderCarrier) ExtractTrace(ctx context.Context) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, khc)
}
