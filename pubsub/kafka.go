package pubsub

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/squadracorsepolito/satwriter/internal/telemetry"
)

const defaultKafkaPort = 9092

type KafkaConfig struct {
	// The balancer used to distribute messages across partitions.
	//
	// The default is to use a round-robin distribution.
	Balancer kafka.Balancer

	// Limit on how many attempts will be made to deliver a message.
	//
	// The default is to try at most 10 times.
	MaxAttempts int

	// Limit on how many messages will be buffered before being sent to a
	// partition.
	BatchSize int

	// Time limit on how often incomplete message batches will be flushed.
	BatchTimeout time.Duration

	// Timeout for write operation performed by the Writer.
	WriteTimeout time.Duration

	// Number of acknowledges from partition replicas required before receiving
	// a response to a produce request.
	//
	// Defaults to RequireOne.
	RequiredAcks kafka.RequiredAcks

	// Compression set the compression codec to be used to compress messages.
	Compression kafka.Compression

	// A transport used to send messages to kafka clusters.
	//
	// If nil, DefaultTransport is used.
	Transport kafka.RoundTripper

	// AllowAutoTopicCreation notifies writer to create topic if missing.
	AllowAutoTopicCreation bool
}

func DefaultKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Balancer:               &kafka.Hash{},
		MaxAttempts:            10,
		BatchSize:              1,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
		RequiredAcks:           kafka.RequireOne,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}
}

// KafkaDialer opens sessions that write messages to a kafka cluster.
// The session nameservers are used as brokers.
type KafkaDialer struct {
	cfg *KafkaConfig
}

func NewKafkaDialer(cfg *KafkaConfig) *KafkaDialer {
	return &KafkaDialer{cfg: cfg}
}

// Open implements [Dialer].
func (kd *KafkaDialer) Open(_ context.Context, cfg *Config) (Session, error) {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.addresses("localhost", defaultKafkaPort)...),
		Balancer:               kd.cfg.Balancer,
		MaxAttempts:            kd.cfg.MaxAttempts,
		BatchSize:              kd.cfg.BatchSize,
		BatchTimeout:           kd.cfg.BatchTimeout,
		WriteTimeout:           kd.cfg.WriteTimeout,
		RequiredAcks:           kd.cfg.RequiredAcks,
		Compression:            kd.cfg.Compression,
		Transport:              kd.cfg.Transport,
		AllowAutoTopicCreation: kd.cfg.AllowAutoTopicCreation,
	}

	return &kafkaSession{
		writer: writer,
		name:   cfg.Name,
	}, nil
}

type kafkaSession struct {
	writer *kafka.Writer
	name   string
}

// kafkaTopic maps a slash separated subject to a kafka topic name.
func kafkaTopic(subject string) string {
	return strings.ReplaceAll(strings.Trim(subject, "/"), "/", ".")
}

func (ks *kafkaSession) Publish(ctx context.Context, msg *Message) error {
	headerCarrier := telemetry.NewKafkaHeaderCarrier([]kafka.Header{
		{Key: "publisher", Value: []byte(ks.name)},
		{Key: "type", Value: []byte(msg.Type)},
	})

	// Inject the trace
	headerCarrier.InjectTrace(ctx)

	kafkaMsg := kafka.Message{
		Topic: kafkaTopic(msg.Subject),
		Key:   []byte(msg.ID),
		Value: msg.Encode(),
		Time:  msg.Time,

		Headers: headerCarrier.Headers(),
	}

	return ks.writer.WriteMessages(ctx, kafkaMsg)
}

func (ks *kafkaSession) Close() error {
	return ks.writer.Close()
}
