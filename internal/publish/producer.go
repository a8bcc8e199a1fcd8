package publish

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// ProducerConfig tunes the Kafka writer behind the dispatcher.
type ProducerConfig struct {
	Brokers      []string
	ClientID     string
	WriteTimeout time.Duration
	// BatchTimeout bounds how long the writer waits to fill a request. The dispatcher
	// already batches, so this stays short.
	BatchTimeout time.Duration
}

func (c ProducerConfig) withDefaults() ProducerConfig {
	if c.ClientID == "" {
		c.ClientID = "signup-service"
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 10 * time.Millisecond
	}
	return c
}

// KafkaProducer writes framed roster events. Messages are keyed by activity and hashed,
// so one activity's events keep their order on a single partition.
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer creates a KafkaProducer. Connections are opened on first write.
func NewKafkaProducer(cfg ProducerConfig) *KafkaProducer {
	cfg = cfg.withDefaults()
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			Compression:            kafka.Snappy,
			WriteTimeout:           cfg.WriteTimeout,
			BatchTimeout:           cfg.BatchTimeout,
			AllowAutoTopicCreation: true,
			Transport:              &kafka.Transport{ClientID: cfg.ClientID},
		},
	}
}

// WriteMessages sends msgs to topic.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	for i := range msgs {
		msgs[i].Topic = topic
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// Close flushes and releases the writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
