package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig represents Apache Kafka producer configuration
type KafkaConfig struct {
	Brokers      []string
	BatchTimeout time.Duration // default: 10ms
	RequiredAcks int           // 0=none, 1=leader, -1=all (default: 1)
	MaxAttempts  int           // default: 3
}

// KafkaPublisher writes each subject to the topic of the same name
type KafkaPublisher struct {
	writer *kafka.Writer
}

func newKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.RequiredAcks == 0 {
		cfg.RequiredAcks = int(kafka.RequireOne)
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}

	// No Topic on the writer: every message names its own.
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		MaxAttempts:            cfg.MaxAttempts,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}, nil
}

func kafkaMessage(subject string, data []byte) kafka.Message {
	return kafka.Message{Topic: subject, Value: data, Time: time.Now()}
}

// Publish writes one message to the subject's topic
func (p *KafkaPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := p.writer.WriteMessages(ctx, kafkaMessage(subject, data)); err != nil {
		return fmt.Errorf("failed to publish to kafka topic %s: %w", subject, err)
	}
	return nil
}

// PublishBatch writes all messages in one call
func (p *KafkaPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}
	msgs := make([]kafka.Message, len(messages))
	for i, m := range messages {
		msgs[i] = kafkaMessage(m.Subject, m.Data)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("failed to publish batch: %w", err)
	}
	return len(messages), nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
