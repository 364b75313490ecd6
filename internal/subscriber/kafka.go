package subscriber

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/soltixdb/seasoncast/internal/logging"
)

// KafkaSubscriber reads a topic per subject with one reader in ConsumerGroup.
// Offsets are committed only after the handler succeeds.
type KafkaSubscriber struct {
	brokers       []string
	consumerGroup string
	log           *logging.Logger
	readers       map[string]*kafka.Reader
	cancels       map[string]context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
}

// NewKafkaSubscriber creates a new Kafka subscriber
func NewKafkaSubscriber(brokers []string, opts Options) (*KafkaSubscriber, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	return &KafkaSubscriber{
		brokers:       brokers,
		consumerGroup: opts.ConsumerGroup,
		log:           opts.logger("subscriber.kafka"),
		readers:       make(map[string]*kafka.Reader),
		cancels:       make(map[string]context.CancelFunc),
	}, nil
}

// Subscribe subscribes to a topic with the given handler. The topic is the
// subject itself, as written by the publisher.
func (s *KafkaSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.readers[subject]; exists {
		return fmt.Errorf("already subscribed to topic: %s", subject)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           s.brokers,
		GroupID:           s.consumerGroup,
		Topic:             subject,
		MinBytes:          1,
		MaxBytes:          10e6,
		MaxWait:           time.Second,
		StartOffset:       kafka.FirstOffset,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
		RebalanceTimeout:  60 * time.Second,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			s.log.Debug(fmt.Sprintf(msg, args...))
		}),
	})
	s.readers[subject] = reader

	subCtx, cancel := context.WithCancel(ctx)
	s.cancels[subject] = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.consume(subCtx, reader, subject, handler)
	}()

	s.log.Info("Subscribed to Kafka topic", "topic", subject, "group", s.consumerGroup)
	return nil
}

func (s *KafkaSubscriber) consume(ctx context.Context, reader *kafka.Reader, subject string, handler MessageHandler) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Error("Failed to fetch message", "topic", subject, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if err := handler(ctx, subject, msg.Value); err != nil {
			s.log.Error("Failed to handle message", "topic", subject, "offset", msg.Offset, "error", err)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			s.log.Error("Failed to commit message", "topic", subject, "offset", msg.Offset, "error", err)
		}
	}
}

// Unsubscribe stops the topic's reader
func (s *KafkaSubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancel, exists := s.cancels[subject]
	if !exists {
		return fmt.Errorf("not subscribed to topic: %s", subject)
	}
	cancel()
	delete(s.cancels, subject)

	if reader, ok := s.readers[subject]; ok {
		if err := reader.Close(); err != nil {
			s.log.Warn("Failed to close reader", "topic", subject, "error", err)
		}
		delete(s.readers, subject)
	}

	s.log.Info("Unsubscribed from Kafka topic", "topic", subject)
	return nil
}

// Close closes all readers and subscriptions
func (s *KafkaSubscriber) Close() error {
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = make(map[string]context.CancelFunc)
	readers := s.readers
	s.readers = make(map[string]*kafka.Reader)
	s.mu.Unlock()

	s.wg.Wait()

	var lastErr error
	for topic, reader := range readers {
		if err := reader.Close(); err != nil {
			s.log.Warn("Failed to close reader", "topic", topic, "error", err)
			lastErr = err
		}
	}
	s.log.Info("Kafka subscriber closed")
	return lastErr
}
