package subscriber

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/soltixdb/seasoncast/internal/logging"
)

// NATSSubscriber consumes with core NATS queue subscriptions, matching the
// core publisher: all instances in ConsumerGroup share a subject and each
// message reaches one of them. There is no redelivery.
type NATSSubscriber struct {
	conn          *nats.Conn
	consumerGroup string
	log           *logging.Logger
	subscriptions map[string]*nats.Subscription
	mu            sync.Mutex
}

// NewNATSSubscriber connects to url
func NewNATSSubscriber(url, user, password string, opts Options) (*NATSSubscriber, error) {
	log := opts.logger("subscriber.nats")
	natsOpts := []nats.Option{
		nats.Name(fmt.Sprintf("seasoncast-jobs-%s", opts.ConsumerID)),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if user != "" {
		natsOpts = append(natsOpts, nats.UserInfo(user, password))
	}

	conn, err := nats.Connect(url, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSSubscriber{
		conn:          conn,
		consumerGroup: opts.ConsumerGroup,
		log:           log,
		subscriptions: make(map[string]*nats.Subscription),
	}, nil
}

// Subscribe subscribes to a subject with the given handler
func (s *NATSSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	sub, err := s.conn.QueueSubscribe(subject, s.consumerGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		if err := handler(ctx, msg.Subject, msg.Data); err != nil {
			s.log.Error("Failed to handle message",
				"subject", msg.Subject,
				"error", err,
				"data_preview", string(msg.Data[:min(100, len(msg.Data))]))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	// the subscription must be registered before callers publish
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("failed to flush subscription to %s: %w", subject, err)
	}

	s.subscriptions[subject] = sub
	s.log.Info("Subscribed to subject", "subject", subject, "queue", s.consumerGroup)
	return nil
}

// Unsubscribe drains the subject's subscription
func (s *NATSSubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", subject, err)
	}

	delete(s.subscriptions, subject)
	s.log.Info("Unsubscribed from subject", "subject", subject)
	return nil
}

// Close closes all subscriptions and the connection
func (s *NATSSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for subject, sub := range s.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			s.log.Warn("Failed to unsubscribe", "subject", subject, "error", err)
		}
	}
	s.subscriptions = make(map[string]*nats.Subscription)

	s.conn.Close()
	s.log.Info("NATS subscriber closed")
	return nil
}
