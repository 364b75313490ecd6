package queue

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes with core NATS. Results are events for live
// consumers, so no JetStream stream is created.
type NATSPublisher struct {
	conn *nats.Conn
}

func newNATSPublisher(url, user, password string) (*NATSPublisher, error) {
	opts := []nats.Option{nats.Name("seasoncast")}
	if user != "" {
		opts = append(opts, nats.UserInfo(user, password))
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

// Publish publishes data and flushes so the server has it before returning
func (p *NATSPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush subject %s: %w", subject, err)
	}
	return nil
}

// PublishBatch queues every message and flushes once
func (p *NATSPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	queued := 0
	for _, msg := range messages {
		if err := p.conn.Publish(msg.Subject, msg.Data); err != nil {
			return queued, fmt.Errorf("failed to publish to subject %s: %w", msg.Subject, err)
		}
		queued++
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return 0, fmt.Errorf("failed to flush batch: %w", err)
	}
	return queued, nil
}

// Close drains pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
