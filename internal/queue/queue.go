// Package queue publishes finished forecast results to a message broker for
// the reporting layer. Only the publishing side lives here.
package queue

import (
	"context"

	"github.com/soltixdb/seasoncast/internal/compression"
)

// Publisher publishes messages to a queue
type Publisher interface {
	// Publish publishes a message to a subject/topic
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishBatch publishes all messages and returns how many were accepted
	PublishBatch(ctx context.Context, messages []BatchMessage) (int, error)

	// Close releases the connection
	Close() error
}

// BatchMessage represents a message for batch publishing
type BatchMessage struct {
	Subject string
	Data    []byte
}

// compressingPublisher compresses every payload before handing it on.
type compressingPublisher struct {
	next       Publisher
	compressor compression.Compressor
}

// WithCompression wraps p so payloads are encoded with c.
func WithCompression(p Publisher, c compression.Compressor) Publisher {
	if c == nil || c.Algorithm() == compression.None {
		return p
	}
	return &compressingPublisher{next: p, compressor: c}
}

// Unwrap returns the publisher under any compression layer.
func Unwrap(p Publisher) Publisher {
	if cp, ok := p.(*compressingPublisher); ok {
		return cp.next
	}
	return p
}

func (p *compressingPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	packed, err := p.compressor.Compress(data)
	if err != nil {
		return err
	}
	return p.next.Publish(ctx, subject, packed)
}

func (p *compressingPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	packed := make([]BatchMessage, len(messages))
	for i, m := range messages {
		data, err := p.compressor.Compress(m.Data)
		if err != nil {
			return 0, err
		}
		packed[i] = BatchMessage{Subject: m.Subject, Data: data}
	}
	return p.next.PublishBatch(ctx, packed)
}

func (p *compressingPublisher) Close() error {
	return p.next.Close()
}

// nopPublisher drops every message. Used when publishing is disabled.
type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, []byte) error { return nil }
func (nopPublisher) PublishBatch(_ context.Context, m []BatchMessage) (int, error) {
	return len(m), nil
}
func (nopPublisher) Close() error { return nil }
