// Package subscriber consumes forecast job requests from the broker the
// result publisher writes to. Each backend mirrors its queue publisher's
// naming so a request published with queue.Publisher reaches it unchanged.
package subscriber

import (
	"context"

	"github.com/soltixdb/seasoncast/internal/compression"
	"github.com/soltixdb/seasoncast/internal/logging"
)

// MessageHandler processes one message. Returning an error leaves the message
// unacknowledged where the backend supports redelivery.
type MessageHandler func(ctx context.Context, subject string, data []byte) error

// Subscriber defines the interface for message subscription
type Subscriber interface {
	// Subscribe starts delivering subject to handler until ctx ends or Unsubscribe
	Subscribe(ctx context.Context, subject string, handler MessageHandler) error

	// Unsubscribe stops delivery of subject
	Unsubscribe(subject string) error

	// Close stops every subscription and releases the connection
	Close() error
}

// Options are shared by every backend
type Options struct {
	// ConsumerGroup spreads a subject over all instances of the group
	ConsumerGroup string

	// ConsumerID names this instance inside the group
	ConsumerID string

	Logger *logging.Logger
}

func (o Options) logger(component string) *logging.Logger {
	l := o.Logger
	if l == nil {
		l = logging.Global()
	}
	return l.With("component", component)
}

// decompressing decodes payloads before they reach the handler
type decompressing struct {
	Subscriber
	compressor compression.Compressor
}

// WithDecompression wraps s so handlers receive payloads decoded with c.
func WithDecompression(s Subscriber, c compression.Compressor) Subscriber {
	if c == nil || c.Algorithm() == compression.None {
		return s
	}
	return &decompressing{Subscriber: s, compressor: c}
}

func (d *decompressing) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	return d.Subscriber.Subscribe(ctx, subject, func(ctx context.Context, subject string, data []byte) error {
		plain, err := d.compressor.Decompress(data)
		if err != nil {
			return err
		}
		return handler(ctx, subject, plain)
	})
}
