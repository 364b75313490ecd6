package queue

import (
	"context"
	"sync"
)

// MemoryPublisher keeps published messages in process. It backs the
// "memory" publisher type, the CLI and tests.
type MemoryPublisher struct {
	mu       sync.RWMutex
	messages []BatchMessage
	handlers map[string][]func([]byte)
	closed   bool
}

// NewMemoryPublisher creates an empty in-memory publisher
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{handlers: make(map[string][]func([]byte))}
}

// Publish records the message and calls the subject's handlers synchronously
func (p *MemoryPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPublisherClosed
	}
	p.messages = append(p.messages, BatchMessage{Subject: subject, Data: dataCopy})
	handlers := p.handlers[subject]
	p.mu.Unlock()

	for _, h := range handlers {
		h(dataCopy)
	}
	return nil
}

// PublishBatch publishes each message in order and stops at the first failure
func (p *MemoryPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	for i, m := range messages {
		if err := p.Publish(ctx, m.Subject, m.Data); err != nil {
			return i, err
		}
	}
	return len(messages), nil
}

// OnMessage registers a handler for subject
func (p *MemoryPublisher) OnMessage(subject string, handler func([]byte)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[subject] = append(p.handlers[subject], handler)
}

// Messages returns a copy of everything published so far
func (p *MemoryPublisher) Messages() []BatchMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]BatchMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

// Close rejects further publishes
func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
