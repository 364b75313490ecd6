package subscriber

import (
	"context"
	"fmt"
	"sync"

	"github.com/soltixdb/seasoncast/internal/logging"
	"github.com/soltixdb/seasoncast/internal/queue"
)

// memoryBuffer is the number of undelivered messages kept per subscription
const memoryBuffer = 1000

type memorySubscription struct {
	ctx    context.Context
	cancel context.CancelFunc
	ch     chan memoryMessage
	done   chan struct{}
}

type memoryMessage struct {
	subject string
	data    []byte
}

// MemorySubscriber receives what a queue.MemoryPublisher publishes in the
// same process. Failed messages are logged and dropped.
type MemorySubscriber struct {
	source        *queue.MemoryPublisher
	log           *logging.Logger
	subscriptions map[string]*memorySubscription
	mu            sync.Mutex
}

// NewMemorySubscriber creates a subscriber fed by source
func NewMemorySubscriber(source *queue.MemoryPublisher, opts Options) *MemorySubscriber {
	return &MemorySubscriber{
		source:        source,
		log:           opts.logger("subscriber.memory"),
		subscriptions: make(map[string]*memorySubscription),
	}
}

// Subscribe subscribes to a subject with the given handler
func (s *MemorySubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &memorySubscription{
		ctx:    subCtx,
		cancel: cancel,
		ch:     make(chan memoryMessage, memoryBuffer),
		done:   make(chan struct{}),
	}
	s.subscriptions[subject] = sub

	// The publisher keeps its handlers for life; a cancelled subscription
	// just stops accepting.
	s.source.OnMessage(subject, func(data []byte) {
		if sub.ctx.Err() != nil {
			return
		}
		select {
		case sub.ch <- memoryMessage{subject: subject, data: data}:
		default:
			s.log.Warn("Subscriber channel full, dropping message", "subject", subject)
		}
	})

	go s.consume(sub, handler)

	s.log.Info("Subscribed to in-memory subject", "subject", subject)
	return nil
}

func (s *MemorySubscriber) consume(sub *memorySubscription, handler MessageHandler) {
	defer close(sub.done)
	for {
		select {
		case <-sub.ctx.Done():
			return
		case msg := <-sub.ch:
			if err := handler(sub.ctx, msg.subject, msg.data); err != nil {
				s.log.Error("Failed to handle message", "subject", msg.subject, "error", err)
			}
		}
	}
}

// Unsubscribe stops delivery and waits for the running handler to return
func (s *MemorySubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	sub, exists := s.subscriptions[subject]
	delete(s.subscriptions, subject)
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}
	sub.cancel()
	<-sub.done

	s.log.Info("Unsubscribed from in-memory subject", "subject", subject)
	return nil
}

// Close closes all subscriptions
func (s *MemorySubscriber) Close() error {
	s.mu.Lock()
	subs := s.subscriptions
	s.subscriptions = make(map[string]*memorySubscription)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
		<-sub.done
	}
	s.log.Info("Memory subscriber closed")
	return nil
}
