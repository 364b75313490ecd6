package subscriber

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/soltixdb/seasoncast/internal/logging"
)

// RedisSubscriber reads Redis streams through a consumer group. A message is
// acknowledged only after its handler succeeds; failures stay pending.
type RedisSubscriber struct {
	client        *redis.Client
	streamPrefix  string
	consumerGroup string
	consumerID    string
	log           *logging.Logger
	subscriptions map[string]context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
}

// NewRedisSubscriber connects to url (redis://host:port or host:port).
// streamPrefix must match the publisher's stream prefix.
func NewRedisSubscriber(url, password string, db int, streamPrefix string, opts Options) (*RedisSubscriber, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		redisOpts = &redis.Options{Addr: url, Password: password, DB: db}
	}
	redisOpts.PoolSize = 10
	redisOpts.MinIdleConns = 2
	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if streamPrefix == "" {
		streamPrefix = "seasoncast"
	}

	return &RedisSubscriber{
		client:        client,
		streamPrefix:  streamPrefix,
		consumerGroup: opts.ConsumerGroup,
		consumerID:    opts.ConsumerID,
		log:           opts.logger("subscriber.redis"),
		subscriptions: make(map[string]context.CancelFunc),
	}, nil
}

// Subscribe subscribes to a stream with the given handler
func (s *RedisSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	streamName := s.streamName(subject)
	if _, exists := s.subscriptions[streamName]; exists {
		return fmt.Errorf("already subscribed to stream: %s", streamName)
	}

	// "0": requests queued before the group existed are still served
	err := s.client.XGroupCreateMkStream(ctx, streamName, s.consumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	s.subscriptions[streamName] = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.consume(subCtx, streamName, subject, handler)
	}()

	s.log.Info("Subscribed to Redis stream", "stream", streamName, "group", s.consumerGroup, "consumer", s.consumerID)
	return nil
}

func (s *RedisSubscriber) consume(ctx context.Context, streamName, subject string, handler MessageHandler) {
	for ctx.Err() == nil {
		streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.consumerGroup,
			Consumer: s.consumerID,
			Streams:  []string{streamName, ">"},
			Count:    10,
			Block:    time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			s.log.Error("Failed to read from stream", "stream", streamName, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				data, ok := message.Values["data"].(string)
				if !ok {
					s.log.Warn("Invalid message format", "stream", streamName, "id", message.ID)
					s.client.XAck(ctx, streamName, s.consumerGroup, message.ID)
					continue
				}

				if err := handler(ctx, subject, []byte(data)); err != nil {
					s.log.Error("Failed to handle message", "stream", streamName, "id", message.ID, "error", err)
					continue
				}

				if err := s.client.XAck(ctx, streamName, s.consumerGroup, message.ID).Err(); err != nil {
					s.log.Error("Failed to ACK message", "stream", streamName, "id", message.ID, "error", err)
				}
			}
		}
	}
}

// streamName matches the publisher: {streamPrefix}:{subject}
func (s *RedisSubscriber) streamName(subject string) string {
	return s.streamPrefix + ":" + subject
}

// Unsubscribe unsubscribes from a stream
func (s *RedisSubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	streamName := s.streamName(subject)
	cancel, exists := s.subscriptions[streamName]
	if !exists {
		return fmt.Errorf("not subscribed to stream: %s", streamName)
	}

	cancel()
	delete(s.subscriptions, streamName)
	s.log.Info("Unsubscribed from Redis stream", "stream", streamName)
	return nil
}

// Close cancels every subscription, waits for the readers and closes the client
func (s *RedisSubscriber) Close() error {
	s.mu.Lock()
	for _, cancel := range s.subscriptions {
		cancel()
	}
	s.subscriptions = make(map[string]context.CancelFunc)
	s.mu.Unlock()

	s.wg.Wait()
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}
	s.log.Info("Redis subscriber closed")
	return nil
}
