package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig represents Redis Streams configuration
type RedisConfig struct {
	URL      string // redis://host:port or host:port
	Password string
	DB       int
	Stream   string // Stream name prefix (default: "seasoncast")
	MaxLen   int64  // Approximate stream cap per subject (default: 10000)
}

// RedisPublisher appends each message to a Redis stream per subject
type RedisPublisher struct {
	client *redis.Client
	config RedisConfig
}

func newRedisPublisher(cfg RedisConfig) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		opts = &redis.Options{Addr: cfg.URL, Password: cfg.Password, DB: cfg.DB}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if cfg.Stream == "" {
		cfg.Stream = "seasoncast"
	}
	if cfg.MaxLen == 0 {
		cfg.MaxLen = 10000
	}
	return &RedisPublisher{client: client, config: cfg}, nil
}

func (p *RedisPublisher) streamName(subject string) string {
	return p.config.Stream + ":" + subject
}

func (p *RedisPublisher) xaddArgs(subject string, data []byte) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: p.streamName(subject),
		MaxLen: p.config.MaxLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"data": data},
	}
}

// Publish appends data to the subject's stream
func (p *RedisPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := p.client.XAdd(ctx, p.xaddArgs(subject, data)).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis stream %s: %w", p.streamName(subject), err)
	}
	return nil
}

// PublishBatch appends all messages in one pipeline
func (p *RedisPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	pipe := p.client.Pipeline()
	for _, msg := range messages {
		pipe.XAdd(ctx, p.xaddArgs(msg.Subject, msg.Data))
	}
	cmds, err := pipe.Exec(ctx)
	ok := 0
	for _, cmd := range cmds {
		if cmd.Err() == nil {
			ok++
		}
	}
	if err != nil && ok == 0 {
		return 0, fmt.Errorf("failed to execute batch publish: %w", err)
	}
	return ok, nil
}

// Close closes the Redis client
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
