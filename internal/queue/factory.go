package queue

import (
	"fmt"
	"strings"

	"github.com/soltixdb/seasoncast/internal/compression"
	"github.com/soltixdb/seasoncast/internal/config"
)

// Publisher types accepted in configuration
const (
	TypeNone   = "none"
	TypeMemory = "memory"
	TypeNATS   = "nats"
	TypeRedis  = "redis"
	TypeKafka  = "kafka"
)

// NewPublisher creates a Publisher from configuration. An empty type disables publishing.
func NewPublisher(cfg config.PublisherConfig) (Publisher, error) {
	var (
		p   Publisher
		err error
	)

	switch strings.ToLower(cfg.Type) {
	case "", TypeNone:
		return nopPublisher{}, nil
	case TypeMemory:
		p = NewMemoryPublisher()
	case TypeNATS:
		p, err = newNATSPublisher(cfg.URL, cfg.Username, cfg.Password)
	case TypeRedis:
		p, err = newRedisPublisher(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
		})
	case TypeKafka:
		brokers := cfg.KafkaBrokers
		if len(brokers) == 0 && cfg.URL != "" {
			brokers = strings.Split(cfg.URL, ",")
		}
		p, err = newKafkaPublisher(KafkaConfig{Brokers: brokers})
	default:
		return nil, fmt.Errorf("unsupported publisher type: %s (supported: none, memory, nats, redis, kafka)", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Compress {
		p = WithCompression(p, compression.SnappyCompressor{})
	}
	return p, nil
}
