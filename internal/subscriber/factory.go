package subscriber

import (
	"fmt"
	"os"
	"strings"

	"github.com/soltixdb/seasoncast/internal/compression"
	"github.com/soltixdb/seasoncast/internal/config"
	"github.com/soltixdb/seasoncast/internal/queue"
)

// NewSubscriber creates a Subscriber for the broker described by cfg. The
// memory type needs the process's publisher, since both sides share it.
func NewSubscriber(cfg config.PublisherConfig, jobs config.JobsConfig, publisher queue.Publisher) (Subscriber, error) {
	opts := Options{
		ConsumerGroup: jobs.ConsumerGroup,
		ConsumerID:    jobs.ConsumerID,
	}
	if opts.ConsumerID == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "seasoncast"
		}
		opts.ConsumerID = host
	}

	var (
		s   Subscriber
		err error
	)
	switch strings.ToLower(cfg.Type) {
	case queue.TypeMemory:
		mp, ok := queue.Unwrap(publisher).(*queue.MemoryPublisher)
		if !ok {
			return nil, fmt.Errorf("memory subscriber requires a memory publisher")
		}
		s = NewMemorySubscriber(mp, opts)
	case queue.TypeNATS:
		s, err = NewNATSSubscriber(cfg.URL, cfg.Username, cfg.Password, opts)
	case queue.TypeRedis:
		s, err = NewRedisSubscriber(cfg.URL, cfg.Password, cfg.RedisDB, cfg.RedisStream, opts)
	case queue.TypeKafka:
		brokers := cfg.KafkaBrokers
		if len(brokers) == 0 && cfg.URL != "" {
			brokers = strings.Split(cfg.URL, ",")
		}
		s, err = NewKafkaSubscriber(brokers, opts)
	default:
		return nil, fmt.Errorf("unsupported subscriber type: %q (supported: memory, nats, redis, kafka)", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Compress {
		s = WithDecompression(s, compression.SnappyCompressor{})
	}
	return s, nil
}
