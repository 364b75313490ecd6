package subscriber

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/soltixdb/seasoncast/internal/config"
	"github.com/soltixdb/seasoncast/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getKafkaBroker() string {
	if b := os.Getenv("KAFKA_BROKER"); b != "" {
		return b
	}
	return "localhost:9092"
}

func requireKafka(t *testing.T) string {
	t.Helper()
	broker := getKafkaBroker()
	conn, err := net.DialTimeout("tcp", broker, time.Second)
	if err != nil {
		t.Skip("Kafka not available, skipping test")
	}
	_ = conn.Close()
	return broker
}

func TestNewKafkaSubscriber_NoBrokers(t *testing.T) {
	_, err := NewKafkaSubscriber(nil, testOptions())
	assert.Error(t, err)
}

func TestKafkaSubscriber_SubscribeTwice(t *testing.T) {
	sub, err := NewKafkaSubscriber([]string{"127.0.0.1:1"}, testOptions())
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	noop := func(context.Context, string, []byte) error { return nil }
	require.NoError(t, sub.Subscribe(context.Background(), "jobs", noop))
	assert.Error(t, sub.Subscribe(context.Background(), "jobs", noop))
	require.NoError(t, sub.Unsubscribe("jobs"))
	assert.Error(t, sub.Unsubscribe("jobs"))
}

func TestKafkaSubscriber_ReceivesFromPublisher(t *testing.T) {
	broker := requireKafka(t)
	cfg := config.PublisherConfig{Type: "kafka", KafkaBrokers: []string{broker}}
	topic := "seasoncast-test-requests-" + time.Now().Format("150405.000000")

	pub, err := queue.NewPublisher(cfg)
	require.NoError(t, err)
	defer func() { _ = pub.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	require.NoError(t, pub.Publish(ctx, topic, []byte("job-1")))

	jobs := jobsConfig()
	jobs.ConsumerGroup = topic
	sub, err := NewSubscriber(cfg, jobs, nil)
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	ch := make(chan string, 1)
	require.NoError(t, sub.Subscribe(ctx, topic, func(_ context.Context, _ string, data []byte) error {
		ch <- string(data)
		return nil
	}))

	select {
	case v := <-ch:
		assert.Equal(t, "job-1", v)
	case <-ctx.Done():
		t.Fatal("timed out waiting for Kafka message")
	}
}
