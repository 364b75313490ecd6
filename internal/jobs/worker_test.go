package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/soltixdb/seasoncast/internal/logging"
	"github.com/soltixdb/seasoncast/internal/metrics"
	"github.com/soltixdb/seasoncast/internal/models"
	"github.com/soltixdb/seasoncast/internal/queue"
	"github.com/soltixdb/seasoncast/internal/services"
	"github.com/soltixdb/seasoncast/internal/subscriber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seasonalValues(n int) []float64 {
	factors := []float64{0.9, 1.05, 1.15, 0.9}
	v := make([]float64, n)
	for t := range v {
		v[t] = (500 + 4*float64(t)) * factors[t%4] * (1 + 0.01*math.Sin(float64(t)))
	}
	return v
}

func subject(s string) string { return "test." + s }

type fixture struct {
	pub     *queue.MemoryPublisher
	worker  *Worker
	metrics *metrics.Metrics
}

func newFixture() fixture {
	pub := queue.NewMemoryPublisher()
	m := metrics.New()
	svc := services.NewForecastService(logging.NewNop())
	defaults := services.DefaultRunConfig()
	defaults.Trials = 1000
	return fixture{
		pub:     pub,
		worker:  NewWorker(logging.NewNop(), svc, defaults, pub, subject, m),
		metrics: m,
	}
}

func (f fixture) responses(t *testing.T, subj string) []Response {
	t.Helper()
	var out []Response
	for _, m := range f.pub.Messages() {
		if m.Subject != subj {
			continue
		}
		var r Response
		require.NoError(t, json.Unmarshal(m.Data, &r))
		out = append(out, r)
	}
	return out
}

func encode(t *testing.T, r Request) []byte {
	t.Helper()
	data, err := json.Marshal(r)
	require.NoError(t, err)
	return data
}

func TestWorker_HandleOK(t *testing.T) {
	f := newFixture()
	horizon := 4

	err := f.worker.Handle(context.Background(), "", encode(t, Request{
		JobID: "job-1",
		Request: models.ForecastRequest{
			Horizon: &horizon,
			Series: []models.SeriesInput{
				{Metric: "Passengers", Group: "Legacy", Values: seasonalValues(40)},
				{Metric: "Passengers", Group: "Regional", Values: []float64{1, 2, 3}},
			},
		},
	}))
	require.NoError(t, err)

	resps := f.responses(t, "test.responses")
	require.Len(t, resps, 1)
	r := resps[0]
	assert.Equal(t, "job-1", r.JobID)
	assert.Equal(t, StatusOK, r.Status)
	require.NotNil(t, r.Result)
	require.Len(t, r.Result.Results, 1)
	assert.Len(t, r.Result.Results[0].Forecast, horizon)
	require.Len(t, r.Result.Failures, 1)
	assert.Equal(t, services.CodeInsufficientData, r.Result.Failures[0].Code)
	assert.Len(t, r.Result.Table["Legacy_Passengers"], horizon)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.JobsTotal.WithLabelValues(StatusOK)))
}

func TestWorker_HandleRejected(t *testing.T) {
	f := newFixture()
	trials := 5

	require.NoError(t, f.worker.Handle(context.Background(), "", encode(t, Request{
		ReplyTo: "client.inbox",
		Request: models.ForecastRequest{
			Trials: &trials,
			Series: []models.SeriesInput{{Metric: "Passengers", Group: "Legacy", Values: seasonalValues(40)}},
		},
	})))

	resps := f.responses(t, "client.inbox")
	require.Len(t, resps, 1)
	r := resps[0]
	assert.NotEmpty(t, r.JobID, "job id is generated")
	assert.Equal(t, StatusRejected, r.Status)
	require.NotNil(t, r.Error)
	assert.Equal(t, services.CodeInvalidConfig, r.Error.Code)
	assert.Nil(t, r.Result)
}

func TestWorker_HandleUndecodable(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.worker.Handle(context.Background(), "", []byte("{not json")))
	assert.Empty(t, f.pub.Messages())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.JobsTotal.WithLabelValues(StatusRejected)))
}

func TestWorker_PublishFailureIsReturned(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.pub.Close())

	err := f.worker.Handle(context.Background(), "", encode(t, Request{JobID: "x"}))
	assert.True(t, errors.Is(err, queue.ErrPublisherClosed), "got %v", err)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PublishErrors))
}

func TestWorker_StartConsumesFromSubscriber(t *testing.T) {
	f := newFixture()
	sub := subscriber.NewMemorySubscriber(f.pub, subscriber.Options{ConsumerGroup: "g", ConsumerID: "1", Logger: logging.NewNop()})
	defer func() { _ = sub.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.worker.Start(ctx, sub))

	done := make(chan Response, 1)
	f.pub.OnMessage("test.responses", func(data []byte) {
		var r Response
		if json.Unmarshal(data, &r) == nil {
			done <- r
		}
	})

	require.NoError(t, f.pub.Publish(ctx, "test.requests", encode(t, Request{
		JobID: "async-1",
		Request: models.ForecastRequest{
			StartQuarter: "2014Q1",
			Series:       []models.SeriesInput{{Metric: "Net Income", Group: "LCC", Values: seasonalValues(40)}},
		},
	})))

	select {
	case r := <-done:
		assert.Equal(t, "async-1", r.JobID)
		assert.Equal(t, StatusOK, r.Status)
		require.NotNil(t, r.Result)
		assert.Equal(t, "2024Q1", r.Result.Results[0].Forecast[0].Label)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for the job response")
	}
}
