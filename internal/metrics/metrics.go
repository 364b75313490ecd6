// Package metrics exposes Prometheus instruments for forecast runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the instruments recorded by the forecast service
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal     prometheus.Counter
	KeysTotal     *prometheus.CounterVec   // by outcome code ("OK" on success)
	KeyDuration   prometheus.Histogram     // seconds per key
	RunDuration   prometheus.Histogram     // seconds per run
	CacheLookups  *prometheus.CounterVec   // by result: hit, miss
	PublishErrors prometheus.Counter
	FitParams     *prometheus.HistogramVec // estimated smoothing weights by parameter
	JobsTotal     *prometheus.CounterVec   // broker jobs by status: ok, rejected, failed
}

// New creates all instruments on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RunsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "seasoncast_runs_total",
			Help: "Number of forecast runs executed",
		}),
		KeysTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seasoncast_keys_total",
			Help: "Series keys processed, by outcome code",
		}, []string{"code"}),
		KeyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "seasoncast_key_duration_seconds",
			Help:    "Time to fit, evaluate and simulate one series",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "seasoncast_run_duration_seconds",
			Help:    "Wall time of a forecast run",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seasoncast_model_cache_lookups_total",
			Help: "Fitted model cache lookups, by result",
		}, []string{"result"}),
		PublishErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "seasoncast_publish_errors_total",
			Help: "Result events that could not be published",
		}),
		FitParams: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "seasoncast_fit_parameter",
			Help:    "Estimated smoothing weights",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}, []string{"param"}),
		JobsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seasoncast_jobs_total",
			Help: "Forecast jobs consumed from the broker, by status",
		}, []string{"status"}),
	}
}

// Registry returns the registry the instruments are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
