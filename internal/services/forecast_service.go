package services

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/soltixdb/seasoncast/internal/analytics"
	"github.com/soltixdb/seasoncast/internal/analytics/anomaly"
	"github.com/soltixdb/seasoncast/internal/analytics/evaluation"
	"github.com/soltixdb/seasoncast/internal/analytics/forecast"
	"github.com/soltixdb/seasoncast/internal/analytics/montecarlo"
	"github.com/soltixdb/seasoncast/internal/logging"
	"github.com/soltixdb/seasoncast/internal/metrics"
	"github.com/soltixdb/seasoncast/internal/queue"
	"github.com/soltixdb/seasoncast/internal/utils"
)

// Subjects result events are published on, relative to the configured prefix
const (
	SubjectResults = "results"
	SubjectRuns    = "runs"
)

// modelKey identifies a fit: same observations and same smoothing form.
type modelKey struct {
	fingerprint uint64
	smoothing   forecast.SmoothingConfig
}

// ForecastService runs the fit / evaluate / simulate pipeline over a batch of series
type ForecastService struct {
	logger    *logging.Logger
	metrics   *metrics.Metrics
	publisher queue.Publisher
	subject   func(string) string
	models    *lru.Cache[modelKey, *forecast.FittedModel]
}

// ServiceOption customizes a ForecastService
type ServiceOption func(*ForecastService)

// WithMetrics records run and key instruments on m
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *ForecastService) { s.metrics = m }
}

// WithPublisher publishes every bundle and a run summary through p.
// subject maps SubjectResults/SubjectRuns to full subject names.
func WithPublisher(p queue.Publisher, subject func(string) string) ServiceOption {
	return func(s *ForecastService) {
		s.publisher = p
		if subject != nil {
			s.subject = subject
		}
	}
}

// WithModelCache keeps up to size fitted models keyed by series content and
// smoothing form. Zero disables the cache.
func WithModelCache(size int) ServiceOption {
	return func(s *ForecastService) {
		if size <= 0 {
			s.models = nil
			return
		}
		s.models, _ = lru.New[modelKey, *forecast.FittedModel](size)
	}
}

// NewForecastService creates a new ForecastService
func NewForecastService(logger *logging.Logger, opts ...ServiceOption) *ForecastService {
	if logger == nil {
		logger = logging.Global()
	}
	s := &ForecastService{
		logger:  logger,
		subject: func(s string) string { return "seasoncast." + s },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes every key independently. A key that fails records its error
// and code in its outcome; only an invalid cfg fails the whole call.
func (s *ForecastService) Run(ctx context.Context, series map[SeriesKey]analytics.TimeSeries, cfg RunConfig) (*RunResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	log := s.logger.WithContext(ctx)

	result := &RunResult{
		RunID:    runID,
		Outcomes: make(map[SeriesKey]*KeyOutcome, len(series)),
		Table:    make(map[string][]float64),
	}

	workers := max(cfg.Workers, 1)
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(workers)

	for key, ts := range series {
		g.Go(func() error {
			outcome := s.runKey(key, ts, cfg)

			mu.Lock()
			result.Outcomes[key] = outcome
			if outcome.OK() {
				result.Table[key.TableKey()] = outcome.Bundle.Forecast.Values()
			}
			mu.Unlock()

			s.observeKey(outcome)
			if !outcome.OK() {
				log.Warn("Forecast failed for series",
					"metric", key.Metric,
					"group", key.Group,
					"code", outcome.Code,
					"error", outcome.Err)
			}
			return nil
		})
	}
	_ = g.Wait()

	result.Duration = time.Since(start)
	if s.metrics != nil {
		s.metrics.RunsTotal.Inc()
		s.metrics.RunDuration.Observe(result.Duration.Seconds())
	}

	s.publish(ctx, result)

	log.Info("Forecast run completed",
		"keys", len(series),
		"succeeded", result.Succeeded(),
		"failed", len(series)-result.Succeeded(),
		"horizon", cfg.Horizon,
		"latency_ms", result.Duration.Milliseconds())

	return result, nil
}

// runKey fits, forecasts, evaluates and simulates one series.
func (s *ForecastService) runKey(key SeriesKey, ts analytics.TimeSeries, cfg RunConfig) *KeyOutcome {
	start := time.Now()
	outcome := &KeyOutcome{Key: key}
	fail := func(err error) *KeyOutcome {
		outcome.Err = err
		outcome.Code = ErrorCode(err)
		outcome.Duration = time.Since(start)
		return outcome
	}

	if err := key.Validate(); err != nil {
		return fail(err)
	}

	smoothing := cfg.SmoothingFor(key.Metric)
	model, hit, err := s.fit(ts, smoothing)
	if err != nil {
		return fail(err)
	}

	fc, err := model.Forecast(cfg.Horizon)
	if err != nil {
		return fail(err)
	}

	eval, residuals, err := evaluation.Evaluate(ts, model.Fitted())
	if err != nil {
		return fail(err)
	}

	var shocks []anomaly.Shock
	if cfg.detectShocks() {
		if shocks, err = anomaly.DetectShocks(cfg.ShockDetector, residuals.Periods, residuals.Values, cfg.Shock); err != nil {
			return fail(err)
		}
	}

	interval, err := montecarlo.Simulate(fc.Values(), residuals.Values, cfg.simulationOptions(keySeed(cfg.Seed, key)))
	if err != nil {
		return fail(err)
	}

	bundle := &ResultBundle{
		Key:        key,
		Fitted:     model.Fitted(),
		Forecast:   fc,
		Evaluation: eval,
		Shocks:     shocks,
		Interval:   interval,
		Params:     model.Params(),
		Smoothing:  smoothing,
		CacheHit:   hit,
	}
	if cfg.StartQuarter != nil {
		for _, p := range fc.Periods() {
			bundle.Labels = append(bundle.Labels, cfg.StartQuarter.Label(p))
		}
		for i := range bundle.Shocks {
			bundle.Shocks[i].Label = cfg.StartQuarter.Label(bundle.Shocks[i].Period)
		}
	}

	outcome.Bundle = bundle
	outcome.Code = CodeOK
	outcome.Duration = time.Since(start)
	return outcome
}

// fit returns a cached model for identical input when the cache is enabled.
func (s *ForecastService) fit(ts analytics.TimeSeries, smoothing forecast.SmoothingConfig) (*forecast.FittedModel, bool, error) {
	if s.models == nil {
		m, err := forecast.Fit(ts, smoothing)
		return m, false, err
	}

	k := modelKey{fingerprint: fingerprint(ts), smoothing: smoothing}
	if m, ok := s.models.Get(k); ok {
		s.countCache("hit")
		return m, true, nil
	}
	s.countCache("miss")

	m, err := forecast.Fit(ts, smoothing)
	if err != nil {
		return nil, false, err
	}
	s.models.Add(k, m)
	return m, false, nil
}

// CachedModels returns the number of fitted models currently cached
func (s *ForecastService) CachedModels() int {
	if s.models == nil {
		return 0
	}
	return s.models.Len()
}

func (s *ForecastService) countCache(result string) {
	if s.metrics != nil {
		s.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (s *ForecastService) observeKey(o *KeyOutcome) {
	if s.metrics == nil {
		return
	}
	s.metrics.KeysTotal.WithLabelValues(o.Code).Inc()
	s.metrics.KeyDuration.Observe(o.Duration.Seconds())
	if o.OK() {
		p := o.Bundle.Params
		s.metrics.FitParams.WithLabelValues("alpha").Observe(p.Alpha)
		s.metrics.FitParams.WithLabelValues("beta").Observe(p.Beta)
		s.metrics.FitParams.WithLabelValues("gamma").Observe(p.Gamma)
	}
}

// ResultEvent is the payload published for each successful key
type ResultEvent struct {
	RunID    string        `json:"run_id"`
	TableKey string        `json:"table_key"`
	Bundle   *ResultBundle `json:"bundle"`
}

// RunEvent summarizes a run once all keys are done
type RunEvent struct {
	RunID      string            `json:"run_id"`
	Keys       int               `json:"keys"`
	Succeeded  int               `json:"succeeded"`
	Failures   map[string]string `json:"failures,omitempty"` // table key -> code
	DurationMS int64             `json:"duration_ms"`
}

// publish sends one event per bundle plus the run summary. Failures are
// logged and counted; they never change the run result.
func (s *ForecastService) publish(ctx context.Context, r *RunResult) {
	if s.publisher == nil {
		return
	}
	log := s.logger.WithContext(ctx)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), utils.PublishTimeout)
	defer cancel()

	summary := RunEvent{
		RunID:      r.RunID,
		Keys:       len(r.Outcomes),
		Succeeded:  r.Succeeded(),
		Failures:   map[string]string{},
		DurationMS: r.Duration.Milliseconds(),
	}

	var messages []queue.BatchMessage
	for _, k := range r.Keys() {
		o := r.Outcomes[k]
		if !o.OK() {
			summary.Failures[k.TableKey()] = o.Code
			continue
		}
		data, err := json.Marshal(ResultEvent{RunID: r.RunID, TableKey: k.TableKey(), Bundle: o.Bundle})
		if err != nil {
			log.Error("Failed to encode result event", "key", k.String(), "error", err)
			continue
		}
		messages = append(messages, queue.BatchMessage{Subject: s.subject(SubjectResults), Data: data})
	}
	if data, err := json.Marshal(summary); err == nil {
		messages = append(messages, queue.BatchMessage{Subject: s.subject(SubjectRuns), Data: data})
	}

	sent, err := s.publisher.PublishBatch(ctx, messages)
	if err != nil || sent < len(messages) {
		if s.metrics != nil {
			s.metrics.PublishErrors.Add(float64(len(messages) - sent))
		}
		log.Warn("Result events not fully published",
			"sent", sent,
			"total", len(messages),
			"error", err)
	}
}

// fingerprint hashes periods and value bits of a series.
func fingerprint(ts analytics.TimeSeries) uint64 {
	d := xxhash.New()
	var buf [16]byte
	for _, o := range ts.Observations() {
		binary.LittleEndian.PutUint64(buf[:8], uint64(o.Period))
		binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(o.Value))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// keySeed derives the simulation seed of one key from the run seed, so a
// key's interval does not depend on which other keys share the run.
func keySeed(seed uint64, key SeriesKey) uint64 {
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seed)
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(key.Metric)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(key.Group)
	return d.Sum64()
}
