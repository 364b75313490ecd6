package services

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/soltixdb/seasoncast/internal/analytics"
	"github.com/soltixdb/seasoncast/internal/analytics/anomaly"
	"github.com/soltixdb/seasoncast/internal/analytics/evaluation"
	"github.com/soltixdb/seasoncast/internal/analytics/forecast"
	"github.com/soltixdb/seasoncast/internal/analytics/montecarlo"
	"github.com/soltixdb/seasoncast/internal/config"
)

// SeriesKey identifies one input series, e.g. {Passengers, Legacy}.
type SeriesKey struct {
	Metric string `json:"metric"`
	Group  string `json:"group"`
}

// TableKey returns the flattened table column name "{group}_{metric}".
func (k SeriesKey) TableKey() string {
	return k.Group + "_" + k.Metric
}

func (k SeriesKey) String() string {
	return k.Metric + "/" + k.Group
}

// Validate requires both names to be non-empty.
func (k SeriesKey) Validate() error {
	if strings.TrimSpace(k.Metric) == "" || strings.TrimSpace(k.Group) == "" {
		return fmt.Errorf("%w: metric=%q group=%q", ErrInvalidKey, k.Metric, k.Group)
	}
	return nil
}

// RunConfig is the per-run configuration of the orchestrator.
type RunConfig struct {
	Horizon    int     `json:"horizon"`
	Confidence float64 `json:"confidence"`
	Trials     int     `json:"trials"`
	Seed       uint64  `json:"seed"`
	Workers    int     `json:"workers"`

	// Smoothing applies to every metric without an entry in MetricSmoothing.
	Smoothing forecast.SmoothingConfig `json:"smoothing"`
	// MetricSmoothing is keyed by lower-cased metric name.
	MetricSmoothing map[string]forecast.SmoothingConfig `json:"metric_smoothing,omitempty"`

	// ShockDetector names the residual outlier detector; empty or "none" disables it.
	ShockDetector string         `json:"shock_detector,omitempty"`
	Shock         anomaly.Config `json:"shock"`

	// StartQuarter, when set, is the calendar quarter of period 0 and turns
	// periods into labels such as 2024Q1 in results.
	StartQuarter *analytics.Quarter `json:"start_quarter,omitempty"`
}

// DefaultRunConfig mirrors the service defaults: 8 quarters, 95% interval,
// multiplicative seasonality except for Net Income.
func DefaultRunConfig() RunConfig {
	cfg, err := RunConfigFromConfig(config.DefaultConfig().Forecast)
	if err != nil {
		panic(err) // defaults are static
	}
	return cfg
}

// RunConfigFromConfig converts the forecast section of the service config.
func RunConfigFromConfig(fc config.ForecastConfig) (RunConfig, error) {
	base, err := smoothingFrom(fc, config.SmoothingOverride{})
	if err != nil {
		return RunConfig{}, err
	}

	rc := RunConfig{
		Horizon:         fc.Horizon,
		Confidence:      fc.Confidence,
		Trials:          fc.Trials,
		Seed:            fc.Seed,
		Workers:         fc.Workers,
		Smoothing:       base,
		MetricSmoothing: make(map[string]forecast.SmoothingConfig, len(fc.MetricOverrides)),
		ShockDetector:   fc.ShockDetector,
		Shock:           anomaly.Config{Threshold: fc.ShockThreshold, MinResiduals: anomaly.DefaultConfig().MinResiduals},
	}
	for metric, o := range fc.MetricOverrides {
		sc, err := smoothingFrom(fc, o)
		if err != nil {
			return RunConfig{}, fmt.Errorf("metric %q: %w", metric, err)
		}
		rc.MetricSmoothing[normalizeMetric(metric)] = sc
	}
	return rc, nil
}

func smoothingFrom(fc config.ForecastConfig, o config.SmoothingOverride) (forecast.SmoothingConfig, error) {
	trendName, seasonalName := fc.Trend, fc.Seasonal
	if o.Trend != "" {
		trendName = o.Trend
	}
	if o.Seasonal != "" {
		seasonalName = o.Seasonal
	}

	trend, err := forecast.ParseTrendKind(trendName)
	if err != nil {
		return forecast.SmoothingConfig{}, err
	}
	seasonal, err := forecast.ParseSeasonalKind(seasonalName)
	if err != nil {
		return forecast.SmoothingConfig{}, err
	}
	return forecast.SmoothingConfig{
		Trend:          trend,
		Seasonal:       seasonal,
		SeasonalPeriod: fc.SeasonalPeriod,
		Optimize:       fc.Optimize,
		Alpha:          fc.Alpha,
		Beta:           fc.Beta,
		Gamma:          fc.Gamma,
	}, nil
}

func normalizeMetric(metric string) string {
	return strings.ToLower(strings.TrimSpace(metric))
}

// SetMetricSmoothing overrides the smoothing form of one metric.
func (c *RunConfig) SetMetricSmoothing(metric string, sc forecast.SmoothingConfig) {
	if c.MetricSmoothing == nil {
		c.MetricSmoothing = make(map[string]forecast.SmoothingConfig)
	}
	c.MetricSmoothing[normalizeMetric(metric)] = sc
}

// SmoothingFor returns the smoothing form used for metric.
func (c RunConfig) SmoothingFor(metric string) forecast.SmoothingConfig {
	if sc, ok := c.MetricSmoothing[normalizeMetric(metric)]; ok {
		return sc
	}
	return c.Smoothing
}

// Validate checks the run-wide settings. Smoothing forms are validated per
// key by the fit itself.
func (c RunConfig) Validate() error {
	details := map[string]interface{}{}
	if c.Horizon < 1 {
		details["horizon"] = c.Horizon
	}
	if err := c.simulationOptions(0).Validate(); err != nil {
		details["simulation"] = err.Error()
	}
	if c.Workers < 0 {
		details["workers"] = c.Workers
	}
	if err := c.Smoothing.Validate(); err != nil {
		details["smoothing"] = err.Error()
	}
	if c.detectShocks() {
		if _, err := anomaly.GetDetector(c.ShockDetector); err != nil {
			details["shock_detector"] = c.ShockDetector
		} else if c.Shock.Threshold <= 0 {
			details["shock_threshold"] = c.Shock.Threshold
		}
	}
	if len(details) > 0 {
		return NewServiceErrorWithDetails(CodeInvalidConfig, "invalid run configuration", details)
	}
	return nil
}

func (c RunConfig) detectShocks() bool {
	return c.ShockDetector != "" && c.ShockDetector != anomaly.None
}

func (c RunConfig) simulationOptions(seed uint64) montecarlo.Options {
	return montecarlo.Options{Trials: c.Trials, Confidence: c.Confidence, Seed: seed, Workers: 1}
}

// ResultBundle is everything produced for one key. Read-only once returned.
type ResultBundle struct {
	Key        SeriesKey                `json:"key"`
	Fitted     analytics.TimeSeries     `json:"fitted"`
	Forecast   analytics.TimeSeries     `json:"forecast"`
	Labels     []string                 `json:"labels,omitempty"` // quarter label per forecast period
	Evaluation evaluation.Result        `json:"evaluation"`
	Shocks     []anomaly.Shock          `json:"shocks,omitempty"`
	Interval   montecarlo.Interval      `json:"interval"`
	Params     forecast.Params          `json:"params"`
	Smoothing  forecast.SmoothingConfig `json:"smoothing"`
	CacheHit   bool                     `json:"-"`
}

// KeyOutcome is the result-or-error of one key.
type KeyOutcome struct {
	Key      SeriesKey     `json:"key"`
	Bundle   *ResultBundle `json:"bundle,omitempty"`
	Err      error         `json:"-"`
	Code     string        `json:"code"`
	Duration time.Duration `json:"-"`
}

// OK reports whether the key produced a bundle.
func (o *KeyOutcome) OK() bool {
	return o.Err == nil && o.Bundle != nil
}

// RunResult collects the outcomes of one run.
type RunResult struct {
	RunID    string                    `json:"run_id"`
	Outcomes map[SeriesKey]*KeyOutcome `json:"-"`
	Table    map[string][]float64      `json:"table"`
	Duration time.Duration             `json:"-"`
}

// Keys returns the processed keys ordered by group, then metric.
func (r *RunResult) Keys() []SeriesKey {
	keys := slices.Collect(maps.Keys(r.Outcomes))
	slices.SortFunc(keys, func(a, b SeriesKey) int {
		if c := strings.Compare(a.Group, b.Group); c != 0 {
			return c
		}
		return strings.Compare(a.Metric, b.Metric)
	})
	return keys
}

// Failed returns the keys that recorded an error, in Keys order.
func (r *RunResult) Failed() []*KeyOutcome {
	var out []*KeyOutcome
	for _, k := range r.Keys() {
		if o := r.Outcomes[k]; !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Succeeded returns the number of keys with a bundle.
func (r *RunResult) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}
