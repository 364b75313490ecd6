package models

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/soltixdb/seasoncast/internal/analytics"
	"github.com/soltixdb/seasoncast/internal/analytics/forecast"
	"github.com/soltixdb/seasoncast/internal/config"
	"github.com/soltixdb/seasoncast/internal/services"
	"github.com/soltixdb/seasoncast/internal/utils"
)

// SeriesMap validates the request's series and keys them by (metric, group).
func (r ForecastRequest) SeriesMap() (map[services.SeriesKey]analytics.TimeSeries, error) {
	if len(r.Series) == 0 {
		return nil, services.NewServiceError(services.CodeInvalidRequest, "series is required")
	}
	if len(r.Series) > utils.MaxSeriesPerRequest {
		return nil, services.NewServiceErrorWithDetails(services.CodeInvalidRequest,
			"too many series in one request",
			map[string]interface{}{"count": len(r.Series), "max": utils.MaxSeriesPerRequest})
	}

	series := make(map[services.SeriesKey]analytics.TimeSeries, len(r.Series))
	for i, in := range r.Series {
		key := services.SeriesKey{Metric: in.Metric, Group: in.Group}
		if _, dup := series[key]; dup {
			return nil, services.NewServiceErrorWithDetails(services.CodeInvalidRequest,
				"duplicate series",
				map[string]interface{}{"index": i, "metric": in.Metric, "group": in.Group})
		}
		ts, err := in.TimeSeries()
		if err != nil {
			return nil, services.NewServiceErrorWithDetails(services.CodeInvalidSeries,
				err.Error(),
				map[string]interface{}{"index": i, "metric": in.Metric, "group": in.Group})
		}
		series[key] = ts
	}
	return series, nil
}

// RunConfig layers the request's overrides on defaults and validates the result.
func (r ForecastRequest) RunConfig(defaults services.RunConfig) (services.RunConfig, error) {
	cfg := defaults
	cfg.MetricSmoothing = maps.Clone(defaults.MetricSmoothing)

	invalid := func(field string, value interface{}, reason string) error {
		return services.NewServiceErrorWithDetails(services.CodeInvalidConfig,
			fmt.Sprintf("invalid %s: %s", field, reason),
			map[string]interface{}{field: value})
	}

	if r.Horizon != nil {
		if *r.Horizon < 1 || *r.Horizon > utils.MaxHorizon {
			return cfg, invalid("horizon", *r.Horizon, fmt.Sprintf("must be in [1,%d]", utils.MaxHorizon))
		}
		cfg.Horizon = *r.Horizon
	}
	if r.Confidence != nil {
		cfg.Confidence = *r.Confidence
	}
	if r.Trials != nil {
		if *r.Trials < config.MinTrials || *r.Trials > utils.MaxTrials {
			return cfg, invalid("trials", *r.Trials, fmt.Sprintf("must be in [%d,%d]", config.MinTrials, utils.MaxTrials))
		}
		cfg.Trials = *r.Trials
	}
	if r.Seed != nil {
		cfg.Seed = *r.Seed
	}
	if r.ShockDetector != "" {
		cfg.ShockDetector = r.ShockDetector
	}
	if r.StartQuarter != "" {
		q, err := analytics.ParseQuarter(r.StartQuarter)
		if err != nil {
			return cfg, invalid("start_quarter", r.StartQuarter, err.Error())
		}
		cfg.StartQuarter = &q
	}

	base, err := applyForm(cfg.Smoothing, r.Trend, r.Seasonal)
	if err != nil {
		return cfg, invalid("smoothing", r.Trend+"/"+r.Seasonal, err.Error())
	}
	applyWeights := func(sc forecast.SmoothingConfig) forecast.SmoothingConfig {
		if r.Optimize != nil {
			sc.Optimize = *r.Optimize
		}
		if r.Alpha != nil {
			sc.Alpha = *r.Alpha
		}
		if r.Beta != nil {
			sc.Beta = *r.Beta
		}
		if r.Gamma != nil {
			sc.Gamma = *r.Gamma
		}
		return sc
	}
	cfg.Smoothing = applyWeights(base)
	for metric, sc := range cfg.MetricSmoothing {
		// a default entry keeps only the kinds it sets apart from the default base
		if sc.Trend == defaults.Smoothing.Trend {
			sc.Trend = base.Trend
		}
		if sc.Seasonal == defaults.Smoothing.Seasonal {
			sc.Seasonal = base.Seasonal
		}
		cfg.MetricSmoothing[metric] = applyWeights(sc)
	}

	for metric, o := range r.MetricOverrides {
		if strings.TrimSpace(metric) == "" {
			return cfg, invalid("metric_overrides", metric, "metric name is empty")
		}
		sc, err := applyForm(cfg.Smoothing, o.Trend, o.Seasonal)
		if err != nil {
			return cfg, invalid("metric_overrides", metric, err.Error())
		}
		cfg.SetMetricSmoothing(metric, sc)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyForm replaces trend and seasonal kinds when set
func applyForm(sc forecast.SmoothingConfig, trend, seasonal string) (forecast.SmoothingConfig, error) {
	if trend != "" {
		k, err := forecast.ParseTrendKind(trend)
		if err != nil {
			return sc, err
		}
		sc.Trend = k
	}
	if seasonal != "" {
		k, err := forecast.ParseSeasonalKind(seasonal)
		if err != nil {
			return sc, err
		}
		sc.Seasonal = k
	}
	return sc, nil
}

// NewErrorDetail describes err for an error body. Errors without a service
// code are reported under the code of their sentinel.
func NewErrorDetail(err error) ErrorDetail {
	var se *services.ServiceError
	if !errors.As(err, &se) {
		se = services.NewServiceError(services.ErrorCode(err), err.Error())
	}
	return ErrorDetail{
		Code:    se.Code,
		Message: se.Message,
		Details: se.Details,
	}
}
