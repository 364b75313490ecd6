package models

import "github.com/soltixdb/seasoncast/internal/analytics"

// SeriesInput is one (metric, group) series of a forecast request.
// Either Values (contiguous from StartPeriod) or Observations is set.
type SeriesInput struct {
	Metric       string                  `json:"metric"`
	Group        string                  `json:"group"`
	StartPeriod  int                     `json:"start_period,omitempty"`
	Values       []float64               `json:"values,omitempty"`
	Observations []analytics.Observation `json:"observations,omitempty"`
}

// SmoothingOverride changes the smoothing form for one metric
type SmoothingOverride struct {
	Trend    string `json:"trend,omitempty"`
	Seasonal string `json:"seasonal,omitempty"`
}

// ForecastRequest represents POST /v1/forecast.
// Unset fields fall back to the service defaults.
//
// Trend and Seasonal replace the default form for every metric. A configured
// per-metric override (e.g. Net Income seasonal=additive) still wins for the
// kind it sets; MetricOverrides in the request win over both. The weights
// apply to every metric.
type ForecastRequest struct {
	Series []SeriesInput `json:"series"`

	StartQuarter string   `json:"start_quarter,omitempty"` // calendar quarter of period 0, e.g. 2015Q1
	Horizon      *int     `json:"horizon,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
	Trials       *int     `json:"trials,omitempty"`
	Seed         *uint64  `json:"seed,omitempty"`

	// ShockDetector overrides the residual shock detector: zscore, iqr or none
	ShockDetector string `json:"shock_detector,omitempty"`

	Trend           string                       `json:"trend,omitempty"`
	Seasonal        string                       `json:"seasonal,omitempty"`
	Optimize        *bool                        `json:"optimize,omitempty"`
	Alpha           *float64                     `json:"alpha,omitempty"`
	Beta            *float64                     `json:"beta,omitempty"`
	Gamma           *float64                     `json:"gamma,omitempty"`
	MetricOverrides map[string]SmoothingOverride `json:"metric_overrides,omitempty"`
}

// TimeSeries converts the input into a validated series.
func (s SeriesInput) TimeSeries() (analytics.TimeSeries, error) {
	if len(s.Observations) > 0 {
		return analytics.NewTimeSeries(s.Observations)
	}
	return analytics.FromValues(s.StartPeriod, s.Values), nil
}
