package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/soltixdb/seasoncast/internal/analytics"
	"github.com/soltixdb/seasoncast/internal/analytics/forecast"
	"github.com/soltixdb/seasoncast/internal/services"
)

func ptr[T any](v T) *T { return &v }

func TestForecastRequest_SeriesMap(t *testing.T) {
	tests := []struct {
		name     string
		series   []SeriesInput
		wantCode string
	}{
		{name: "empty", wantCode: services.CodeInvalidRequest},
		{
			name: "duplicate",
			series: []SeriesInput{
				{Metric: "Passengers", Group: "LCC", Values: []float64{1}},
				{Metric: "Passengers", Group: "LCC", Values: []float64{2}},
			},
			wantCode: services.CodeInvalidRequest,
		},
		{
			name: "unordered observations",
			series: []SeriesInput{{Metric: "Revenue", Group: "LCC", Observations: []analytics.Observation{
				{Period: 3, Value: 1}, {Period: 1, Value: 2},
			}}},
			wantCode: services.CodeInvalidSeries,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ForecastRequest{Series: tt.series}.SeriesMap()
			if code := services.ErrorCode(err); code != tt.wantCode {
				t.Errorf("Expected %s, got %s (%v)", tt.wantCode, code, err)
			}
		})
	}

	series, err := ForecastRequest{Series: []SeriesInput{
		{Metric: "Passengers", Group: "LCC", Values: []float64{1, 2}},
		{Metric: "Passengers", Group: "Legacy", Values: []float64{3}},
	}}.SeriesMap()
	if err != nil {
		t.Fatalf("SeriesMap failed: %v", err)
	}
	if got := series[services.SeriesKey{Metric: "Passengers", Group: "LCC"}].Len(); got != 2 {
		t.Errorf("Expected 2 values for LCC, got %d", got)
	}
}

func TestForecastRequest_RunConfig(t *testing.T) {
	defaults := services.DefaultRunConfig()

	cfg, err := ForecastRequest{
		StartQuarter:    "2015Q1",
		Horizon:         ptr(4),
		Seed:            ptr(uint64(99)),
		Seasonal:        "additive",
		Optimize:        ptr(false),
		Alpha:           ptr(0.4),
		ShockDetector:   "iqr",
		MetricOverrides: map[string]SmoothingOverride{"Revenue": {Trend: "none"}},
	}.RunConfig(defaults)
	if err != nil {
		t.Fatalf("RunConfig failed: %v", err)
	}

	if cfg.Horizon != 4 || cfg.Seed != 99 || cfg.ShockDetector != "iqr" {
		t.Errorf("Overrides not applied: %+v", cfg)
	}
	if cfg.StartQuarter == nil || cfg.StartQuarter.String() != "2015Q1" {
		t.Errorf("Unexpected start quarter: %v", cfg.StartQuarter)
	}
	if cfg.Smoothing.Seasonal != forecast.SeasonalAdditive || cfg.Smoothing.Optimize || cfg.Smoothing.Alpha != 0.4 {
		t.Errorf("Unexpected base smoothing: %+v", cfg.Smoothing)
	}

	rev := cfg.SmoothingFor("revenue")
	if rev.Trend != forecast.TrendNone || rev.Seasonal != forecast.SeasonalAdditive || rev.Alpha != 0.4 {
		t.Errorf("Unexpected revenue smoothing: %+v", rev)
	}
	// default per-metric entries keep the kinds they override and take the request's weights
	ni := cfg.SmoothingFor("Net Income")
	if ni.Seasonal != forecast.SeasonalAdditive || ni.Optimize {
		t.Errorf("Unexpected net income smoothing: %+v", ni)
	}

	if defaults.Smoothing.Alpha == 0.4 && !defaults.Smoothing.Optimize {
		t.Error("Defaults must not be mutated")
	}
	if _, ok := defaults.MetricSmoothing["revenue"]; ok {
		t.Error("Defaults metric map must not be mutated")
	}
}

func TestForecastRequest_RunConfig_FormReachesDefaultOverrides(t *testing.T) {
	defaults := services.DefaultRunConfig()

	cfg, err := ForecastRequest{Trend: "none"}.RunConfig(defaults)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, metric := range []string{"Passengers", "Net Income"} {
		if sc := cfg.SmoothingFor(metric); sc.Trend != forecast.TrendNone {
			t.Errorf("%s: expected trend none, got %v", metric, sc.Trend)
		}
	}
	if sc := cfg.SmoothingFor("Net Income"); sc.Seasonal != forecast.SeasonalAdditive {
		t.Errorf("Net Income must keep its additive seasonality, got %v", sc.Seasonal)
	}
	if sc := cfg.SmoothingFor("Passengers"); sc.Seasonal != defaults.Smoothing.Seasonal {
		t.Errorf("Passengers seasonality changed to %v", sc.Seasonal)
	}

	cfg, err = ForecastRequest{Seasonal: "none"}.RunConfig(defaults)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sc := cfg.SmoothingFor("Net Income"); sc.Seasonal != forecast.SeasonalAdditive {
		t.Errorf("Net Income override must win over the request seasonal, got %v", sc.Seasonal)
	}
	if sc := cfg.SmoothingFor("Revenue"); sc.Seasonal != forecast.SeasonalNone {
		t.Errorf("Revenue: expected seasonal none, got %v", sc.Seasonal)
	}
	if defaults.SmoothingFor("Net Income").Trend != forecast.TrendAdditive {
		t.Error("Defaults must not be mutated")
	}
}

func TestForecastRequest_RunConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		req   ForecastRequest
		field string
	}{
		{"horizon too large", ForecastRequest{Horizon: ptr(1000)}, "horizon"},
		{"too few trials", ForecastRequest{Trials: ptr(10)}, "trials"},
		{"bad quarter", ForecastRequest{StartQuarter: "2015Q5"}, "start_quarter"},
		{"bad trend", ForecastRequest{Trend: "quadratic"}, "smoothing"},
		{"empty override name", ForecastRequest{MetricOverrides: map[string]SmoothingOverride{" ": {}}}, "metric_overrides"},
		{"bad confidence", ForecastRequest{Confidence: ptr(1.5)}, "simulation"},
		{"bad shock detector", ForecastRequest{ShockDetector: "median"}, "shock_detector"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.RunConfig(services.DefaultRunConfig())
			var se *services.ServiceError
			if !errors.As(err, &se) {
				t.Fatalf("Expected ServiceError, got %v", err)
			}
			if se.Code != services.CodeInvalidConfig {
				t.Errorf("Expected %s, got %s", services.CodeInvalidConfig, se.Code)
			}
			if _, ok := se.Details[tt.field]; !ok {
				t.Errorf("Expected details for %s, got %v", tt.field, se.Details)
			}
		})
	}
}

func TestNewErrorDetail(t *testing.T) {
	d := NewErrorDetail(services.NewServiceErrorWithDetails(services.CodeInvalidRequest, "bad", map[string]interface{}{"index": 2}))
	if d.Code != services.CodeInvalidRequest || d.Message != "bad" || d.Details["index"] != 2 {
		t.Errorf("Unexpected detail: %+v", d)
	}

	d = NewErrorDetail(fmt.Errorf("wrapped: %w", forecast.ErrInsufficientData))
	if d.Code != services.CodeInsufficientData {
		t.Errorf("Expected %s, got %s", services.CodeInsufficientData, d.Code)
	}
}
