package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/soltixdb/seasoncast/internal/analytics"
	"github.com/soltixdb/seasoncast/internal/analytics/anomaly"
	"github.com/soltixdb/seasoncast/internal/analytics/forecast"
	"github.com/soltixdb/seasoncast/internal/logging"
	"github.com/soltixdb/seasoncast/internal/metrics"
	"github.com/soltixdb/seasoncast/internal/queue"
)

// quarterlySeries builds n quarters of trend * seasonal factor plus noise
func quarterlySeries(n int, level, slope float64, seed uint64) analytics.TimeSeries {
	factors := []float64{0.92, 1.05, 1.12, 0.91}
	rng := rand.New(rand.NewPCG(seed, 1))
	values := make([]float64, n)
	for t := range values {
		values[t] = (level+slope*float64(t))*factors[t%4] + rng.NormFloat64()*level*0.01
	}
	return analytics.FromValues(0, values)
}

func testRunConfig() RunConfig {
	cfg := DefaultRunConfig()
	cfg.Trials = 1000
	cfg.Workers = 2
	return cfg
}

func newTestService(opts ...ServiceOption) *ForecastService {
	return NewForecastService(logging.NewNop(), opts...)
}

func TestForecastService_PartialFailure(t *testing.T) {
	svc := newTestService()

	good := SeriesKey{Metric: "Passengers", Group: "Legacy"}
	short := SeriesKey{Metric: "Passengers", Group: "Regional"}

	series := map[SeriesKey]analytics.TimeSeries{
		good:  quarterlySeries(40, 1000, 5, 1),
		short: analytics.FromValues(0, []float64{10, 11, 12}),
	}

	result, err := svc.Run(context.Background(), series, testRunConfig())
	if err != nil {
		t.Fatalf("Run returned error for the batch: %v", err)
	}
	if result.RunID == "" {
		t.Error("Expected a run id")
	}

	ok := result.Outcomes[good]
	if ok == nil || !ok.OK() {
		t.Fatalf("Expected bundle for %v, got %+v", good, ok)
	}
	if ok.Code != CodeOK {
		t.Errorf("Expected code OK, got %s", ok.Code)
	}
	b := ok.Bundle
	if b.Forecast.Len() != 8 || b.Interval.Len() != 8 {
		t.Errorf("Expected 8 forecast steps and interval pairs, got %d and %d", b.Forecast.Len(), b.Interval.Len())
	}
	if b.Forecast.FirstPeriod() != 40 {
		t.Errorf("Expected forecast to start at period 40, got %d", b.Forecast.FirstPeriod())
	}
	if b.Fitted.Len() != 40 {
		t.Errorf("Expected 40 fitted values, got %d", b.Fitted.Len())
	}
	if b.Evaluation.RMSE < b.Evaluation.MAE || b.Evaluation.MAE < 0 {
		t.Errorf("Expected RMSE >= MAE >= 0, got RMSE=%v MAE=%v", b.Evaluation.RMSE, b.Evaluation.MAE)
	}
	if p := b.Evaluation.PValue; p < 0 || p > 1 {
		t.Errorf("Expected p-value in [0,1], got %v", p)
	}
	for i := range b.Interval.Lower {
		if b.Interval.Lower[i] > b.Interval.Upper[i] {
			t.Errorf("Step %d: lower %v > upper %v", i, b.Interval.Lower[i], b.Interval.Upper[i])
		}
	}

	bad := result.Outcomes[short]
	if bad == nil || bad.OK() {
		t.Fatalf("Expected recorded failure for %v", short)
	}
	if !errors.Is(bad.Err, forecast.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", bad.Err)
	}
	if bad.Code != CodeInsufficientData {
		t.Errorf("Expected code %s, got %s", CodeInsufficientData, bad.Code)
	}

	if _, exists := result.Table["Legacy_Passengers"]; !exists {
		t.Error("Expected table entry Legacy_Passengers")
	}
	if _, exists := result.Table["Regional_Passengers"]; exists {
		t.Error("Failed key must not appear in table")
	}
	if result.Succeeded() != 1 || len(result.Failed()) != 1 {
		t.Errorf("Expected 1 success and 1 failure, got %d and %d", result.Succeeded(), len(result.Failed()))
	}
}

func TestForecastService_MetricSmoothing(t *testing.T) {
	svc := newTestService()

	income := quarterlySeries(32, 50, 1, 2).Values()
	income[5] = -12 // losses are allowed for additive seasonality

	series := map[SeriesKey]analytics.TimeSeries{
		{Metric: "Net Income", Group: "LCC"}: analytics.FromValues(0, income),
		{Metric: "Revenue", Group: "LCC"}:    analytics.FromValues(0, income),
	}

	result, err := svc.Run(context.Background(), series, testRunConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	ni := result.Outcomes[SeriesKey{Metric: "Net Income", Group: "LCC"}]
	if !ni.OK() {
		t.Fatalf("Expected Net Income to fit with additive seasonality, got %v", ni.Err)
	}
	if ni.Bundle.Smoothing.Seasonal != forecast.SeasonalAdditive {
		t.Errorf("Expected additive seasonality, got %s", ni.Bundle.Smoothing.Seasonal)
	}

	rev := result.Outcomes[SeriesKey{Metric: "Revenue", Group: "LCC"}]
	if rev.Code != CodeNonPositiveSeries {
		t.Errorf("Expected %s for multiplicative fit of negative data, got %s", CodeNonPositiveSeries, rev.Code)
	}
}

func TestForecastService_InvalidKeyAndConfig(t *testing.T) {
	svc := newTestService()

	series := map[SeriesKey]analytics.TimeSeries{
		{Metric: "", Group: "Legacy"}: quarterlySeries(16, 100, 1, 3),
	}
	result, err := svc.Run(context.Background(), series, testRunConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := result.Outcomes[SeriesKey{Group: "Legacy"}].Code; got != CodeInvalidKey {
		t.Errorf("Expected %s, got %s", CodeInvalidKey, got)
	}

	cfg := testRunConfig()
	cfg.Confidence = 1.5
	_, err = svc.Run(context.Background(), series, cfg)
	var se *ServiceError
	if !errors.As(err, &se) || se.Code != CodeInvalidConfig {
		t.Fatalf("Expected ServiceError %s, got %v", CodeInvalidConfig, err)
	}
}

func TestForecastService_DeterministicAcrossWorkers(t *testing.T) {
	series := map[SeriesKey]analytics.TimeSeries{
		{Metric: "Passengers", Group: "Legacy"}:   quarterlySeries(40, 1000, 5, 4),
		{Metric: "Passengers", Group: "LCC"}:      quarterlySeries(40, 600, 8, 5),
		{Metric: "Passengers", Group: "Regional"}: quarterlySeries(40, 200, 1, 6),
	}

	cfg := testRunConfig()
	cfg.Workers = 1
	a, err := newTestService().Run(context.Background(), series, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	cfg.Workers = 3
	b, err := newTestService().Run(context.Background(), series, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for key, oa := range a.Outcomes {
		ob := b.Outcomes[key]
		for i := range oa.Bundle.Interval.Lower {
			if oa.Bundle.Interval.Lower[i] != ob.Bundle.Interval.Lower[i] ||
				oa.Bundle.Interval.Upper[i] != ob.Bundle.Interval.Upper[i] {
				t.Fatalf("%v: interval differs between runs at step %d", key, i)
			}
		}
	}
}

func TestForecastService_QuarterLabels(t *testing.T) {
	cfg := testRunConfig()
	cfg.StartQuarter = &analytics.Quarter{Year: 2015, Q: 1}

	key := SeriesKey{Metric: "Passengers", Group: "Legacy"}
	result, err := newTestService().Run(context.Background(),
		map[SeriesKey]analytics.TimeSeries{key: quarterlySeries(40, 1000, 5, 7)}, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	labels := result.Outcomes[key].Bundle.Labels
	if len(labels) != 8 || labels[0] != "2025Q1" || labels[7] != "2026Q4" {
		t.Errorf("Unexpected labels: %v", labels)
	}
}

func TestForecastService_ModelCacheAndMetrics(t *testing.T) {
	m := metrics.New()
	svc := newTestService(WithMetrics(m), WithModelCache(16))

	key := SeriesKey{Metric: "Revenue", Group: "Legacy"}
	series := map[SeriesKey]analytics.TimeSeries{key: quarterlySeries(40, 5000, 20, 8)}

	first, err := svc.Run(context.Background(), series, testRunConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	second, err := svc.Run(context.Background(), series, testRunConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if first.Outcomes[key].Bundle.CacheHit {
		t.Error("First run must miss the cache")
	}
	if !second.Outcomes[key].Bundle.CacheHit {
		t.Error("Second run must hit the cache")
	}
	if first.Outcomes[key].Bundle.Params != second.Outcomes[key].Bundle.Params {
		t.Error("Cached model must give identical parameters")
	}

	if got := testutil.ToFloat64(m.RunsTotal); got != 2 {
		t.Errorf("Expected 2 runs, got %v", got)
	}
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")); got != 1 {
		t.Errorf("Expected 1 cache hit, got %v", got)
	}
	if got := testutil.ToFloat64(m.KeysTotal.WithLabelValues(CodeOK)); got != 2 {
		t.Errorf("Expected 2 OK keys, got %v", got)
	}
}

func TestForecastService_PublishesEvents(t *testing.T) {
	pub := queue.NewMemoryPublisher()
	svc := newTestService(WithPublisher(pub, func(s string) string { return "airline." + s }))

	series := map[SeriesKey]analytics.TimeSeries{
		{Metric: "Passengers", Group: "Legacy"}:   quarterlySeries(40, 1000, 5, 9),
		{Metric: "Passengers", Group: "Regional"}: analytics.FromValues(0, []float64{1, 2}),
	}
	result, err := svc.Run(context.Background(), series, testRunConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	msgs := pub.Messages()
	if len(msgs) != 2 {
		t.Fatalf("Expected 1 result and 1 run event, got %d", len(msgs))
	}
	if msgs[0].Subject != "airline.results" || msgs[1].Subject != "airline.runs" {
		t.Errorf("Unexpected subjects %s, %s", msgs[0].Subject, msgs[1].Subject)
	}

	var ev struct {
		RunID    string `json:"run_id"`
		TableKey string `json:"table_key"`
		Bundle   struct {
			Forecast analytics.TimeSeries `json:"forecast"`
		} `json:"bundle"`
	}
	if err := json.Unmarshal(msgs[0].Data, &ev); err != nil {
		t.Fatalf("Decode result event: %v", err)
	}
	if ev.RunID != result.RunID || ev.TableKey != "Legacy_Passengers" || ev.Bundle.Forecast.Len() != 8 {
		t.Errorf("Unexpected event: %+v", ev)
	}

	var run RunEvent
	if err := json.Unmarshal(msgs[1].Data, &run); err != nil {
		t.Fatalf("Decode run event: %v", err)
	}
	if run.Keys != 2 || run.Succeeded != 1 || run.Failures["Regional_Passengers"] != CodeInsufficientData {
		t.Errorf("Unexpected run event: %+v", run)
	}
}

func TestKeySeed_IndependentOfOtherKeys(t *testing.T) {
	a := keySeed(42, SeriesKey{Metric: "Revenue", Group: "LCC"})
	b := keySeed(42, SeriesKey{Metric: "Revenue", Group: "LCC"})
	c := keySeed(42, SeriesKey{Metric: "RevenueL", Group: "CC"})
	if a != b {
		t.Error("Same key and seed must derive the same seed")
	}
	if a == c {
		t.Error("Metric/group boundary must be part of the seed")
	}
}

func TestFingerprint(t *testing.T) {
	a := analytics.FromValues(0, []float64{1, 2, 3})
	b := analytics.FromValues(1, []float64{1, 2, 3})
	c := analytics.FromValues(0, []float64{1, 2, math.Nextafter(3, 4)})
	if fingerprint(a) == fingerprint(b) || fingerprint(a) == fingerprint(c) {
		t.Error("Fingerprint must cover periods and exact values")
	}
	if fingerprint(a) != fingerprint(analytics.FromValues(0, []float64{1, 2, 3})) {
		t.Error("Fingerprint must be stable")
	}
}

func TestForecastService_Shocks(t *testing.T) {
	ts := quarterlySeries(40, 1000, 5, 11)
	values := ts.Values()
	values[30] *= 0.5
	key := SeriesKey{Metric: "Passengers", Group: "Legacy"}
	series := map[SeriesKey]analytics.TimeSeries{key: analytics.FromValues(0, values)}

	cfg := testRunConfig()
	cfg.StartQuarter = &analytics.Quarter{Year: 2015, Q: 1}
	result, err := newTestService().Run(context.Background(), series, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var found bool
	for _, s := range result.Outcomes[key].Bundle.Shocks {
		if s.Period == 30 {
			found = true
			if s.Kind != anomaly.KindDrop || s.Label != "2022Q3" || s.Detector != "zscore" {
				t.Errorf("Unexpected shock: %+v", s)
			}
		}
	}
	if !found {
		t.Errorf("Expected a shock at period 30, got %+v", result.Outcomes[key].Bundle.Shocks)
	}

	cfg.ShockDetector = anomaly.None
	result, err = newTestService().Run(context.Background(), series, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if shocks := result.Outcomes[key].Bundle.Shocks; len(shocks) != 0 {
		t.Errorf("Expected no shocks with detection disabled, got %v", shocks)
	}

	cfg.ShockDetector = "median"
	_, err = newTestService().Run(context.Background(), series, cfg)
	var se *ServiceError
	if !errors.As(err, &se) || se.Details["shock_detector"] != "median" {
		t.Errorf("Expected invalid shock detector error, got %v", err)
	}
}
