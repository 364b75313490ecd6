package models

import "github.com/soltixdb/seasoncast/internal/services"

// NewForecastResponse flattens a run into the API shape. Results and failures
// follow RunResult.Keys order.
func NewForecastResponse(result *services.RunResult, confidence float64) ForecastResponse {
	resp := ForecastResponse{
		RunID:      result.RunID,
		Results:    []SeriesResult{},
		Table:      result.Table,
		DurationMS: result.Duration.Milliseconds(),
	}

	for _, key := range result.Keys() {
		o := result.Outcomes[key]
		if !o.OK() {
			resp.Failures = append(resp.Failures, SeriesFailure{
				Metric:  key.Metric,
				Group:   key.Group,
				Code:    o.Code,
				Message: o.Err.Error(),
			})
			continue
		}

		b := o.Bundle
		points := make([]ForecastPoint, 0, b.Forecast.Len())
		for i, obs := range b.Forecast.Observations() {
			p := ForecastPoint{
				Period: obs.Period,
				Value:  obs.Value,
				Lower:  b.Interval.Lower[i],
				Upper:  b.Interval.Upper[i],
			}
			if i < len(b.Labels) {
				p.Label = b.Labels[i]
			}
			points = append(points, p)
		}

		var shocks []Shock
		for _, sh := range b.Shocks {
			shocks = append(shocks, Shock{
				Period:   sh.Period,
				Label:    sh.Label,
				Kind:     string(sh.Kind),
				Residual: sh.Residual,
				Score:    sh.Score,
			})
		}

		resp.Results = append(resp.Results, SeriesResult{
			Metric:   key.Metric,
			Group:    key.Group,
			TableKey: key.TableKey(),
			Forecast: points,
			Fitted:   b.Fitted.Values(),
			Metrics: FitMetrics{
				MAE:    b.Evaluation.MAE,
				RMSE:   b.Evaluation.RMSE,
				MAPE:   b.Evaluation.MAPE,
				PValue: b.Evaluation.PValue,
				N:      b.Evaluation.N,
			},
			Model: ModelInfo{
				Trend:    string(b.Smoothing.Trend),
				Seasonal: string(b.Smoothing.Seasonal),
				Period:   b.Smoothing.SeasonalPeriod,
				Alpha:    b.Params.Alpha,
				Beta:     b.Params.Beta,
				Gamma:    b.Params.Gamma,
				Cached:   b.CacheHit,
			},
			Shocks:     shocks,
			Confidence: confidence,
		})
	}
	return resp
}
