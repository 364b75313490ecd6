package models

// HealthResponse represents health check response
type HealthResponse struct {
	Status       string `json:"status"`
	Time         string `json:"time"`
	Version      string `json:"version"`
	CachedModels int    `json:"cached_models"`
}

// ForecastPoint is one forecast step with its interval
type ForecastPoint struct {
	Period int     `json:"period"`
	Label  string  `json:"label,omitempty"`
	Value  float64 `json:"value"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
}

// FitMetrics are the in-sample accuracy figures of one series
type FitMetrics struct {
	MAE    float64 `json:"mae"`
	RMSE   float64 `json:"rmse"`
	MAPE   float64 `json:"mape"` // percent
	PValue float64 `json:"p_value"`
	N      int     `json:"n"`
}

// ModelInfo describes the fitted smoother
type ModelInfo struct {
	Trend    string  `json:"trend"`
	Seasonal string  `json:"seasonal"`
	Period   int     `json:"seasonal_period"`
	Alpha    float64 `json:"alpha"`
	Beta     float64 `json:"beta"`
	Gamma    float64 `json:"gamma"`
	Cached   bool    `json:"cached"`
}

// SeriesResult is the successful outcome of one series
type SeriesResult struct {
	Metric     string          `json:"metric"`
	Group      string          `json:"group"`
	TableKey   string          `json:"table_key"`
	Forecast   []ForecastPoint `json:"forecast"`
	Fitted     []float64       `json:"fitted"`
	Metrics    FitMetrics      `json:"metrics"`
	Model      ModelInfo       `json:"model"`
	Shocks     []Shock         `json:"shocks,omitempty"`
	Confidence float64         `json:"confidence"`
}

// Shock is an in-sample quarter the fit missed by an outlying margin
type Shock struct {
	Period   int     `json:"period"`
	Label    string  `json:"label,omitempty"`
	Kind     string  `json:"kind"`
	Residual float64 `json:"residual"`
	Score    float64 `json:"score"`
}

// SeriesFailure is the recorded error of one series
type SeriesFailure struct {
	Metric  string `json:"metric"`
	Group   string `json:"group"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ForecastResponse represents the result of POST /v1/forecast
type ForecastResponse struct {
	RunID      string               `json:"run_id"`
	Results    []SeriesResult       `json:"results"`
	Failures   []SeriesFailure      `json:"failures,omitempty"`
	Table      map[string][]float64 `json:"table"`
	DurationMS int64                `json:"duration_ms"`
}

// DefaultsResponse exposes the run defaults applied to requests
type DefaultsResponse struct {
	Horizon         int                          `json:"horizon"`
	Confidence      float64                      `json:"confidence"`
	Trials          int                          `json:"trials"`
	Seed            uint64                       `json:"seed"`
	SeasonalPeriod  int                          `json:"seasonal_period"`
	Trend           string                       `json:"trend"`
	Seasonal        string                       `json:"seasonal"`
	Optimize        bool                         `json:"optimize"`
	ShockDetector   string                       `json:"shock_detector"`
	MetricOverrides map[string]SmoothingOverride `json:"metric_overrides,omitempty"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
