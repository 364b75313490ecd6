// Package forecast implements Holt-Winters triple exponential smoothing for
// series with a single fixed seasonal period.
package forecast

import (
	"errors"
	"fmt"
	"strings"

	"github.com/soltixdb/seasoncast/internal/analytics"
)

var (
	// ErrInsufficientData is returned when the series is shorter than two seasonal cycles.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrNonPositiveSeries is returned for multiplicative seasonality on values <= 0.
	ErrNonPositiveSeries = errors.New("non-positive series")
	// ErrNonFiniteValue is returned when the series contains NaN or Inf.
	ErrNonFiniteValue = errors.New("non-finite value in series")
	// ErrIrregularSeries is returned when periods are not contiguous.
	ErrIrregularSeries = errors.New("series periods are not contiguous")
	// ErrInvalidConfig is returned for an unusable SmoothingConfig.
	ErrInvalidConfig = errors.New("invalid smoothing config")
	// ErrInvalidHorizon is returned when a forecast horizon is not positive.
	ErrInvalidHorizon = errors.New("invalid forecast horizon")
	// ErrDiverged is returned when the recurrences produce non-finite states.
	ErrDiverged = errors.New("smoothing diverged")
)

// TrendKind selects the trend recurrence.
type TrendKind string

const (
	TrendNone     TrendKind = "none"
	TrendAdditive TrendKind = "additive"
)

// SeasonalKind selects the seasonal recurrence.
type SeasonalKind string

const (
	SeasonalNone           SeasonalKind = "none"
	SeasonalAdditive       SeasonalKind = "additive"
	SeasonalMultiplicative SeasonalKind = "multiplicative"
)

// ParseTrendKind maps config strings ("add", "additive", "none", "") to a TrendKind.
func ParseTrendKind(s string) (TrendKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "add", "additive":
		return TrendAdditive, nil
	case "none", "":
		return TrendNone, nil
	default:
		return "", fmt.Errorf("%w: unknown trend %q", ErrInvalidConfig, s)
	}
}

// ParseSeasonalKind maps config strings ("add", "mul", "multiplicative", ...) to a SeasonalKind.
func ParseSeasonalKind(s string) (SeasonalKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "add", "additive":
		return SeasonalAdditive, nil
	case "mul", "multiplicative":
		return SeasonalMultiplicative, nil
	case "none", "":
		return SeasonalNone, nil
	default:
		return "", fmt.Errorf("%w: unknown seasonal %q", ErrInvalidConfig, s)
	}
}

// SmoothingConfig determines which recurrences apply and how parameters are chosen
type SmoothingConfig struct {
	Trend          TrendKind    `json:"trend"`
	Seasonal       SeasonalKind `json:"seasonal"`
	SeasonalPeriod int          `json:"seasonal_period"` // Observations per cycle (4 for quarterly)
	Optimize       bool         `json:"optimize"`        // Choose alpha/beta/gamma by minimizing SSE

	// Fixed smoothing weights when Optimize is false; starting point otherwise.
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// DefaultSmoothingConfig returns additive trend, multiplicative quarterly seasonality
func DefaultSmoothingConfig() SmoothingConfig {
	return SmoothingConfig{
		Trend:          TrendAdditive,
		Seasonal:       SeasonalMultiplicative,
		SeasonalPeriod: analytics.QuartersPerYear,
		Optimize:       true,
		Alpha:          0.3,
		Beta:           0.1,
		Gamma:          0.1,
	}
}

// Validate checks kinds, period and (for fixed fits) the smoothing weights
func (c SmoothingConfig) Validate() error {
	switch c.Trend {
	case TrendNone, TrendAdditive:
	default:
		return fmt.Errorf("%w: unknown trend %q", ErrInvalidConfig, c.Trend)
	}
	switch c.Seasonal {
	case SeasonalNone, SeasonalAdditive, SeasonalMultiplicative:
	default:
		return fmt.Errorf("%w: unknown seasonal %q", ErrInvalidConfig, c.Seasonal)
	}
	if c.SeasonalPeriod <= 0 {
		return fmt.Errorf("%w: seasonal_period must be positive, got %d", ErrInvalidConfig, c.SeasonalPeriod)
	}
	if c.Optimize {
		return nil
	}
	if !unit(c.Alpha) {
		return fmt.Errorf("%w: alpha must be in [0,1], got %v", ErrInvalidConfig, c.Alpha)
	}
	if c.Trend == TrendAdditive && !unit(c.Beta) {
		return fmt.Errorf("%w: beta must be in [0,1], got %v", ErrInvalidConfig, c.Beta)
	}
	if c.Seasonal != SeasonalNone && !unit(c.Gamma) {
		return fmt.Errorf("%w: gamma must be in [0,1], got %v", ErrInvalidConfig, c.Gamma)
	}
	return nil
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}

// Params are the smoothing weights of a fitted model.
type Params struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// FittedModel is the immutable result of one Fit call.
type FittedModel struct {
	config SmoothingConfig
	params Params

	initialLevel    float64
	initialTrend    float64
	initialSeasonal []float64

	level    []float64
	trend    []float64
	seasonal []float64

	fitted analytics.TimeSeries
	sse    float64
}

// Config returns the smoothing config the model was fitted with
func (m *FittedModel) Config() SmoothingConfig {
	return m.config
}

// Params returns the estimated (or fixed) smoothing weights
func (m *FittedModel) Params() Params {
	return m.params
}

// SSE returns the in-sample sum of squared one-step errors
func (m *FittedModel) SSE() float64 {
	return m.sse
}

// Fitted returns the one-step-ahead fitted values on the input periods
func (m *FittedModel) Fitted() analytics.TimeSeries {
	return m.fitted
}

// Levels returns a copy of the level component, one state per observation
func (m *FittedModel) Levels() []float64 {
	return copyFloats(m.level)
}

// Trends returns a copy of the trend component
func (m *FittedModel) Trends() []float64 {
	return copyFloats(m.trend)
}

// Seasonals returns a copy of the seasonal component
func (m *FittedModel) Seasonals() []float64 {
	return copyFloats(m.seasonal)
}

// InitialState returns the level, trend and seasonal factors the recurrences started from
func (m *FittedModel) InitialState() (level, trend float64, seasonal []float64) {
	return m.initialLevel, m.initialTrend, copyFloats(m.initialSeasonal)
}

func copyFloats(src []float64) []float64 {
	dst := make([]float64, len(src))
	copy(dst, src)
	return dst
}
