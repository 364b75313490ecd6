package forecast

import (
	"fmt"
	"math"

	"github.com/soltixdb/seasoncast/internal/analytics"
	"gonum.org/v1/gonum/stat"
)

// initialState holds the states at t = -1 from which the recurrences start.
type initialState struct {
	level    float64
	trend    float64
	seasonal []float64 // s_{-m} .. s_{-1}
}

// smoothed holds the output of one pass of the recurrences.
type smoothed struct {
	level    []float64
	trend    []float64
	seasonal []float64 // len n+m; seasonal[t+m] is the state after observation t
	fitted   []float64
	sse      float64
}

// Fit estimates a Holt-Winters model for the series.
func Fit(series analytics.TimeSeries, cfg SmoothingConfig) (*FittedModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := series.Len()
	m := cfg.SeasonalPeriod
	if n < 2*m {
		return nil, fmt.Errorf("%w: need at least %d observations (two seasonal cycles), have %d",
			ErrInsufficientData, 2*m, n)
	}
	if !series.IsContiguous() {
		return nil, ErrIrregularSeries
	}

	y := series.Values()
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: position %d", ErrNonFiniteValue, i)
		}
		if cfg.Seasonal == SeasonalMultiplicative && v <= 0 {
			return nil, fmt.Errorf("%w: multiplicative seasonality requires values > 0, got %v at period %d",
				ErrNonPositiveSeries, v, series.At(i).Period)
		}
	}

	start := initialize(y, cfg)

	params := Params{Alpha: cfg.Alpha, Beta: cfg.Beta, Gamma: cfg.Gamma}
	if cfg.Optimize {
		var err error
		params, err = optimizeParams(y, start, cfg)
		if err != nil {
			return nil, err
		}
	}
	if cfg.Trend == TrendNone {
		params.Beta = 0
	}
	if cfg.Seasonal == SeasonalNone {
		params.Gamma = 0
	}

	s := smooth(y, start, params, cfg)
	if math.IsNaN(s.sse) || math.IsInf(s.sse, 0) {
		return nil, fmt.Errorf("%w: alpha=%.4f beta=%.4f gamma=%.4f", ErrDiverged, params.Alpha, params.Beta, params.Gamma)
	}

	return &FittedModel{
		config:          cfg,
		params:          params,
		initialLevel:    start.level,
		initialTrend:    start.trend,
		initialSeasonal: start.seasonal,
		level:           s.level,
		trend:           s.trend,
		seasonal:        s.seasonal[m:],
		fitted:          analytics.FromValues(series.FirstPeriod(), s.fitted),
		sse:             s.sse,
	}, nil
}

// Forecast extrapolates the last level and trend linearly and cycles the
// last m seasonal factors. The result starts one period after the input.
func (m *FittedModel) Forecast(horizon int) (analytics.TimeSeries, error) {
	if horizon <= 0 {
		return analytics.TimeSeries{}, fmt.Errorf("%w: %d", ErrInvalidHorizon, horizon)
	}

	n := len(m.level)
	period := m.config.SeasonalPeriod
	lastLevel := m.level[n-1]
	lastTrend := m.trend[n-1]

	values := make([]float64, horizon)
	for k := 1; k <= horizon; k++ {
		base := lastLevel + float64(k)*lastTrend
		s := m.seasonal[n-period+(k-1)%period]
		switch m.config.Seasonal {
		case SeasonalMultiplicative:
			values[k-1] = base * s
		default:
			values[k-1] = base + s
		}
	}

	return analytics.FromValues(m.fitted.LastPeriod()+1, values), nil
}

// initialize estimates level, trend and seasonal factors from the first two
// cycles: cycle means give the trend, the level is back-dated to t = -1, and
// each seasonal factor averages the detrended observations of its position.
func initialize(y []float64, cfg SmoothingConfig) initialState {
	m := cfg.SeasonalPeriod
	c1 := stat.Mean(y[:m], nil)
	c2 := stat.Mean(y[m:2*m], nil)

	trend := 0.0
	if cfg.Trend == TrendAdditive {
		trend = (c2 - c1) / float64(m)
	}
	level := c1 - trend*float64(m+1)/2

	seasonal := make([]float64, m)
	switch cfg.Seasonal {
	case SeasonalAdditive:
		for i := 0; i < m; i++ {
			d1 := y[i] - (level + float64(i+1)*trend)
			d2 := y[i+m] - (level + float64(i+m+1)*trend)
			seasonal[i] = (d1 + d2) / 2
		}
		shift := stat.Mean(seasonal, nil)
		for i := range seasonal {
			seasonal[i] -= shift
		}
	case SeasonalMultiplicative:
		for i := 0; i < m; i++ {
			r1 := ratio(y[i], level+float64(i+1)*trend)
			r2 := ratio(y[i+m], level+float64(i+m+1)*trend)
			seasonal[i] = (r1 + r2) / 2
		}
		scale := stat.Mean(seasonal, nil)
		if scale != 0 {
			for i := range seasonal {
				seasonal[i] /= scale
			}
		}
	}

	return initialState{level: level, trend: trend, seasonal: seasonal}
}

// smooth runs the level/trend/seasonal recurrences once over y.
func smooth(y []float64, start initialState, p Params, cfg SmoothingConfig) smoothed {
	n := len(y)
	m := cfg.SeasonalPeriod

	out := smoothed{
		level:    make([]float64, n),
		trend:    make([]float64, n),
		seasonal: make([]float64, n+m),
		fitted:   make([]float64, n),
	}
	copy(out.seasonal, start.seasonal)

	prevLevel := start.level
	prevTrend := start.trend
	alpha, beta, gamma := p.Alpha, p.Beta, p.Gamma

	for t := 0; t < n; t++ {
		s := out.seasonal[t] // s_{t-m}
		base := prevLevel + prevTrend

		var level float64
		switch cfg.Seasonal {
		case SeasonalMultiplicative:
			out.fitted[t] = base * s
			level = alpha*(y[t]/s) + (1-alpha)*base
		default:
			out.fitted[t] = base + s
			level = alpha*(y[t]-s) + (1-alpha)*base
		}

		trend := 0.0
		if cfg.Trend == TrendAdditive {
			trend = beta*(level-prevLevel) + (1-beta)*prevTrend
		}

		switch cfg.Seasonal {
		case SeasonalAdditive:
			out.seasonal[t+m] = gamma*(y[t]-level) + (1-gamma)*s
		case SeasonalMultiplicative:
			out.seasonal[t+m] = gamma*(y[t]/level) + (1-gamma)*s
		default:
			out.seasonal[t+m] = s
		}

		e := y[t] - out.fitted[t]
		out.sse += e * e

		out.level[t] = level
		out.trend[t] = trend
		prevLevel, prevTrend = level, trend
	}

	return out
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 1
	}
	return a / b
}
