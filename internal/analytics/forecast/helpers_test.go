package forecast

import (
	"math"
	"math/rand/v2"

	"github.com/soltixdb/seasoncast/internal/analytics"
)

// Shared quarterly fixtures for the forecast tests.

var (
	additiveFactors       = []float64{-6, 4, 9, -7}
	multiplicativeFactors = []float64{0.9, 1.1, 1.2, 0.8}
)

// linearAdditiveSeries returns y_t = level + slope*t + s[t mod 4] with no noise.
func linearAdditiveSeries(n int, level, slope float64) analytics.TimeSeries {
	values := make([]float64, n)
	for t := range values {
		values[t] = level + slope*float64(t) + additiveFactors[t%len(additiveFactors)]
	}
	return analytics.FromValues(0, values)
}

// linearMultiplicativeSeries returns y_t = (level + slope*t) * f[t mod 4] with no noise.
func linearMultiplicativeSeries(n int, level, slope float64) analytics.TimeSeries {
	values := make([]float64, n)
	for t := range values {
		values[t] = (level + slope*float64(t)) * multiplicativeFactors[t%len(multiplicativeFactors)]
	}
	return analytics.FromValues(0, values)
}

// noisySeries adds seeded gaussian noise to a multiplicative seasonal series.
func noisySeries(n int, seed uint64, sigma float64) analytics.TimeSeries {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	base := linearMultiplicativeSeries(n, 500, 3)
	values := base.Values()
	for i := range values {
		values[i] = math.Max(1, values[i]+rng.NormFloat64()*sigma)
	}
	return analytics.FromValues(0, values)
}

func fixedConfig(trend TrendKind, seasonal SeasonalKind) SmoothingConfig {
	cfg := DefaultSmoothingConfig()
	cfg.Trend = trend
	cfg.Seasonal = seasonal
	cfg.Optimize = false
	return cfg
}
