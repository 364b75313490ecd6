package evaluation

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/soltixdb/seasoncast/internal/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlign_CommonRangeOnly(t *testing.T) {
	actual := analytics.FromValues(0, []float64{10, 20, 30, 40, 50})
	fitted := analytics.FromValues(2, []float64{28, math.NaN(), 55, 60})

	rs := Align(actual, fitted)
	assert.Equal(t, []int{2, 4}, rs.Periods)
	assert.Equal(t, []float64{30, 50}, rs.Actual)
	assert.Equal(t, []float64{28, 55}, rs.Fitted)
	assert.Equal(t, []float64{2, -5}, rs.Values)
}

func TestMetrics_KnownValues(t *testing.T) {
	actual := analytics.FromValues(0, []float64{100, 200, 300, 400})
	fitted := analytics.FromValues(0, []float64{110, 190, 330, 400})

	mae, err := MAE(actual, fitted)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, mae, 1e-12)

	rmse, err := RMSE(actual, fitted)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(275), rmse, 1e-12)

	mape, err := MAPE(actual, fitted)
	require.NoError(t, err)
	assert.InDelta(t, (10.0+5+10+0)/4, mape, 1e-12)
}

func TestMAPE_ZeroActualIsUndefined(t *testing.T) {
	actual := analytics.FromValues(0, []float64{5, 0, 7})
	fitted := analytics.FromValues(0, []float64{4, 1, 7})

	v, err := MAPE(actual, fitted)
	assert.ErrorIs(t, err, ErrUndefinedMetric)
	assert.False(t, math.IsInf(v, 0))
	assert.False(t, math.IsNaN(v))

	// zero outside the aligned range does not matter
	fitted = analytics.FromValues(2, []float64{7})
	_, err = MAPE(actual, fitted)
	assert.NoError(t, err)
}

func TestMetrics_NoOverlap(t *testing.T) {
	actual := analytics.FromValues(0, []float64{1, 2})
	fitted := analytics.FromValues(5, []float64{1, 2})

	_, err := MAE(actual, fitted)
	assert.ErrorIs(t, err, ErrNoOverlap)
	_, err = RMSE(actual, fitted)
	assert.ErrorIs(t, err, ErrNoOverlap)
	_, err = MAPE(actual, fitted)
	assert.ErrorIs(t, err, ErrNoOverlap)
}

func TestMetrics_InfiniteValuesAreRejected(t *testing.T) {
	tests := []struct {
		name           string
		actual, fitted []float64
	}{
		{"infinite actual", []float64{math.Inf(1), 2, 3}, []float64{1, 2, 3}},
		{"infinite fitted", []float64{1, 2, 3}, []float64{1, math.Inf(-1), 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := analytics.FromValues(0, tt.actual)
			fitted := analytics.FromValues(0, tt.fitted)

			for name, metric := range map[string]func(analytics.TimeSeries, analytics.TimeSeries) (float64, error){
				"mae": MAE, "rmse": RMSE, "mape": MAPE,
			} {
				v, err := metric(actual, fitted)
				assert.ErrorIs(t, err, ErrNonFinite, name)
				assert.Zero(t, v, name)
			}
			_, _, err := Evaluate(actual, fitted)
			assert.ErrorIs(t, err, ErrNonFinite)
		})
	}
}

func TestMetrics_RMSENotBelowMAE(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.IntN(30)
		a := make([]float64, n)
		f := make([]float64, n)
		for i := range a {
			a[i] = rng.NormFloat64() * 100
			f[i] = a[i] + rng.NormFloat64()*rng.Float64()*50
		}
		actual := analytics.FromValues(0, a)
		fitted := analytics.FromValues(0, f)

		mae, err := MAE(actual, fitted)
		require.NoError(t, err)
		rmse, err := RMSE(actual, fitted)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, mae, 0.0)
		assert.GreaterOrEqual(t, rmse+1e-12, mae)
	}
}

func TestEvaluate(t *testing.T) {
	actual := analytics.FromValues(0, []float64{100, 102, 98, 101, 99, 103})
	fitted := analytics.FromValues(0, []float64{101, 101, 99, 100, 100, 102})

	res, rs, err := Evaluate(actual, fitted)
	require.NoError(t, err)
	assert.Equal(t, 6, res.N)
	assert.Equal(t, 6, rs.Len())
	assert.InDelta(t, 1.0, res.MAE, 1e-12)
	assert.InDelta(t, 1.0, res.RMSE, 1e-12)
	assert.GreaterOrEqual(t, res.PValue, 0.0)
	assert.LessOrEqual(t, res.PValue, 1.0)
}

func TestEvaluate_PropagatesErrors(t *testing.T) {
	actual := analytics.FromValues(0, []float64{0, 1, 2})
	fitted := analytics.FromValues(0, []float64{1, 1, 2})
	_, _, err := Evaluate(actual, fitted)
	assert.ErrorIs(t, err, ErrUndefinedMetric)

	actual = analytics.FromValues(0, []float64{3})
	fitted = analytics.FromValues(0, []float64{2})
	_, _, err = Evaluate(actual, fitted)
	assert.ErrorIs(t, err, ErrInsufficientSample)
}
