package montecarlo

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResiduals(n int, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, 0))
	r := make([]float64, n)
	for i := range r {
		// right-skewed so the forecast is not the interval midpoint
		r[i] = rng.ExpFloat64()*10 - 5
	}
	return r
}

var testForecast = []float64{100, 110, 95, 120, 105, 115, 100, 125}

func TestSimulate_ShapeAndOrder(t *testing.T) {
	opts := DefaultOptions()
	iv, err := Simulate(testForecast, testResiduals(36, 1), opts)
	require.NoError(t, err)

	assert.Equal(t, len(testForecast), iv.Len())
	assert.Len(t, iv.Upper, len(testForecast))
	assert.Equal(t, opts.Trials, iv.Trials)
	assert.Equal(t, opts.Confidence, iv.Confidence)
	for k := range testForecast {
		assert.LessOrEqual(t, iv.Lower[k], iv.Upper[k], "step %d", k)
	}
}

func TestSimulate_HigherConfidenceIsWider(t *testing.T) {
	residuals := testResiduals(40, 2)

	var prev Interval
	for i, c := range []float64{0.5, 0.8, 0.9, 0.95, 0.99} {
		opts := DefaultOptions()
		opts.Confidence = c
		iv, err := Simulate(testForecast, residuals, opts)
		require.NoError(t, err)

		if i > 0 {
			for k := range testForecast {
				assert.LessOrEqual(t, iv.Lower[k], prev.Lower[k], "c=%v step %d", c, k)
				assert.GreaterOrEqual(t, iv.Upper[k], prev.Upper[k], "c=%v step %d", c, k)
			}
		}
		prev = iv
	}
}

func TestSimulate_BoundsWithinResidualRange(t *testing.T) {
	residuals := []float64{-2, -1, 0, 1, 3}
	iv, err := Simulate(testForecast, residuals, DefaultOptions())
	require.NoError(t, err)

	for k, f := range testForecast {
		assert.GreaterOrEqual(t, iv.Lower[k], f-2)
		assert.LessOrEqual(t, iv.Upper[k], f+3)
	}
}

func TestSimulate_SingleResidualCollapses(t *testing.T) {
	iv, err := Simulate([]float64{10, 20}, []float64{1.5}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []float64{11.5, 21.5}, iv.Lower)
	assert.Equal(t, []float64{11.5, 21.5}, iv.Upper)
}

func TestSimulate_DeterministicBySeed(t *testing.T) {
	residuals := testResiduals(30, 3)
	opts := DefaultOptions()
	opts.Seed = 77

	a, err := Simulate(testForecast, residuals, opts)
	require.NoError(t, err)
	b, err := Simulate(testForecast, residuals, opts)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	opts.Workers = 4
	c, err := Simulate(testForecast, residuals, opts)
	require.NoError(t, err)
	assert.Equal(t, a, c, "worker count must not change the result")

	opts.Seed = 78
	d, err := Simulate(testForecast, residuals, opts)
	require.NoError(t, err)
	assert.NotEqual(t, a.Lower, d.Lower)
}

func TestSimulate_Errors(t *testing.T) {
	_, err := Simulate(testForecast, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyResidualSet)

	tests := []struct {
		name string
		opts Options
	}{
		{"zero trials", Options{Trials: 0, Confidence: 0.95}},
		{"confidence zero", Options{Trials: 100, Confidence: 0}},
		{"confidence one", Options{Trials: 100, Confidence: 1}},
		{"confidence above one", Options{Trials: 100, Confidence: 1.2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Simulate(testForecast, []float64{1, 2}, tt.opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func TestSimulate_EmptyForecast(t *testing.T) {
	iv, err := Simulate(nil, []float64{1}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, iv.Len())
}

func BenchmarkSimulate(b *testing.B) {
	residuals := testResiduals(36, 5)
	opts := DefaultOptions()
	opts.Trials = 10000

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Simulate(testForecast, residuals, opts); err != nil {
			b.Fatal(err)
		}
	}
}
