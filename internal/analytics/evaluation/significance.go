package evaluation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInsufficientSample is returned when a test needs more observations.
var ErrInsufficientSample = errors.New("insufficient sample")

// TestFitBias runs a one-sample two-tailed t-test of mean(residuals) == 0 and
// returns the p-value. Choosing a significance threshold is left to the caller.
//
// A sample with zero spread has no t distribution; its p-value is 1 when the
// mean is exactly zero and 0 otherwise.
func TestFitBias(residuals []float64) (float64, error) {
	n := len(residuals)
	if n < 2 {
		return 0, fmt.Errorf("%w: t-test needs at least 2 residuals, have %d", ErrInsufficientSample, n)
	}

	for i, r := range residuals {
		if !isFinite(r) {
			return 0, fmt.Errorf("%w: residual %d is %v", ErrNonFinite, i, r)
		}
	}

	mean, sd := stat.MeanStdDev(residuals, nil)
	if !isFinite(mean) || !isFinite(sd) {
		return 0, fmt.Errorf("%w: residual mean %v, sd %v", ErrNonFinite, mean, sd)
	}
	if sd == 0 {
		if mean == 0 {
			return 1, nil
		}
		return 0, nil
	}

	t := mean / (sd / math.Sqrt(float64(n)))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
	p := 2 * dist.Survival(math.Abs(t))
	return math.Min(1, math.Max(0, p)), nil
}
