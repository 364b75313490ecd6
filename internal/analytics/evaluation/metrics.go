// Package evaluation scores a fitted model against the series it was fitted on.
package evaluation

import (
	"errors"
	"fmt"
	"math"

	"github.com/soltixdb/seasoncast/internal/analytics"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrUndefinedMetric is returned by MAPE when an aligned actual value is zero.
	ErrUndefinedMetric = errors.New("metric undefined")
	// ErrNoOverlap is returned when actual and fitted share no defined period.
	ErrNoOverlap = errors.New("actual and fitted values do not overlap")
	// ErrNonFinite is returned when an aligned value or residual is infinite.
	ErrNonFinite = errors.New("non-finite value")
)

// ResidualSet holds actual - fitted on the periods where both are defined.
type ResidualSet struct {
	Periods []int     `json:"periods"`
	Actual  []float64 `json:"actual"`
	Fitted  []float64 `json:"fitted"`
	Values  []float64 `json:"values"`
}

// Len returns the number of aligned points.
func (r ResidualSet) Len() int {
	return len(r.Values)
}

// Align pairs actual and fitted values by period. Periods missing from either
// side, or NaN on either side, are dropped. Infinite values are kept and make
// every metric fail with ErrNonFinite.
func Align(actual, fitted analytics.TimeSeries) ResidualSet {
	var rs ResidualSet
	for i := 0; i < actual.Len(); i++ {
		obs := actual.At(i)
		f, ok := fitted.Lookup(obs.Period)
		if !ok || math.IsNaN(obs.Value) || math.IsNaN(f) {
			continue
		}
		rs.Periods = append(rs.Periods, obs.Period)
		rs.Actual = append(rs.Actual, obs.Value)
		rs.Fitted = append(rs.Fitted, f)
		rs.Values = append(rs.Values, obs.Value-f)
	}
	return rs
}

// MAE is the mean absolute error over the aligned range.
func MAE(actual, fitted analytics.TimeSeries) (float64, error) {
	return Align(actual, fitted).MAE()
}

// RMSE is the root mean squared error over the aligned range.
func RMSE(actual, fitted analytics.TimeSeries) (float64, error) {
	return Align(actual, fitted).RMSE()
}

// MAPE is the mean absolute percentage error over the aligned range, in percent.
func MAPE(actual, fitted analytics.TimeSeries) (float64, error) {
	return Align(actual, fitted).MAPE()
}

// check rejects an empty set and any non-finite actual, fitted or residual.
func (r ResidualSet) check() error {
	if r.Len() == 0 {
		return ErrNoOverlap
	}
	for i, e := range r.Values {
		if !isFinite(e) || (i < len(r.Actual) && !isFinite(r.Actual[i])) || (i < len(r.Fitted) && !isFinite(r.Fitted[i])) {
			return fmt.Errorf("%w: residual at period %d", ErrNonFinite, r.periodAt(i))
		}
	}
	return nil
}

func (r ResidualSet) periodAt(i int) int {
	if i < len(r.Periods) {
		return r.Periods[i]
	}
	return i
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (r ResidualSet) MAE() (float64, error) {
	if err := r.check(); err != nil {
		return 0, err
	}
	abs := make([]float64, r.Len())
	for i, e := range r.Values {
		abs[i] = math.Abs(e)
	}
	return stat.Mean(abs, nil), nil
}

func (r ResidualSet) RMSE() (float64, error) {
	if err := r.check(); err != nil {
		return 0, err
	}
	return floats.Norm(r.Values, 2) / math.Sqrt(float64(r.Len())), nil
}

func (r ResidualSet) MAPE() (float64, error) {
	if err := r.check(); err != nil {
		return 0, err
	}
	sum := 0.0
	for i, a := range r.Actual {
		if a == 0 {
			return 0, fmt.Errorf("%w: MAPE with zero actual at period %d", ErrUndefinedMetric, r.Periods[i])
		}
		sum += math.Abs(r.Values[i] / a)
	}
	return sum / float64(r.Len()) * 100, nil
}

// Result is the scalar evaluation of one fit.
type Result struct {
	MAE    float64 `json:"mae"`
	RMSE   float64 `json:"rmse"`
	MAPE   float64 `json:"mape"`
	PValue float64 `json:"p_value"`
	N      int     `json:"n"`
}

// Evaluate aligns actual and fitted, then computes the error metrics and the
// bias p-value. The residual set is returned for interval simulation.
func Evaluate(actual, fitted analytics.TimeSeries) (Result, ResidualSet, error) {
	rs := Align(actual, fitted)

	mae, err := rs.MAE()
	if err != nil {
		return Result{}, rs, err
	}
	rmse, err := rs.RMSE()
	if err != nil {
		return Result{}, rs, err
	}
	mape, err := rs.MAPE()
	if err != nil {
		return Result{}, rs, err
	}
	p, err := TestFitBias(rs.Values)
	if err != nil {
		return Result{}, rs, err
	}

	return Result{MAE: mae, RMSE: rmse, MAPE: mape, PValue: p, N: rs.Len()}, rs, nil
}
