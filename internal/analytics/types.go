// Package analytics provides the shared time-series types used by the
// forecasting, evaluation and simulation packages.
package analytics

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrUnorderedPeriods is returned when observations are not strictly increasing by period.
var ErrUnorderedPeriods = errors.New("periods must be strictly increasing")

// Observation is a single value at a period index.
// A NaN value marks a position where the value is undefined.
type Observation struct {
	Period int     `json:"period"`
	Value  float64 `json:"value"`
}

// TimeSeries is an immutable, period-ordered sequence of observations.
// The zero value is an empty series.
type TimeSeries struct {
	points []Observation
}

// NewTimeSeries validates ordering and copies the observations.
func NewTimeSeries(points []Observation) (TimeSeries, error) {
	for i := 1; i < len(points); i++ {
		if points[i].Period <= points[i-1].Period {
			return TimeSeries{}, fmt.Errorf("%w: period %d follows %d at position %d",
				ErrUnorderedPeriods, points[i].Period, points[i-1].Period, i)
		}
	}
	cp := make([]Observation, len(points))
	copy(cp, points)
	return TimeSeries{points: cp}, nil
}

// FromValues builds a contiguous series whose first value sits at period start.
func FromValues(start int, values []float64) TimeSeries {
	points := make([]Observation, len(values))
	for i, v := range values {
		points[i] = Observation{Period: start + i, Value: v}
	}
	return TimeSeries{points: points}
}

// Len returns the number of observations
func (ts TimeSeries) Len() int {
	return len(ts.points)
}

// At returns the i-th observation
func (ts TimeSeries) At(i int) Observation {
	return ts.points[i]
}

// Observations returns a copy of the underlying observations
func (ts TimeSeries) Observations() []Observation {
	cp := make([]Observation, len(ts.points))
	copy(cp, ts.points)
	return cp
}

// Values extracts just the values from the time series
func (ts TimeSeries) Values() []float64 {
	values := make([]float64, len(ts.points))
	for i, p := range ts.points {
		values[i] = p.Value
	}
	return values
}

// Periods extracts just the period indices from the time series
func (ts TimeSeries) Periods() []int {
	periods := make([]int, len(ts.points))
	for i, p := range ts.points {
		periods[i] = p.Period
	}
	return periods
}

// FirstPeriod returns the period of the first observation, or 0 for an empty series.
func (ts TimeSeries) FirstPeriod() int {
	if len(ts.points) == 0 {
		return 0
	}
	return ts.points[0].Period
}

// LastPeriod returns the period of the last observation, or -1 for an empty series.
func (ts TimeSeries) LastPeriod() int {
	if len(ts.points) == 0 {
		return -1
	}
	return ts.points[len(ts.points)-1].Period
}

// IsContiguous reports whether periods advance by exactly one.
func (ts TimeSeries) IsContiguous() bool {
	for i := 1; i < len(ts.points); i++ {
		if ts.points[i].Period != ts.points[i-1].Period+1 {
			return false
		}
	}
	return true
}

// Lookup returns the value at period p.
func (ts TimeSeries) Lookup(p int) (float64, bool) {
	lo, hi := 0, len(ts.points)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case ts.points[mid].Period == p:
			return ts.points[mid].Value, true
		case ts.points[mid].Period < p:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0, false
}

// Mean calculates the mean of all defined values
func (ts TimeSeries) Mean() float64 {
	sum := 0.0
	count := 0
	for _, p := range ts.points {
		if math.IsNaN(p.Value) {
			continue
		}
		sum += p.Value
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// MarshalJSON encodes the series as an array of observations.
func (ts TimeSeries) MarshalJSON() ([]byte, error) {
	if ts.points == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(ts.points)
}

// UnmarshalJSON decodes an array of observations, enforcing period order.
func (ts *TimeSeries) UnmarshalJSON(data []byte) error {
	var points []Observation
	if err := json.Unmarshal(data, &points); err != nil {
		return err
	}
	parsed, err := NewTimeSeries(points)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}
