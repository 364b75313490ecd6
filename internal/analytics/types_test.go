package analytics

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimeSeries_RejectsUnordered(t *testing.T) {
	_, err := NewTimeSeries([]Observation{{Period: 0, Value: 1}, {Period: 0, Value: 2}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnorderedPeriods))

	_, err = NewTimeSeries([]Observation{{Period: 3, Value: 1}, {Period: 1, Value: 2}})
	assert.ErrorIs(t, err, ErrUnorderedPeriods)
}

func TestNewTimeSeries_CopiesInput(t *testing.T) {
	points := []Observation{{Period: 0, Value: 1}, {Period: 2, Value: 3}}
	ts, err := NewTimeSeries(points)
	require.NoError(t, err)

	points[0].Value = 99
	assert.Equal(t, 1.0, ts.At(0).Value)

	values := ts.Values()
	values[1] = 42
	assert.Equal(t, 3.0, ts.At(1).Value)
	assert.False(t, ts.IsContiguous())
}

func TestFromValues(t *testing.T) {
	ts := FromValues(10, []float64{1, 2, 3})

	assert.Equal(t, 3, ts.Len())
	assert.Equal(t, []int{10, 11, 12}, ts.Periods())
	assert.Equal(t, 10, ts.FirstPeriod())
	assert.Equal(t, 12, ts.LastPeriod())
	assert.True(t, ts.IsContiguous())

	v, ok := ts.Lookup(11)
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)

	_, ok = ts.Lookup(13)
	assert.False(t, ok)
}

func TestTimeSeries_Empty(t *testing.T) {
	var ts TimeSeries
	assert.Equal(t, 0, ts.Len())
	assert.Equal(t, -1, ts.LastPeriod())
	assert.Equal(t, 0.0, ts.Mean())
}

func TestTimeSeries_MeanSkipsNaN(t *testing.T) {
	ts := FromValues(0, []float64{2, math.NaN(), 4})
	assert.Equal(t, 3.0, ts.Mean())
}

func TestTimeSeries_JSON(t *testing.T) {
	ts := FromValues(4, []float64{1.5, 2})
	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"period":4,"value":1.5},{"period":5,"value":2}]`, string(data))

	var back TimeSeries
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ts.Observations(), back.Observations())

	err = json.Unmarshal([]byte(`[{"period":2,"value":1},{"period":1,"value":1}]`), &back)
	assert.ErrorIs(t, err, ErrUnorderedPeriods)

	data, err = json.Marshal(TimeSeries{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
