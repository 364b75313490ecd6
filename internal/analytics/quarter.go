package analytics

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// QuartersPerYear is the seasonal period of quarterly data with yearly seasonality.
const QuartersPerYear = 4

var quarterPattern = regexp.MustCompile(`^(\d{4})\s*-?\s*[Qq]([1-4])$`)

// Quarter identifies a calendar quarter.
type Quarter struct {
	Year int
	Q    int // 1..4
}

// ParseQuarter accepts "2003Q1", "2003-Q1" and "2003 q1".
func ParseQuarter(s string) (Quarter, error) {
	m := quarterPattern.FindStringSubmatch(s)
	if m == nil {
		return Quarter{}, fmt.Errorf("invalid quarter %q: expected format like 2003Q1", s)
	}
	year, _ := strconv.Atoi(m[1])
	q, _ := strconv.Atoi(m[2])
	return Quarter{Year: year, Q: q}, nil
}

func (q Quarter) String() string {
	return fmt.Sprintf("%dQ%d", q.Year, q.Q)
}

// Add moves n quarters forward (or back for negative n).
func (q Quarter) Add(n int) Quarter {
	idx := q.Year*QuartersPerYear + (q.Q - 1) + n
	year := idx / QuartersPerYear
	rem := idx % QuartersPerYear
	if rem < 0 {
		rem += QuartersPerYear
		year--
	}
	return Quarter{Year: year, Q: rem + 1}
}

// Label renders period index p of a series whose period 0 is base.
func (q Quarter) Label(p int) string {
	return q.Add(p).String()
}

// SumSeries adds member series period by period over the periods they all share.
// It is how a group total (e.g. all carriers of one group) is built from its members.
func SumSeries(members ...TimeSeries) TimeSeries {
	if len(members) == 0 {
		return TimeSeries{}
	}
	points := make([]Observation, 0, members[0].Len())
	for _, p := range members[0].points {
		total := p.Value
		shared := true
		for _, m := range members[1:] {
			v, ok := m.Lookup(p.Period)
			if !ok {
				shared = false
				break
			}
			total += v
		}
		if shared {
			points = append(points, Observation{Period: p.Period, Value: total})
		}
	}
	return TimeSeries{points: points}
}

// ErrNoBaseline is returned by RecoveryRate when the baseline year has no usable mean.
var ErrNoBaseline = errors.New("recovery rate baseline is empty or zero")

// RecoveryRate returns the percentage change between the yearly means of
// yearBefore and yearAfter. Period 0 of ts is the quarter base.
func RecoveryRate(ts TimeSeries, base Quarter, yearBefore, yearAfter int) (float64, error) {
	before, nb := yearMean(ts, base, yearBefore)
	after, na := yearMean(ts, base, yearAfter)
	if nb == 0 || before == 0 {
		return 0, fmt.Errorf("%w: year %d", ErrNoBaseline, yearBefore)
	}
	if na == 0 {
		return 0, fmt.Errorf("no observations for year %d", yearAfter)
	}
	return (after - before) / before * 100, nil
}

func yearMean(ts TimeSeries, base Quarter, year int) (float64, int) {
	sum := 0.0
	n := 0
	for _, p := range ts.points {
		if base.Add(p.Period).Year != year || math.IsNaN(p.Value) {
			continue
		}
		sum += p.Value
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}
