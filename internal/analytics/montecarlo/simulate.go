// Package montecarlo derives forecast confidence bands by resampling fit residuals.
//
// Each trial draws one residual per forecast step, independently and with
// replacement, and adds it to the point forecast. Residual autocorrelation is
// not modelled.
package montecarlo

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrEmptyResidualSet is returned when there is nothing to resample.
	ErrEmptyResidualSet = errors.New("empty residual set")
	// ErrInvalidOptions is returned for a non-positive trial count or a confidence outside (0,1).
	ErrInvalidOptions = errors.New("invalid simulation options")
)

// blockSize is the number of trials drawn from one generator stream.
// Blocks are the unit of parallel work, so the result does not depend on Workers.
const blockSize = 1024

// Options control a simulation.
type Options struct {
	Trials     int     `json:"trials"`
	Confidence float64 `json:"confidence"`
	Seed       uint64  `json:"seed"`
	Workers    int     `json:"workers"` // <= 1 runs all blocks on the calling goroutine
}

// DefaultOptions returns 5000 trials at 95% confidence.
func DefaultOptions() Options {
	return Options{Trials: 5000, Confidence: 0.95, Seed: 1, Workers: 1}
}

// Validate checks trial count and confidence level.
func (o Options) Validate() error {
	if o.Trials < 1 {
		return fmt.Errorf("%w: trials must be positive, got %d", ErrInvalidOptions, o.Trials)
	}
	if !(o.Confidence > 0 && o.Confidence < 1) {
		return fmt.Errorf("%w: confidence must be in (0,1), got %v", ErrInvalidOptions, o.Confidence)
	}
	return nil
}

// Interval is a per-step confidence band around a point forecast.
type Interval struct {
	Lower      []float64 `json:"lower"`
	Upper      []float64 `json:"upper"`
	Confidence float64   `json:"confidence"`
	Trials     int       `json:"trials"`
}

// Len returns the number of forecast steps covered.
func (iv Interval) Len() int {
	return len(iv.Lower)
}

// Simulate builds the trial ensemble for forecast and returns, per step, the
// (1-c)/2 and (1+c)/2 empirical quantiles. Quantiles are only taken once
// every trial has been drawn.
func Simulate(forecast, residuals []float64, opts Options) (Interval, error) {
	if len(residuals) == 0 {
		return Interval{}, ErrEmptyResidualSet
	}
	if err := opts.Validate(); err != nil {
		return Interval{}, err
	}
	for _, r := range residuals {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return Interval{}, fmt.Errorf("%w: residuals must be finite", ErrInvalidOptions)
		}
	}

	horizon := len(forecast)
	// ensemble[step][trial]
	ensemble := make([][]float64, horizon)
	for k := range ensemble {
		ensemble[k] = make([]float64, opts.Trials)
	}

	blocks := (opts.Trials + blockSize - 1) / blockSize
	runBlock := func(b int) {
		rng := rand.New(rand.NewPCG(opts.Seed, uint64(b)))
		end := min((b+1)*blockSize, opts.Trials)
		for trial := b * blockSize; trial < end; trial++ {
			for k := 0; k < horizon; k++ {
				ensemble[k][trial] = forecast[k] + residuals[rng.IntN(len(residuals))]
			}
		}
	}

	if opts.Workers <= 1 || blocks == 1 {
		for b := 0; b < blocks; b++ {
			runBlock(b)
		}
	} else {
		// blocks write disjoint trial ranges
		var g errgroup.Group
		g.SetLimit(opts.Workers)
		for b := 0; b < blocks; b++ {
			g.Go(func() error {
				runBlock(b)
				return nil
			})
		}
		_ = g.Wait()
	}

	lowerP := (1 - opts.Confidence) / 2
	upperP := (1 + opts.Confidence) / 2

	iv := Interval{
		Lower:      make([]float64, horizon),
		Upper:      make([]float64, horizon),
		Confidence: opts.Confidence,
		Trials:     opts.Trials,
	}
	for k, paths := range ensemble {
		sort.Float64s(paths)
		iv.Lower[k] = stat.Quantile(lowerP, stat.LinInterp, paths, nil)
		iv.Upper[k] = stat.Quantile(upperP, stat.LinInterp, paths, nil)
	}
	return iv, nil
}
