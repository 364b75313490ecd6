package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Coarse grid evaluated before the simplex search; the best point seeds it.
var (
	alphaGrid = []float64{0.1, 0.3, 0.5, 0.7, 0.9}
	betaGrid  = []float64{0.01, 0.1, 0.3}
	gammaGrid = []float64{0.01, 0.1, 0.3}
)

const (
	maxOptimizeIterations = 2000
	logitBound            = 1e-4
)

// paramSpace maps between Params and the unconstrained vector searched by
// Nelder-Mead. Each free weight is stored as logit(p) so any real vector
// decodes to weights inside (0,1).
type paramSpace struct {
	trend    bool
	seasonal bool
}

func newParamSpace(cfg SmoothingConfig) paramSpace {
	return paramSpace{
		trend:    cfg.Trend == TrendAdditive,
		seasonal: cfg.Seasonal != SeasonalNone,
	}
}

func (s paramSpace) encode(p Params) []float64 {
	x := []float64{logit(p.Alpha)}
	if s.trend {
		x = append(x, logit(p.Beta))
	}
	if s.seasonal {
		x = append(x, logit(p.Gamma))
	}
	return x
}

func (s paramSpace) decode(x []float64) Params {
	p := Params{Alpha: logistic(x[0])}
	i := 1
	if s.trend {
		p.Beta = logistic(x[i])
		i++
	}
	if s.seasonal {
		p.Gamma = logistic(x[i])
	}
	return p
}

// optimizeParams chooses the smoothing weights that minimize the in-sample
// SSE of one-step-ahead errors.
func optimizeParams(y []float64, start initialState, cfg SmoothingConfig) (Params, error) {
	space := newParamSpace(cfg)

	objective := func(p Params) float64 {
		sse := smooth(y, start, p, cfg).sse
		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			return math.MaxFloat64
		}
		return sse
	}

	best, bestSSE := gridSearch(space, objective)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return objective(space.decode(x))
		},
	}
	settings := &optimize.Settings{
		MajorIterations: maxOptimizeIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 200,
		},
	}

	result, err := optimize.Minimize(problem, space.encode(best), settings, &optimize.NelderMead{SimplexSize: 1})
	if err != nil && result == nil {
		return Params{}, fmt.Errorf("parameter optimization failed: %w", err)
	}
	// Iteration limits still leave a usable best point; keep the grid start
	// if the search never improved on it.
	if result == nil || !(result.F < bestSSE) {
		if bestSSE == math.MaxFloat64 {
			return Params{}, fmt.Errorf("%w: no finite fit found", ErrDiverged)
		}
		return best, nil
	}
	return space.decode(result.X), nil
}

// gridSearch evaluates every combination of the coarse grid over the free
// weights and returns the best one.
func gridSearch(space paramSpace, objective func(Params) float64) (Params, float64) {
	betas := []float64{0}
	if space.trend {
		betas = betaGrid
	}
	gammas := []float64{0}
	if space.seasonal {
		gammas = gammaGrid
	}

	best := Params{Alpha: alphaGrid[0], Beta: betas[0], Gamma: gammas[0]}
	bestSSE := math.Inf(1)
	for _, a := range alphaGrid {
		for _, b := range betas {
			for _, g := range gammas {
				p := Params{Alpha: a, Beta: b, Gamma: g}
				if sse := objective(p); sse < bestSSE {
					best, bestSSE = p, sse
				}
			}
		}
	}
	return best, bestSSE
}

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func logit(p float64) float64 {
	p = math.Min(math.Max(p, logitBound), 1-logitBound)
	return math.Log(p / (1 - p))
}
