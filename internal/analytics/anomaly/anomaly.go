// Package anomaly flags quarters whose fit residual lies far outside the
// rest of the residual distribution, e.g. demand shocks a smoother cannot
// anticipate.
package anomaly

import (
	"errors"
	"fmt"
	"slices"
)

// Kind is the direction of a shock
type Kind string

const (
	KindSpike Kind = "spike" // actual far above the fit
	KindDrop  Kind = "drop"  // actual far below the fit
)

// None disables shock detection when used as a detector name
const None = "none"

// ErrUnknownDetector is returned for a detector name that is not registered
var ErrUnknownDetector = errors.New("unknown shock detector")

// Shock is one flagged period
type Shock struct {
	Period   int     `json:"period"`
	Label    string  `json:"label,omitempty"` // set by callers that know the calendar
	Residual float64 `json:"residual"`
	Score    float64 `json:"score"` // distance past the fence in detector units
	Kind     Kind    `json:"kind"`
	Detector string  `json:"detector"`
}

// Config controls detection sensitivity
type Config struct {
	// Threshold is the number of standard deviations for zscore and the
	// fence multiplier of the interquartile range for iqr.
	Threshold float64 `json:"threshold"`

	// MinResiduals below which nothing is flagged
	MinResiduals int `json:"min_residuals"`
}

// DefaultConfig flags residuals beyond 3 units, given two years of residuals
func DefaultConfig() Config {
	return Config{Threshold: 3, MinResiduals: 8}
}

// Finding is a detector hit at an index of the residual slice
type Finding struct {
	Index int
	Score float64
	Kind  Kind
}

// Detector scans residuals for outliers
type Detector interface {
	Name() string
	Detect(residuals []float64, cfg Config) []Finding
}

var detectorRegistry = make(map[string]Detector)

// RegisterDetector adds a detector to the registry
func RegisterDetector(name string, detector Detector) {
	detectorRegistry[name] = detector
}

// GetDetector returns a detector by name
func GetDetector(name string) (Detector, error) {
	if detector, ok := detectorRegistry[name]; ok {
		return detector, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownDetector, name)
}

// ListDetectors returns the registered names, sorted
func ListDetectors() []string {
	names := make([]string, 0, len(detectorRegistry))
	for name := range detectorRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DetectShocks runs the named detector over residuals and maps hits back to
// their periods. periods and residuals are parallel slices.
func DetectShocks(name string, periods []int, residuals []float64, cfg Config) ([]Shock, error) {
	if len(periods) != len(residuals) {
		return nil, fmt.Errorf("periods and residuals differ in length: %d != %d", len(periods), len(residuals))
	}
	detector, err := GetDetector(name)
	if err != nil {
		return nil, err
	}

	findings := detector.Detect(residuals, cfg)
	shocks := make([]Shock, 0, len(findings))
	for _, f := range findings {
		shocks = append(shocks, Shock{
			Period:   periods[f.Index],
			Residual: residuals[f.Index],
			Score:    f.Score,
			Kind:     f.Kind,
			Detector: detector.Name(),
		})
	}
	return shocks, nil
}

func kindOf(residual float64) Kind {
	if residual > 0 {
		return KindSpike
	}
	return KindDrop
}
