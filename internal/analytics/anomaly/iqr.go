package anomaly

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// IQRDetector flags residuals outside [Q1 - k*IQR, Q3 + k*IQR] with k = Threshold.
// It is less sensitive than zscore to the shocks themselves inflating the spread.
type IQRDetector struct{}

func init() {
	RegisterDetector("iqr", &IQRDetector{})
}

// Name returns the algorithm name
func (d *IQRDetector) Name() string {
	return "iqr"
}

// Detect scores each hit by its distance past the fence in IQR units
func (d *IQRDetector) Detect(residuals []float64, cfg Config) []Finding {
	if len(residuals) < max(cfg.MinResiduals, 4) {
		return nil
	}

	q1, q3 := Quartiles(residuals)
	spread := q3 - q1
	if spread == 0 {
		return nil
	}
	lower := q1 - cfg.Threshold*spread
	upper := q3 + cfg.Threshold*spread

	var findings []Finding
	for i, r := range residuals {
		switch {
		case r < lower:
			findings = append(findings, Finding{Index: i, Score: (lower - r) / spread, Kind: KindDrop})
		case r > upper:
			findings = append(findings, Finding{Index: i, Score: (r - upper) / spread, Kind: KindSpike})
		}
	}
	return findings
}

// Quartiles returns the linearly interpolated first and third quartiles
func Quartiles(values []float64) (q1, q3 float64) {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return stat.Quantile(0.25, stat.LinInterp, sorted, nil), stat.Quantile(0.75, stat.LinInterp, sorted, nil)
}
