package anomaly

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ZScoreDetector flags residuals more than Threshold sample standard
// deviations from the residual mean.
type ZScoreDetector struct{}

func init() {
	RegisterDetector("zscore", &ZScoreDetector{})
}

// Name returns the algorithm name
func (z *ZScoreDetector) Name() string {
	return "zscore"
}

// Detect finds residuals with |z| > Threshold. A constant residual set has no outliers.
func (z *ZScoreDetector) Detect(residuals []float64, cfg Config) []Finding {
	if len(residuals) < max(cfg.MinResiduals, 2) {
		return nil
	}

	mean, sd := stat.MeanStdDev(residuals, nil)
	if sd == 0 || math.IsNaN(sd) {
		return nil
	}

	var findings []Finding
	for i, r := range residuals {
		score := math.Abs(r-mean) / sd
		if score > cfg.Threshold {
			findings = append(findings, Finding{Index: i, Score: score, Kind: kindOf(r - mean)})
		}
	}
	return findings
}
