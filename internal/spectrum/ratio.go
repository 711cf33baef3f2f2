package spectrum

import "math"

const (
	// DefaultVoltageRatioEpsilon is the display threshold for voltage ratios, percent
	DefaultVoltageRatioEpsilon = 0.01

	// DefaultCurrentRatioEpsilon is the display threshold for current ratios, percent
	DefaultCurrentRatioEpsilon = 0.2
)

// Ratios expresses harmonics 2..n as a percentage of the fundamental, rounded
// to two decimals. Values below epsilon are reported as exactly zero. A zero
// fundamental produces NaN or Inf entries, which are returned unchanged.
func Ratios(h HarmonicVector, epsilon float64) []float64 {
	if len(h) < 2 {
		return nil
	}

	ratios := make([]float64, len(h)-1)
	for i := 1; i < len(h); i++ {
		r := math.Round(h[i]/h[0]*100*100) / 100
		if r < epsilon {
			r = 0
		}
		ratios[i-1] = r
	}

	return ratios
}
