package spectral

import (
	"math"
)

// SpectralFlatness computes spectral flatness (Wiener entropy)
type SpectralFlatness struct {
	minThreshold float64 // Minimum value to avoid log(0)
}

// NewSpectralFlatness creates a new spectral flatness calculator
func NewSpectralFlatness() *SpectralFlatness {
	return &SpectralFlatness{
		minThreshold: 1e-10,
	}
}

// Compute calculates spectral flatness for a single magnitude spectrum.
// Returns ratio of geometric mean to arithmetic mean (0-1 range):
// tonal content sits near 0, noise-like content near 1.
func (sf *SpectralFlatness) Compute(magnitudeSpectrum []float64) float64 {
	if len(magnitudeSpectrum) == 0 {
		return 0.0
	}

	// geometric mean in the log domain
	logSum := 0.0
	validCount := 0
	arithmeticMean := 0.0

	for _, magnitude := range magnitudeSpectrum {
		if magnitude > sf.minThreshold {
			logSum += math.Log(magnitude)
			validCount++
		}
		arithmeticMean += magnitude
	}

	if validCount == 0 {
		return 0.0
	}

	arithmeticMean /= float64(len(magnitudeSpectrum))
	if arithmeticMean <= sf.minThreshold {
		return 0.0
	}

	flatness := math.Exp(logSum/float64(validCount)) / arithmeticMean

	return math.Min(flatness, 1.0)
}
