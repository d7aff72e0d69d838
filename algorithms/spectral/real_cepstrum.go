package spectral

import (
	"math"
)

// MagnitudeFloor is the smallest spectral magnitude admitted into cepstral
// analysis (2^-16).
const MagnitudeFloor = 1.0 / 65536

// RealCepstrum computes a compressed-magnitude cepstrum: the spectrum
// magnitude is floored, square-root compressed and cosine transformed.
// The square root replaces the textbook logarithm; it separates the
// segment classes better.
type RealCepstrum struct {
	dct        *CosineTransform
	compressed []float64
	output     []float64
}

// NewRealCepstrum creates a cepstrum stage for frames of frameSize samples,
// i.e. for spectra of frameSize/2+1 bins.
func NewRealCepstrum(frameSize int) *RealCepstrum {
	bins := frameSize/2 + 1
	return &RealCepstrum{
		dct:        NewCosineTransform(bins),
		compressed: make([]float64, bins),
		output:     make([]float64, bins),
	}
}

// Process computes the cepstrum of a magnitude spectrum. Bin 0 carries the
// extra 1/sqrt(2) of the orthogonal DCT-II convention and every bin is
// halved. The returned slice is overwritten by the next call.
func (rc *RealCepstrum) Process(magnitude []float64) []float64 {
	for i, m := range magnitude {
		rc.compressed[i] = math.Sqrt(math.Max(m, MagnitudeFloor))
	}

	rc.dct.Transform(rc.output, rc.compressed)

	rc.output[0] /= math.Sqrt2
	for i := range rc.output {
		rc.output[i] *= 0.5
	}

	return rc.output
}

// Output returns the cepstrum computed by the last Process call
func (rc *RealCepstrum) Output() []float64 {
	return rc.output
}
