package tonal

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-segmenter/algorithms/spectral"
)

// Pitch range searched in the cepstrum, in Hz
const (
	PitchLowFreq  = 55.0
	PitchHighFreq = 2000.0
)

// CepstralFeatures derives periodicity measures from a frame's spectrum
// magnitude and its real cepstrum. A cepstral index corresponds to a lag in
// samples, so pitches between PitchLowFreq and PitchHighFreq map to indices
// sampleRate/PitchHighFreq through sampleRate/PitchLowFreq.
type CepstralFeatures struct {
	minLag int
	maxLag int

	flatness *spectral.SpectralFlatness
	floored  []float64

	pitchDensity float64
	tonality     float64
	tonality1    float64
}

// NewCepstralFeatures creates the stage for frames of frameSize samples.
func NewCepstralFeatures(sampleRate, frameSize int) *CepstralFeatures {
	if sampleRate <= 0 || frameSize < 2 {
		panic(fmt.Sprintf("tonal: invalid cepstral geometry: rate %d, frame size %d", sampleRate, frameSize))
	}

	bins := frameSize/2 + 1
	minLag := max(1, int(float64(sampleRate)/PitchHighFreq))
	maxLag := min(bins-1, int(float64(sampleRate)/PitchLowFreq))

	return &CepstralFeatures{
		minLag:   minLag,
		maxLag:   maxLag,
		flatness: spectral.NewSpectralFlatness(),
		floored:  make([]float64, bins),
	}
}

// Process updates all three measures.
func (cf *CepstralFeatures) Process(magnitude, cepstrum []float64) {
	cf.pitchDensity = 0
	cf.tonality1 = 0

	maxLag := min(cf.maxLag, len(cepstrum)-1)

	total := 0.0
	for k := 1; k < len(cepstrum); k++ {
		total += cepstrum[k] * cepstrum[k]
	}

	inRange := 0.0
	peak := math.Inf(-1)
	for k := cf.minLag; k <= maxLag; k++ {
		inRange += cepstrum[k] * cepstrum[k]
		peak = math.Max(peak, cepstrum[k])
	}

	if total > 0 {
		cf.pitchDensity = inRange / total
	}
	if len(cepstrum) > 0 && cepstrum[0] > 0 && maxLag >= cf.minLag {
		cf.tonality1 = peak / cepstrum[0]
	}

	floored := cf.floored[:len(magnitude)]
	for i, m := range magnitude {
		floored[i] = math.Max(m, spectral.MagnitudeFloor)
	}
	cf.tonality = 1 - cf.flatness.Compute(floored)
}

// PitchDensity returns the share of cepstral energy (excluding c0) that falls
// inside the pitch range.
func (cf *CepstralFeatures) PitchDensity() float64 {
	return cf.pitchDensity
}

// Tonality returns 1 minus the spectral flatness of the magnitude
func (cf *CepstralFeatures) Tonality() float64 {
	return cf.tonality
}

// Tonality1 returns the strongest in-range cepstral peak relative to c0
func (cf *CepstralFeatures) Tonality1() float64 {
	return cf.tonality1
}

// LagRange returns the cepstral indices searched for pitch
func (cf *CepstralFeatures) LagRange() (int, int) {
	return cf.minLag, cf.maxLag
}
