package filters

import (
	"math"
)

// BandpassFilter implements a streaming digital bandpass filter using biquad
// topology. The sample rate is a float so the filter can run over feature
// sequences sampled at a frame rate rather than an audio rate.
//
// This implementation uses the cookbook formulas from Robert Bristow-Johnson's
// "Cookbook formulae for audio EQ biquad filter coefficients"
// Reference: https://webaudio.github.io/Audio-EQ-Cookbook/audio-eq-cookbook.html
type BandpassFilter struct {
	sampleRate float64
	centerFreq float64
	qFactor    float64

	// Biquad coefficients, normalized so a0 == 1
	b0, b1, b2 float64
	a1, a2     float64

	// Direct form II delay line
	w1, w2 float64
}

// NewBandpassFilterWithQ creates a bandpass filter with explicit Q factor.
//
// Parameters:
//   - sampleRate: rate at which Process is called, in Hz
//   - centerFreq: Center frequency in Hz
//   - qFactor: Quality factor (higher = narrower filter)
func NewBandpassFilterWithQ(sampleRate, centerFreq, qFactor float64) *BandpassFilter {
	bf := &BandpassFilter{
		sampleRate: sampleRate,
		centerFreq: centerFreq,
		qFactor:    qFactor,
	}

	bf.computeCoefficients()
	return bf
}

// computeCoefficients calculates the constant-peak-gain bandpass coefficients.
func (bf *BandpassFilter) computeCoefficients() {
	w0 := 2.0 * math.Pi * bf.centerFreq / bf.sampleRate

	// Prevent numerical issues at Nyquist
	if w0 >= math.Pi {
		w0 = math.Pi * 0.99
	}

	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2.0 * bf.qFactor)

	a0 := 1.0 + alpha
	bf.b0 = alpha / a0
	bf.b1 = 0.0
	bf.b2 = -alpha / a0
	bf.a1 = -2.0 * cosW0 / a0
	bf.a2 = (1.0 - alpha) / a0
}

// Process filters one input value.
//
// w[n] = x[n] - a1*w[n-1] - a2*w[n-2]
// y[n] = b0*w[n] + b1*w[n-1] + b2*w[n-2]
func (bf *BandpassFilter) Process(input float64) float64 {
	w := input - bf.a1*bf.w1 - bf.a2*bf.w2
	output := bf.b0*w + bf.b1*bf.w1 + bf.b2*bf.w2

	bf.w2 = bf.w1
	bf.w1 = w

	return output
}

// Reset clears the filter's delay line.
func (bf *BandpassFilter) Reset() {
	bf.w1, bf.w2 = 0.0, 0.0
}

// GetFrequencyResponse computes the magnitude response at the given frequency.
//
// H(e^jw) = (b0 + b1*e^-jw + b2*e^-j2w) / (1 + a1*e^-jw + a2*e^-j2w)
func (bf *BandpassFilter) GetFrequencyResponse(frequency float64) float64 {
	w := 2.0 * math.Pi * frequency / bf.sampleRate

	cosW, sinW := math.Cos(w), math.Sin(w)
	cos2W, sin2W := math.Cos(2*w), math.Sin(2*w)

	numReal := bf.b0 + bf.b1*cosW + bf.b2*cos2W
	numImag := -bf.b1*sinW - bf.b2*sin2W
	denReal := 1.0 + bf.a1*cosW + bf.a2*cos2W
	denImag := -bf.a1*sinW - bf.a2*sin2W

	return math.Sqrt((numReal*numReal + numImag*numImag) / (denReal*denReal + denImag*denImag))
}
