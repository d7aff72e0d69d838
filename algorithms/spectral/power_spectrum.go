package spectral

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/RyanBlaney/sonido-segmenter/algorithms/windowing"
)

// PowerSpectrum computes the windowed power spectrum of one analysis frame.
// It owns a single gonum FFT plan and its scratch buffers for its lifetime.
type PowerSpectrum struct {
	frameSize int
	window    *windowing.Hann
	plan      *fourier.FFT

	windowed []float64
	coeffs   []complex128
	output   []float64
}

// NewPowerSpectrum creates a power spectrum stage for frames of frameSize samples.
func NewPowerSpectrum(frameSize int) *PowerSpectrum {
	if frameSize < 2 {
		panic(fmt.Sprintf("spectral: frame size %d < 2", frameSize))
	}

	return &PowerSpectrum{
		frameSize: frameSize,
		window:    windowing.NewHann(frameSize),
		plan:      fourier.NewFFT(frameSize),
		windowed:  make([]float64, frameSize),
		coeffs:    make([]complex128, frameSize/2+1),
		output:    make([]float64, frameSize/2+1),
	}
}

// Process computes the power spectrum of frame, which must hold exactly
// frameSize samples. The returned slice is owned by the stage and is
// overwritten by the next call.
func (ps *PowerSpectrum) Process(frame []float64) []float64 {
	if err := ps.window.ApplyTo(ps.windowed, frame); err != nil {
		panic("spectral: " + err.Error())
	}

	ps.coeffs = ps.plan.Coefficients(ps.coeffs, ps.windowed)
	unpackPower(ps.output, ps.coeffs, ps.frameSize, ps.window.Scale())

	return ps.output
}

// Output returns the spectrum computed by the last Process call
func (ps *PowerSpectrum) Output() []float64 {
	return ps.output
}

// FrameSize returns the analysis frame length
func (ps *PowerSpectrum) FrameSize() int {
	return ps.frameSize
}

// unpackPower converts the half spectrum of a real transform of length n into
// scaled power values. Bin 0 is purely real. Bins 1..(n+1)/2-1 are genuine
// real/imaginary pairs. When n is even the Nyquist bin n/2 is purely real as
// well and has no partner.
func unpackPower(dst []float64, coeffs []complex128, n int, scale float64) {
	r := real(coeffs[0])
	dst[0] = r * r * scale

	pairCount := (n + 1) / 2
	for i := 1; i < pairCount; i++ {
		re, im := real(coeffs[i]), imag(coeffs[i])
		dst[i] = (re*re + im*im) * scale
	}

	if n%2 == 0 {
		r = real(coeffs[n/2])
		dst[n/2] = r * r * scale
	}
}
