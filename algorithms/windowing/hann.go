package windowing

import (
	"fmt"
	"math"
)

// Hann represents a symmetric raised-cosine analysis window together with
// the output scale 1/sqrt(sum(w)) that makes spectra independent of the
// window's energy.
type Hann struct {
	size         int
	coefficients []float64
	scale        float64
}

// NewHann creates a new symmetric Hann window. size must be at least 2.
func NewHann(size int) *Hann {
	if size < 2 {
		panic(fmt.Sprintf("windowing: hann window size %d < 2", size))
	}
	h := &Hann{size: size}
	h.generate()
	return h
}

func (h *Hann) generate() {
	h.coefficients = make([]float64, h.size)

	denominator := float64(h.size - 1)
	sum := 0.0
	for i := range h.size {
		h.coefficients[i] = 0.5 * (1.0 - math.Cos(2*math.Pi*float64(i)/denominator))
		sum += h.coefficients[i]
	}
	h.scale = 1.0 / math.Sqrt(sum)
}

// ApplyTo writes signal*window into dst. Both must have the window's length.
func (h *Hann) ApplyTo(dst, signal []float64) error {
	if len(signal) != h.size || len(dst) != h.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), h.size)
	}

	for i, c := range h.coefficients {
		dst[i] = signal[i] * c
	}

	return nil
}

// Scale returns 1/sqrt(sum of coefficients)
func (h *Hann) Scale() float64 {
	return h.scale
}

// GetCoefficients returns a copy of the window coefficients
func (h *Hann) GetCoefficients() []float64 {
	coeffs := make([]float64, len(h.coefficients))
	copy(coeffs, h.coefficients)
	return coeffs
}
