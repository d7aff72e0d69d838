package spectral

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// CosineTransform computes an unnormalized type-II discrete cosine transform
//
//	Y[k] = 2 * sum_n x[n] * cos(pi*k*(n+0.5)/K)
//
// by mirroring the input to length 2K and taking one real FFT with
// mjibson/go-dsp. The mirror buffer and twiddles are allocated once.
type CosineTransform struct {
	size     int
	mirror   []float64
	twiddles []complex128
}

// NewCosineTransform prepares a DCT-II of the given length.
func NewCosineTransform(size int) *CosineTransform {
	if size < 1 {
		panic(fmt.Sprintf("spectral: cosine transform size %d < 1", size))
	}

	ct := &CosineTransform{
		size:     size,
		mirror:   make([]float64, 2*size),
		twiddles: make([]complex128, size),
	}
	for k := range size {
		ct.twiddles[k] = cmplx.Exp(complex(0, -math.Pi*float64(k)/float64(2*size)))
	}
	return ct
}

// Transform writes the DCT-II of src into dst. Both must have the transform's length.
func (ct *CosineTransform) Transform(dst, src []float64) {
	if len(src) != ct.size || len(dst) != ct.size {
		panic(fmt.Sprintf("spectral: cosine transform length mismatch: src %d, dst %d, want %d",
			len(src), len(dst), ct.size))
	}

	n := ct.size
	for i, v := range src {
		ct.mirror[i] = v
		ct.mirror[2*n-1-i] = v
	}

	// fft.FFTReal handles all sizes, including non-power-of-2 ones
	spectrum := fft.FFTReal(ct.mirror)
	for k := range n {
		dst[k] = real(ct.twiddles[k] * spectrum[k])
	}
}

// Size returns the transform length
func (ct *CosineTransform) Size() int {
	return ct.size
}
