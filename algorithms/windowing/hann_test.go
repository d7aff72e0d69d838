package windowing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHann_SymmetricEndpoints(t *testing.T) {
	t.Parallel()

	h := NewHann(9)
	c := h.GetCoefficients()

	assert.InDelta(t, 0.0, c[0], 1e-15)
	assert.InDelta(t, 0.0, c[8], 1e-15)
	assert.InDelta(t, 1.0, c[4], 1e-15)
	for i := range c {
		assert.InDelta(t, c[i], c[len(c)-1-i], 1e-15)
	}
}

func TestHann_Scale(t *testing.T) {
	t.Parallel()

	h := NewHann(9)
	sum := 0.0
	for _, v := range h.GetCoefficients() {
		sum += v
	}
	// a symmetric Hann of length N sums to (N-1)/2
	assert.InDelta(t, 4.0, sum, 1e-12)
	assert.InDelta(t, 1/math.Sqrt(4.0), h.Scale(), 1e-12)
}

func TestHann_ApplyTo(t *testing.T) {
	t.Parallel()

	h := NewHann(4)
	dst := make([]float64, 4)
	require.NoError(t, h.ApplyTo(dst, []float64{1, 1, 1, 1}))
	assert.Equal(t, h.GetCoefficients(), dst)

	assert.Error(t, h.ApplyTo(dst, []float64{1, 2}))
}

func TestHann_PanicsOnDegenerateSize(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewHann(1) })
}
