package filters

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBandpassFilter_PeakAtCenter(t *testing.T) {
	t.Parallel()

	frameRate := 11025.0 / 512.0
	bf := NewBandpassFilterWithQ(frameRate, 4.0, 2.0)

	assert.InDelta(t, 1.0, bf.GetFrequencyResponse(4.0), 1e-9)
	assert.InDelta(t, 0.0, bf.GetFrequencyResponse(0.0), 1e-12)
	assert.Less(t, bf.GetFrequencyResponse(0.5), 0.3)
	assert.Less(t, bf.GetFrequencyResponse(10.0), 0.5)
}

func TestBandpassFilter_RejectsDC(t *testing.T) {
	t.Parallel()

	bf := NewBandpassFilterWithQ(20, 4, 2)
	var y float64
	for range 2000 {
		y = bf.Process(1.0)
	}
	assert.InDelta(t, 0.0, y, 1e-9)
}

func TestBandpassFilter_PassesCenterTone(t *testing.T) {
	t.Parallel()

	const rate = 32.0
	bf := NewBandpassFilterWithQ(rate, 4, 2)

	peak := 0.0
	for n := range 4000 {
		y := bf.Process(math.Sin(2 * math.Pi * 4 * float64(n) / rate))
		if n > 3000 {
			peak = math.Max(peak, math.Abs(y))
		}
	}
	assert.InDelta(t, 1.0, peak, 0.02)

	bf.Reset()
	assert.Equal(t, 0.0, bf.Process(0))
}
