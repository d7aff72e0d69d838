package spectral

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnpackPower(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		n      int
		coeffs []complex128
		want   []float64
	}{
		{
			name:   "even length keeps a real nyquist bin",
			n:      4,
			coeffs: []complex128{complex(2, 0), complex(1, 1), complex(3, 0)},
			want:   []float64{4, 2, 9},
		},
		{
			name:   "odd length has only pairs after bin zero",
			n:      5,
			coeffs: []complex128{complex(1, 0), complex(1, 2), complex(0, 3)},
			want:   []float64{1, 5, 9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dst := make([]float64, len(tt.want))
			unpackPower(dst, tt.coeffs, tt.n, 0.5)
			for i := range tt.want {
				assert.InDelta(t, tt.want[i]*0.5, dst[i], 1e-12, "bin %d", i)
			}
		})
	}
}

func TestPowerSpectrum_SinusoidConcentration(t *testing.T) {
	t.Parallel()

	const (
		n   = 512
		bin = 32
	)
	frame := make([]float64, n)
	for i := range frame {
		frame[i] = math.Sin(2 * math.Pi * float64(bin) * float64(i) / n)
	}

	ps := NewPowerSpectrum(n)
	power := ps.Process(frame)
	require.Len(t, power, n/2+1)

	total, near := 0.0, 0.0
	for k, p := range power {
		assert.GreaterOrEqual(t, p, 0.0)
		total += p
		if k >= bin-2 && k <= bin+2 {
			near += p
		}
	}
	require.Greater(t, total, 0.0)
	assert.Greater(t, near/total, 0.99)
	assert.Equal(t, bin, argmax(power))
}

func TestPowerSpectrum_SilenceIsZero(t *testing.T) {
	t.Parallel()

	ps := NewPowerSpectrum(256)
	for _, p := range ps.Process(make([]float64, 256)) {
		assert.Equal(t, 0.0, p)
	}
}

func TestCosineTransform_MatchesDirectFormula(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	for _, size := range []int{1, 7, 16, 257} {
		src := make([]float64, size)
		for i := range src {
			src[i] = rng.Float64()*2 - 1
		}

		dst := make([]float64, size)
		NewCosineTransform(size).Transform(dst, src)

		for k := range size {
			want := 0.0
			for i, x := range src {
				want += 2 * x * math.Cos(math.Pi*float64(k)*(float64(i)+0.5)/float64(size))
			}
			assert.InDelta(t, want, dst[k], 1e-8, "size %d bin %d", size, k)
		}
	}
}

func TestRealCepstrum_FlatMagnitude(t *testing.T) {
	t.Parallel()

	const frameSize = 512
	bins := frameSize/2 + 1

	magnitude := make([]float64, bins)
	for i := range magnitude {
		magnitude[i] = 4
	}

	cep := NewRealCepstrum(frameSize).Process(magnitude)
	require.Len(t, cep, bins)

	// sqrt(4) = 2 everywhere, so only the constant term survives
	assert.InDelta(t, float64(bins)*2/math.Sqrt2, cep[0], 1e-7)
	for k := 1; k < bins; k++ {
		assert.InDelta(t, 0.0, cep[k], 1e-7, "bin %d", k)
	}
}

func TestRealCepstrum_FloorsSilence(t *testing.T) {
	t.Parallel()

	cep := NewRealCepstrum(64).Process(make([]float64, 33))
	assert.InDelta(t, 33*math.Sqrt(MagnitudeFloor)/math.Sqrt2, cep[0], 1e-12)
}

func TestMelSpectrum_FilterBank(t *testing.T) {
	t.Parallel()

	ms := NewMelSpectrum(DefaultMelBands, 11025, 1024)
	require.Equal(t, DefaultMelBands, ms.Bands())

	flat := make([]float64, 513)
	for i := range flat {
		flat[i] = 1
	}
	bands := ms.Process(flat)
	require.Len(t, bands, DefaultMelBands)

	for i, filter := range ms.GetFilterBank() {
		peak := 0.0
		for _, w := range filter {
			assert.GreaterOrEqual(t, w, 0.0)
			peak = math.Max(peak, w)
		}
		assert.LessOrEqual(t, peak, 1.0, "band %d", i)
		assert.Greater(t, bands[i], 0.0, "band %d", i)
	}

	// wider bands towards the top of the scale collect more of a flat spectrum
	assert.Greater(t, bands[DefaultMelBands-1], bands[0])
}

func TestMFCC_ConstantBandsOnlyFirstCoefficient(t *testing.T) {
	t.Parallel()

	mel := make([]float64, DefaultMelBands)
	for i := range mel {
		mel[i] = math.E
	}

	coeffs := NewMFCC(DefaultMelBands, DefaultMFCCCoefficients).Process(mel)
	require.Len(t, coeffs, DefaultMFCCCoefficients)

	assert.InDelta(t, math.Sqrt(DefaultMelBands), coeffs[0], 1e-9)
	for k := 1; k < len(coeffs); k++ {
		assert.InDelta(t, 0.0, coeffs[k], 1e-9, "coefficient %d", k)
	}
}

func TestMFCC_SilenceUsesLogFloor(t *testing.T) {
	t.Parallel()

	coeffs := NewMFCC(4, 2).Process(make([]float64, 4))
	assert.InDelta(t, 2*math.Log(logFloor), coeffs[0], 1e-9)
	assert.False(t, math.IsInf(coeffs[1], 0))
}

func TestSpectralFlatness(t *testing.T) {
	t.Parallel()

	sf := NewSpectralFlatness()

	flat := []float64{1, 1, 1, 1}
	assert.InDelta(t, 1.0, sf.Compute(flat), 1e-12)

	peaky := make([]float64, 64)
	for i := range peaky {
		peaky[i] = 1e-6
	}
	peaky[10] = 100
	assert.Less(t, sf.Compute(peaky), 0.01)

	assert.Equal(t, 0.0, sf.Compute(nil))
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
