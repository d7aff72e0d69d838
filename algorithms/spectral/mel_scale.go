package spectral

import (
	"fmt"
	"math"
)

// DefaultMelBands is the number of triangular bands used by the segmenter
const DefaultMelBands = 27

// HzToMel converts frequency in Hz to mel scale
func HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts mel scale to frequency in Hz
func MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// CreateMelFilterBank creates a bank of overlapping triangular filters,
// equally spaced in mel between lowFreq and highFreq, over the fftSize/2+1
// bins of a real spectrum.
func CreateMelFilterBank(numFilters int, fftSize int, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	if numFilters <= 0 || fftSize <= 0 {
		return nil
	}

	lowMel := HzToMel(lowFreq)
	highMel := HzToMel(highFreq)

	// Equally spaced mel points, converted back to FFT bin indices
	binPoints := make([]int, numFilters+2)
	melStep := (highMel - lowMel) / float64(numFilters+1)
	for i := range binPoints {
		hz := MelToHz(lowMel + float64(i)*melStep)
		binPoints[i] = int(math.Floor((float64(fftSize)+1.0)*hz/float64(sampleRate) + 0.5))
		binPoints[i] = min(binPoints[i], fftSize/2)
	}

	filterBank := make([][]float64, numFilters)
	for i := range filterBank {
		filterBank[i] = make([]float64, fftSize/2+1)
	}

	for m := 1; m <= numFilters; m++ {
		leftBin := binPoints[m-1]
		centerBin := binPoints[m]
		rightBin := binPoints[m+1]

		// Rising edge
		for k := leftBin; k < centerBin; k++ {
			filterBank[m-1][k] = float64(k-leftBin) / float64(centerBin-leftBin)
		}

		// Falling edge
		for k := centerBin; k < rightBin; k++ {
			filterBank[m-1][k] = float64(rightBin-k) / float64(rightBin-centerBin)
		}
	}

	return filterBank
}

// MelSpectrum maps a linear-frequency spectrum onto triangular mel bands
// spanning 0 Hz to the Nyquist frequency.
type MelSpectrum struct {
	filterBank [][]float64
	output     []float64
}

// NewMelSpectrum builds the filter bank for frames of frameSize samples.
func NewMelSpectrum(numBands, sampleRate, frameSize int) *MelSpectrum {
	if numBands <= 0 {
		panic(fmt.Sprintf("spectral: mel band count %d <= 0", numBands))
	}

	return &MelSpectrum{
		filterBank: CreateMelFilterBank(numBands, frameSize, sampleRate, 0, float64(sampleRate)/2.0),
		output:     make([]float64, numBands),
	}
}

// Process computes band energies from the spectrum magnitude. The returned
// slice is overwritten by the next call.
func (ms *MelSpectrum) Process(spectrum []float64) []float64 {
	for i, filter := range ms.filterBank {
		sum := 0.0
		for j := 0; j < len(filter) && j < len(spectrum); j++ {
			sum += spectrum[j] * filter[j]
		}
		ms.output[i] = sum
	}

	return ms.output
}

// Output returns the band energies computed by the last Process call
func (ms *MelSpectrum) Output() []float64 {
	return ms.output
}

// Bands returns the number of mel bands
func (ms *MelSpectrum) Bands() int {
	return len(ms.filterBank)
}

// GetFilterBank returns the mel filter bank (for debugging/visualization)
func (ms *MelSpectrum) GetFilterBank() [][]float64 {
	return ms.filterBank
}
