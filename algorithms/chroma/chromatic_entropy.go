package chroma

import (
	"fmt"
	"math"
)

// Default band limits for chromatic entropy, roughly A1 to B6.
const (
	DefaultEntropyLowFreq  = 55.0
	DefaultEntropyHighFreq = 2000.0
)

// ChromaticEntropy measures how evenly power is spread over the bins of a
// pitch-relevant frequency band. Tonal frames concentrate power in a few
// partials and score low; noise-like frames approach 1.
type ChromaticEntropy struct {
	lowBin  int
	highBin int // inclusive
	output  float64
}

// NewChromaticEntropy creates an entropy stage for power spectra of frames of
// frameSize samples at sampleRate, restricted to [lowFreq, highFreq] Hz.
func NewChromaticEntropy(sampleRate, frameSize int, lowFreq, highFreq float64) *ChromaticEntropy {
	if sampleRate <= 0 || frameSize < 2 {
		panic(fmt.Sprintf("chroma: invalid entropy geometry: rate %d, frame size %d", sampleRate, frameSize))
	}
	if lowFreq < 0 || highFreq < lowFreq {
		panic(fmt.Sprintf("chroma: invalid entropy band [%g, %g] Hz", lowFreq, highFreq))
	}

	binHz := float64(sampleRate) / float64(frameSize)
	lowBin := int(math.Ceil(lowFreq / binHz))
	highBin := int(math.Floor(highFreq / binHz))
	highBin = min(highBin, frameSize/2)

	return &ChromaticEntropy{
		lowBin:  lowBin,
		highBin: highBin,
	}
}

// Process computes the normalized entropy of the in-band power. Zero total
// power, or a band narrower than two bins, yields 0.
func (ce *ChromaticEntropy) Process(power []float64) float64 {
	ce.output = 0

	high := min(ce.highBin, len(power)-1)
	count := high - ce.lowBin + 1
	if count < 2 {
		return ce.output
	}

	total := 0.0
	for k := ce.lowBin; k <= high; k++ {
		total += power[k]
	}
	if total <= 0 {
		return ce.output
	}

	entropy := 0.0
	for k := ce.lowBin; k <= high; k++ {
		p := power[k] / total
		if p > 0 {
			entropy -= p * math.Log(p)
		}
	}

	ce.output = entropy / math.Log(float64(count))
	return ce.output
}

// Output returns the entropy computed by the last Process call
func (ce *ChromaticEntropy) Output() float64 {
	return ce.output
}

// BinRange returns the first and last spectrum bins included in the band
func (ce *ChromaticEntropy) BinRange() (int, int) {
	return ce.lowBin, ce.highBin
}
