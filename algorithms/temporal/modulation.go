package temporal

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-segmenter/algorithms/common"
	"github.com/RyanBlaney/sonido-segmenter/algorithms/filters"
)

// Modulation filter shape. Syllable rate in speech sits around 4 Hz.
const (
	ModulationCenterFreq = 4.0
	ModulationQ          = 2.0
)

// FourHzModulation measures how much of the mel-band energy over the last
// second fluctuates at syllabic rate. Each mel band is treated as a signal
// sampled at the frame rate and fed through its own 4 Hz bandpass filter.
type FourHzModulation struct {
	frameRate float64
	filters   []*filters.BandpassFilter

	// per-frame sums over bands, kept for one second of frames
	filtered *common.CircularBuffer
	energy   *common.CircularBuffer

	output float64
}

// NewFourHzModulation creates the stage for numBands mel bands computed from
// frames advancing by frameStep samples at sampleRate.
func NewFourHzModulation(numBands, sampleRate, frameStep int) *FourHzModulation {
	if numBands <= 0 || sampleRate <= 0 || frameStep <= 0 {
		panic(fmt.Sprintf("temporal: invalid modulation geometry: %d bands, rate %d, step %d",
			numBands, sampleRate, frameStep))
	}

	frameRate := float64(sampleRate) / float64(frameStep)
	history := max(2, int(math.Round(frameRate)))

	fm := &FourHzModulation{
		frameRate: frameRate,
		filters:   make([]*filters.BandpassFilter, numBands),
		filtered:  common.NewCircularBuffer(history),
		energy:    common.NewCircularBuffer(history),
	}
	for i := range fm.filters {
		fm.filters[i] = filters.NewBandpassFilterWithQ(frameRate, ModulationCenterFreq, ModulationQ)
	}

	return fm
}

// Process consumes one frame of mel band energies and returns the ratio of
// 4 Hz band-passed energy to total energy over the history. A silent history
// yields 0.
func (fm *FourHzModulation) Process(mel []float64) float64 {
	filteredSum := 0.0
	energySum := 0.0
	for i, f := range fm.filters {
		if i >= len(mel) {
			break
		}
		y := f.Process(mel[i])
		filteredSum += y * y
		energySum += mel[i] * mel[i]
	}

	fm.filtered.Push(filteredSum)
	fm.energy.Push(energySum)

	fm.output = common.SafeDivide(fm.filtered.Sum(), fm.energy.Sum())
	return fm.output
}

// Output returns the modulation computed by the last Process call
func (fm *FourHzModulation) Output() float64 {
	return fm.output
}

// FrameRate returns the rate at which frames arrive, in Hz
func (fm *FourHzModulation) FrameRate() float64 {
	return fm.frameRate
}

// Reset clears filter state and history
func (fm *FourHzModulation) Reset() {
	for _, f := range fm.filters {
		f.Reset()
	}
	fm.filtered.Clear()
	fm.energy.Clear()
	fm.output = 0
}
