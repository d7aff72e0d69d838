package temporal

import (
	"fmt"

	"github.com/RyanBlaney/sonido-segmenter/algorithms/common"
)

// Energy computes the short-time RMS energy of one analysis frame
type Energy struct {
	frameSize int
	output    float64
}

// NewEnergy creates a new energy calculator for frames of frameSize samples
func NewEnergy(frameSize int) *Energy {
	if frameSize <= 0 {
		panic(fmt.Sprintf("temporal: energy frame size %d <= 0", frameSize))
	}
	return &Energy{frameSize: frameSize}
}

// Process calculates RMS energy over the first frameSize samples of frame
func (e *Energy) Process(frame []float64) float64 {
	n := min(e.frameSize, len(frame))
	e.output = common.RMS(frame[:n])
	return e.output
}

// Output returns the energy computed by the last Process call
func (e *Energy) Output() float64 {
	return e.output
}
