package segmenter

import (
	"fmt"

	"github.com/RyanBlaney/sonido-segmenter/algorithms/common"
	"github.com/RyanBlaney/sonido-segmenter/logging"
)

type statisticsState int

const (
	stateUninitialized statisticsState = iota
	stateStreaming
	stateFlushed
)

// Statistics aggregates frame features over a sliding window.
//
// Frames are buffered together with their delta features. The buffer front
// is padded with copies of the first frame when streaming starts and the
// back with copies of the last frame on Flush, so that every real frame has
// a centered delta. Once the window has been emitted for a position, the
// buffered prefix before it is dropped; memory is bounded by the window
// size.
type Statistics struct {
	ctx    StatisticContext
	half   int
	filter []float64

	inputs []FrameFeatureVector
	deltas []DeltaFeature
	output []OutputFeatures
	last   FrameFeatureVector
	state  statisticsState

	// per-feature window scratch
	entropy, mfcc2, mfcc3, mfcc4, energy []float64
	dEntropy, dMFCC2, dMFCC3, dMFCC4     []float64

	logger logging.Logger
}

// NewStatistics creates a statistics aggregator.
func NewStatistics(ctx StatisticContext, logger logging.Logger) (*Statistics, error) {
	if err := ctx.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	w := ctx.WindowSize
	s := &Statistics{
		ctx:      ctx,
		half:     (ctx.DeltaFilterLength - 1) / 2,
		filter:   DeltaFilter(ctx.DeltaFilterLength),
		entropy:  make([]float64, w),
		mfcc2:    make([]float64, w),
		mfcc3:    make([]float64, w),
		mfcc4:    make([]float64, w),
		energy:   make([]float64, w),
		dEntropy: make([]float64, w),
		dMFCC2:   make([]float64, w),
		dMFCC3:   make([]float64, w),
		dMFCC4:   make([]float64, w),
		logger: logger.WithFields(logging.Fields{
			"component": "statistics",
		}),
	}
	return s, nil
}

// DeltaFilter returns the regression-slope kernel of the given odd length:
// f[i+half] = i / sum(i^2) for i in [-half, half].
func DeltaFilter(length int) []float64 {
	if length < 3 || length%2 == 0 {
		panic(fmt.Sprintf("segmenter: delta filter length %d must be odd and at least 3", length))
	}

	half := (length - 1) / 2
	sum := 0.0
	for i := -half; i <= half; i++ {
		sum += float64(i * i)
	}

	filter := make([]float64, length)
	for i := -half; i <= half; i++ {
		filter[half+i] = float64(i) / sum
	}
	return filter
}

// Process adds one frame and returns the windows it completed. The returned
// slice is reused by the next Process or Flush call.
func (s *Statistics) Process(frame FrameFeatureVector) []OutputFeatures {
	s.output = s.output[:0]

	switch s.state {
	case stateFlushed:
		s.logger.Warn("Frame received after flush, ignoring")
		return s.output
	case stateUninitialized:
		for range s.half {
			s.inputs = append(s.inputs, frame)
		}
		s.state = stateStreaming
	}

	s.inputs = append(s.inputs, frame)
	s.last = frame
	s.compute()

	return s.output
}

// Flush pads the stream end and returns the remaining full windows. Flushing
// before any frame arrived emits nothing.
func (s *Statistics) Flush() []OutputFeatures {
	s.output = s.output[:0]

	switch s.state {
	case stateFlushed:
		s.logger.Warn("Statistics already flushed")
		return s.output
	case stateUninitialized:
		s.state = stateFlushed
		return s.output
	}

	for range s.half {
		s.inputs = append(s.inputs, s.last)
	}
	s.state = stateFlushed
	s.compute()

	s.logger.Debug("Statistics flushed", logging.Fields{
		"windows":         len(s.output),
		"buffered_frames": len(s.inputs),
	})
	return s.output
}

// Buffered returns the number of frames and deltas currently held
func (s *Statistics) Buffered() (frames, deltas int) {
	return len(s.inputs), len(s.deltas)
}

func (s *Statistics) compute() {
	if len(s.inputs) < len(s.filter) {
		return
	}

	for idx := len(s.deltas); idx <= len(s.inputs)-len(s.filter); idx++ {
		s.deltas = append(s.deltas, s.delta(idx))
	}

	idx := 0
	for ; idx <= len(s.deltas)-s.ctx.WindowSize; idx += s.ctx.WindowStep {
		s.output = append(s.output, s.window(idx))
	}

	// a step never exceeds the window, so idx <= len(s.deltas) < len(s.inputs)
	s.inputs = append(s.inputs[:0], s.inputs[idx:]...)
	s.deltas = append(s.deltas[:0], s.deltas[idx:]...)
}

// delta applies the filter to the frames starting at idx
func (s *Statistics) delta(idx int) DeltaFeature {
	var d DeltaFeature
	for j, f := range s.filter {
		in := &s.inputs[idx+j]
		d.Entropy += f * in.Entropy
		d.MFCC2 += f * in.MFCC2
		d.MFCC3 += f * in.MFCC3
		d.MFCC4 += f * in.MFCC4
	}
	return d
}

// window summarises the frames at [idx+half, idx+half+W) and the deltas at
// [idx, idx+W).
func (s *Statistics) window(idx int) OutputFeatures {
	inputs := s.inputs[idx+s.half : idx+s.half+s.ctx.WindowSize]
	deltas := s.deltas[idx : idx+s.ctx.WindowSize]

	for i, in := range inputs {
		s.entropy[i] = in.Entropy
		s.mfcc2[i] = in.MFCC2
		s.mfcc3[i] = in.MFCC3
		s.mfcc4[i] = in.MFCC4
		s.energy[i] = in.Energy
	}
	for i, d := range deltas {
		s.dEntropy[i] = d.Entropy
		s.dMFCC2[i] = d.MFCC2
		s.dMFCC3[i] = d.MFCC3
		s.dMFCC4[i] = d.MFCC4
	}

	out := OutputFeatures{
		EntropyMean:     common.Mean(s.entropy),
		MFCC2Var:        common.Variance(s.mfcc2),
		MFCC3Var:        common.Variance(s.mfcc3),
		MFCC4Var:        common.Variance(s.mfcc4),
		DeltaEntropyVar: common.Variance(s.dEntropy),
	}

	if s.ctx.ReplicateEntropyDeltaVariance {
		out.DeltaMFCC2Var = out.DeltaEntropyVar
		out.DeltaMFCC3Var = out.DeltaEntropyVar
		out.DeltaMFCC4Var = out.DeltaEntropyVar
	} else {
		out.DeltaMFCC2Var = common.Variance(s.dMFCC2)
		out.DeltaMFCC3Var = common.Variance(s.dMFCC3)
		out.DeltaMFCC4Var = common.Variance(s.dMFCC4)
	}

	energyMean, energyVar := common.MeanVariance(s.energy)
	if energyMean != 0 {
		out.EnergyFlux = energyVar / (energyMean * energyMean)
	}

	return out
}
