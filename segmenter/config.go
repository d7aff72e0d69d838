package segmenter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidContext is wrapped by every sizing or rate validation failure.
var ErrInvalidContext = errors.New("invalid segmenter context")

// ResamplerQuality selects the sample-rate converter preset
type ResamplerQuality string

const (
	QualityQuick    ResamplerQuality = "quick"
	QualityLow      ResamplerQuality = "low"
	QualityMedium   ResamplerQuality = "medium"
	QualityHigh     ResamplerQuality = "high"
	QualityVeryHigh ResamplerQuality = "very-high"
)

// DefaultResamplerQuality is the cheapest preset that keeps speech-band
// aliasing well below the analysis noise floor.
const DefaultResamplerQuality = QualityLow

// ParseResamplerQuality maps a preset name to a ResamplerQuality. An empty
// name selects the default.
func ParseResamplerQuality(name string) (ResamplerQuality, error) {
	switch q := ResamplerQuality(strings.ToLower(strings.TrimSpace(name))); q {
	case "":
		return DefaultResamplerQuality, nil
	case QualityQuick, QualityLow, QualityMedium, QualityHigh, QualityVeryHigh:
		return q, nil
	default:
		return DefaultResamplerQuality, fmt.Errorf("%w: unknown resampler quality %q", ErrInvalidContext, name)
	}
}

// InputContext describes the audio handed to the pipeline
type InputContext struct {
	SampleRate       int              `json:"sample_rate" yaml:"sample_rate"`
	ResamplerQuality ResamplerQuality `json:"resampler_quality" yaml:"resampler_quality"`
}

// FourierContext sizes the frame-wise spectral analysis
type FourierContext struct {
	SampleRate int `json:"sample_rate" yaml:"sample_rate"`
	FrameSize  int `json:"frame_size" yaml:"frame_size"`
	FrameStep  int `json:"frame_step" yaml:"frame_step"`
}

// StatisticContext sizes the sliding statistics window. Window sizes and
// steps are counted in analysis frames.
type StatisticContext struct {
	WindowSize        int `json:"window_size" yaml:"window_size"`
	WindowStep        int `json:"window_step" yaml:"window_step"`
	DeltaFilterLength int `json:"delta_filter_length" yaml:"delta_filter_length"`

	// ReplicateEntropyDeltaVariance makes all three delta-MFCC variances
	// report the entropy-delta variance, as models trained on the legacy
	// feature extractor expect.
	ReplicateEntropyDeltaVariance bool `json:"replicate_entropy_delta_variance" yaml:"replicate_entropy_delta_variance"`
}

// DefaultInputContext returns an input context for audio at sampleRate
func DefaultInputContext(sampleRate int) InputContext {
	return InputContext{
		SampleRate:       sampleRate,
		ResamplerQuality: DefaultResamplerQuality,
	}
}

// DefaultFourierContext returns the standard analysis sizing: 1024-sample
// frames every 512 samples at 11025 Hz.
func DefaultFourierContext() FourierContext {
	return FourierContext{
		SampleRate: 11025,
		FrameSize:  1024,
		FrameStep:  512,
	}
}

// DefaultStatisticContext returns a window of 132 frames (about 6 s at the
// default analysis sizing) advancing by 22 frames (about 1 s).
func DefaultStatisticContext() StatisticContext {
	return StatisticContext{
		WindowSize:        132,
		WindowStep:        22,
		DeltaFilterLength: 5,
	}
}

// Validate checks the input context
func (c InputContext) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: input sample rate %d must be positive", ErrInvalidContext, c.SampleRate)
	}
	if _, err := ParseResamplerQuality(string(c.ResamplerQuality)); err != nil {
		return err
	}
	return nil
}

// Validate checks the analysis context
func (c FourierContext) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: analysis sample rate %d must be positive", ErrInvalidContext, c.SampleRate)
	}
	if c.FrameSize < 2 {
		return fmt.Errorf("%w: frame size %d must be at least 2", ErrInvalidContext, c.FrameSize)
	}
	if c.FrameStep <= 0 {
		return fmt.Errorf("%w: frame step %d must be positive", ErrInvalidContext, c.FrameStep)
	}
	return nil
}

// Validate checks the statistics context
func (c StatisticContext) Validate() error {
	if c.WindowSize < 2 {
		return fmt.Errorf("%w: window size %d must be at least 2", ErrInvalidContext, c.WindowSize)
	}
	if c.WindowStep <= 0 {
		return fmt.Errorf("%w: window step %d must be positive", ErrInvalidContext, c.WindowStep)
	}
	if c.WindowStep > c.WindowSize {
		return fmt.Errorf("%w: window step %d exceeds window size %d", ErrInvalidContext, c.WindowStep, c.WindowSize)
	}
	if c.DeltaFilterLength < 3 || c.DeltaFilterLength%2 == 0 {
		return fmt.Errorf("%w: delta filter length %d must be odd and at least 3", ErrInvalidContext, c.DeltaFilterLength)
	}
	return nil
}
