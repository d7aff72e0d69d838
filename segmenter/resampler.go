package segmenter

import (
	"context"
	"fmt"

	resampler "github.com/tphakala/go-audio-resampler"

	"github.com/RyanBlaney/sonido-segmenter/logging"
	"github.com/RyanBlaney/sonido-segmenter/observe"
)

// converter is the streaming part of a sample-rate conversion engine. The
// engine keeps whatever input it has not consumed yet between calls.
type converter interface {
	Process(input []float64) ([]float64, error)
	Flush() ([]float64, error)
}

type converterFactory func() (converter, error)

// resetter is implemented by engines that can clear their state without
// rebuilding the filter.
type resetter interface {
	Reset()
}

// Resampler converts the host's input rate to the fixed analysis rate.
// Conversion failures are not fatal: the engine is rebuilt, its buffered
// input is lost and the call produces no output.
type Resampler struct {
	inputRate  int
	outputRate int

	factory converterFactory
	engine  converter
	scratch []float64

	logger  logging.Logger
	metrics *observe.Metrics
}

// NewResampler creates a mono resampler from inputRate to outputRate.
func NewResampler(inputRate, outputRate int, quality ResamplerQuality, logger logging.Logger, metrics *observe.Metrics) (*Resampler, error) {
	if inputRate <= 0 || outputRate <= 0 {
		return nil, fmt.Errorf("%w: resampling %d Hz to %d Hz", ErrInvalidContext, inputRate, outputRate)
	}
	quality, err := ParseResamplerQuality(string(quality))
	if err != nil {
		return nil, err
	}

	factory := func() (converter, error) {
		return newEngine(inputRate, outputRate, quality)
	}
	return newResamplerWithFactory(inputRate, outputRate, quality, factory, logger, metrics)
}

func newResamplerWithFactory(inputRate, outputRate int, quality ResamplerQuality, factory converterFactory,
	logger logging.Logger, metrics *observe.Metrics) (*Resampler, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}

	engine, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler engine: %w", err)
	}

	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		factory:    factory,
		engine:     engine,
		logger: logger.WithFields(logging.Fields{
			"component":   "resampler",
			"input_rate":  inputRate,
			"output_rate": outputRate,
			"quality":     quality,
		}),
		metrics: metrics,
	}, nil
}

func newEngine(inputRate, outputRate int, quality ResamplerQuality) (converter, error) {
	preset := resampler.QualityLow
	switch quality {
	case QualityQuick:
		preset = resampler.QualityQuick
	case QualityMedium:
		preset = resampler.QualityMedium
	case QualityHigh:
		preset = resampler.QualityHigh
	case QualityVeryHigh:
		preset = resampler.QualityVeryHigh
	}

	engine, err := resampler.NewEngine(float64(inputRate), float64(outputRate), preset)
	if err != nil {
		return nil, err
	}
	return engine, nil
}

// Process converts samples and appends whatever output the engine yields to
// out. Input the engine cannot convert yet stays buffered inside it.
func (r *Resampler) Process(samples []float32, out []float64) []float64 {
	if len(samples) == 0 {
		return out
	}
	if !r.ready() {
		return out
	}

	r.scratch = r.scratch[:0]
	for _, s := range samples {
		r.scratch = append(r.scratch, float64(s))
	}

	converted, err := r.engine.Process(r.scratch)
	if err != nil {
		r.discard(err, "process", len(samples))
		return out
	}
	return append(out, converted...)
}

// Flush drains the engine at end of stream and appends the tail to out.
// Afterwards the resampler holds no input.
func (r *Resampler) Flush(out []float64) []float64 {
	if !r.ready() {
		return out
	}

	tail, err := r.engine.Flush()
	if err != nil {
		r.discard(err, "flush", 0)
		return out
	}
	out = append(out, tail...)

	if e, ok := r.engine.(resetter); ok {
		e.Reset()
	} else {
		r.rebuild()
	}
	return out
}

// Ratio returns output samples per input sample
func (r *Resampler) Ratio() float64 {
	return float64(r.outputRate) / float64(r.inputRate)
}

func (r *Resampler) ready() bool {
	if r.engine == nil {
		r.rebuild()
	}
	return r.engine != nil
}

// discard drops the failed engine along with its buffered input
func (r *Resampler) discard(err error, stage string, samples int) {
	r.logger.Error(err, "Sample rate conversion failed, dropping buffered input", logging.Fields{
		"stage":   stage,
		"samples": samples,
	})
	r.metrics.RecordResampleError(context.Background(), stage)
	r.rebuild()
}

func (r *Resampler) rebuild() {
	engine, err := r.factory()
	if err != nil {
		r.logger.Error(err, "Failed to rebuild resampler engine")
		r.engine = nil
		return
	}
	r.engine = engine
}
