package segmenter

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/RyanBlaney/sonido-segmenter/algorithms/chroma"
	"github.com/RyanBlaney/sonido-segmenter/algorithms/spectral"
	"github.com/RyanBlaney/sonido-segmenter/algorithms/temporal"
	"github.com/RyanBlaney/sonido-segmenter/algorithms/tonal"
	"github.com/RyanBlaney/sonido-segmenter/logging"
	"github.com/RyanBlaney/sonido-segmenter/observe"
)

// Option configures a Pipeline
type Option func(*options)

type options struct {
	logger  logging.Logger
	metrics *observe.Metrics
	model   *Model
}

// WithLogger sets the logger the pipeline and its stages log through
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metric instruments the pipeline records into
func WithMetrics(metrics *observe.Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithModel sets the classifier parameters. DefaultModel is used otherwise.
func WithModel(model *Model) Option {
	return func(o *options) {
		o.model = model
	}
}

// Pipeline turns a mono PCM stream into a timestamped classification curve.
//
// The host alternates ComputeStatistics, which consumes audio, with
// ComputeClassification, which drains the windows completed so far. Frame
// and window boundaries depend only on the cumulative sample count, so the
// output does not depend on how the input is chunked.
//
// A Pipeline is not safe for concurrent use.
type Pipeline struct {
	input   InputContext
	fourier FourierContext
	stat    StatisticContext

	resampler  *Resampler // nil when the input is already at the analysis rate
	energy     *temporal.Energy
	power      *spectral.PowerSpectrum
	mel        *spectral.MelSpectrum
	mfcc       *spectral.MFCC
	entropy    *chroma.ChromaticEntropy
	modulation *temporal.FourHzModulation
	cepstrum   *spectral.RealCepstrum
	cepstral   *tonal.CepstralFeatures
	statistics *Statistics
	classifier *Classifier

	buffer    []float64 // analysis-rate samples not yet framed
	skip      int       // samples to drop before the next frame when the step exceeds the frame
	magnitude []float64
	frames    []FrameFeatureVector
	pending   []OutputFeatures
	emitted   int
	flushed   bool

	anchor float64
	step   float64

	logger  logging.Logger
	metrics *observe.Metrics
}

// NewPipeline validates the contexts and builds every stage.
func NewPipeline(in InputContext, fourier FourierContext, stat StatisticContext, opts ...Option) (*Pipeline, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.GetGlobalLogger()
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	if o.model == nil {
		o.model = DefaultModel()
	}

	if in.ResamplerQuality == "" {
		in.ResamplerQuality = DefaultResamplerQuality
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := fourier.Validate(); err != nil {
		return nil, err
	}
	if err := stat.Validate(); err != nil {
		return nil, err
	}

	classifier, err := NewClassifier(o.model)
	if err != nil {
		return nil, err
	}
	statistics, err := NewStatistics(stat, o.logger)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		input:      in,
		fourier:    fourier,
		stat:       stat,
		energy:     temporal.NewEnergy(fourier.FrameSize),
		power:      spectral.NewPowerSpectrum(fourier.FrameSize),
		mel:        spectral.NewMelSpectrum(spectral.DefaultMelBands, fourier.SampleRate, fourier.FrameSize),
		mfcc:       spectral.NewMFCC(spectral.DefaultMelBands, spectral.DefaultMFCCCoefficients),
		entropy:    chroma.NewChromaticEntropy(fourier.SampleRate, fourier.FrameSize, chroma.DefaultEntropyLowFreq, chroma.DefaultEntropyHighFreq),
		modulation: temporal.NewFourHzModulation(spectral.DefaultMelBands, fourier.SampleRate, fourier.FrameStep),
		cepstrum:   spectral.NewRealCepstrum(fourier.FrameSize),
		cepstral:   tonal.NewCepstralFeatures(fourier.SampleRate, fourier.FrameSize),
		statistics: statistics,
		classifier: classifier,
		magnitude:  make([]float64, fourier.FrameSize/2+1),
		anchor:     float64(stat.WindowSize) / 2 * float64(fourier.FrameStep) / float64(fourier.SampleRate),
		step:       float64(stat.WindowStep) * float64(fourier.FrameStep) / float64(fourier.SampleRate),
		logger: o.logger.WithFields(logging.Fields{
			"component": "pipeline",
		}),
		metrics: o.metrics,
	}

	if in.SampleRate != fourier.SampleRate {
		p.resampler, err = NewResampler(in.SampleRate, fourier.SampleRate, in.ResamplerQuality, o.logger, o.metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create resampler: %w", err)
		}
	}

	p.logger.Debug("Pipeline created", logging.Fields{
		"input_rate":    in.SampleRate,
		"analysis_rate": fourier.SampleRate,
		"frame_size":    fourier.FrameSize,
		"frame_step":    fourier.FrameStep,
		"window_size":   stat.WindowSize,
		"window_step":   stat.WindowStep,
		"resampling":    p.resampler != nil,
		"model":         o.model.Name,
	})

	return p, nil
}

// ComputeStatistics consumes the next chunk of mono input. The final chunk,
// which may be empty, must set endOfStream; calls after that are ignored.
func (p *Pipeline) ComputeStatistics(samples []float32, endOfStream bool) {
	p.frames = p.frames[:0]
	if p.flushed {
		p.logger.Warn("Audio received after end of stream, ignoring", logging.Fields{
			"samples": len(samples),
		})
		return
	}

	start := time.Now()
	ctx := context.Background()

	if p.resampler != nil {
		p.buffer = p.resampler.Process(samples, p.buffer)
		if endOfStream {
			p.buffer = p.resampler.Flush(p.buffer)
		}
	} else {
		for _, s := range samples {
			p.buffer = append(p.buffer, float64(s))
		}
	}

	if p.skip > 0 {
		n := min(p.skip, len(p.buffer))
		p.buffer = append(p.buffer[:0], p.buffer[n:]...)
		p.skip -= n
	}

	windows := 0

	pos := 0
	for ; pos+p.fourier.FrameSize <= len(p.buffer); pos += p.fourier.FrameStep {
		frame := p.analyze(p.buffer[pos : pos+p.fourier.FrameSize])
		p.frames = append(p.frames, frame)

		completed := p.statistics.Process(frame)
		p.pending = append(p.pending, completed...)
		windows += len(completed)
	}

	if pos > len(p.buffer) {
		p.skip = pos - len(p.buffer)
		pos = len(p.buffer)
	}
	p.buffer = append(p.buffer[:0], p.buffer[pos:]...)

	if endOfStream {
		completed := p.statistics.Flush()
		p.pending = append(p.pending, completed...)
		windows += len(completed)
		p.flushed = true

		p.logger.Debug("End of stream", logging.Fields{
			"discarded_samples": len(p.buffer),
			"pending_windows":   len(p.pending),
		})
		p.buffer = p.buffer[:0]
	}

	p.metrics.RecordFrames(ctx, len(p.frames))
	p.metrics.RecordWindows(ctx, windows)
	p.metrics.RecordCompute(ctx, time.Since(start))
}

// ComputeClassification classifies every window completed since the last
// call and appends one point per window to out.
func (p *Pipeline) ComputeClassification(out []ClassificationPoint) []ClassificationPoint {
	for _, features := range p.pending {
		probs := p.classifier.Process(features)
		out = append(out, ClassificationPoint{
			Timestamp:     p.anchor + float64(p.emitted)*p.step,
			Value:         Reduce(probs),
			Probabilities: slices.Clone(probs),
		})
		p.emitted++
	}

	p.metrics.RecordPoints(context.Background(), len(p.pending))
	p.pending = p.pending[:0]

	return out
}

// Frames returns the frame features computed by the last ComputeStatistics
// call. The slice is reused by the next call.
func (p *Pipeline) Frames() []FrameFeatureVector {
	return p.frames
}

// PendingWindows returns the statistics windows completed but not yet
// classified. The slice is reused once ComputeClassification drains it.
func (p *Pipeline) PendingWindows() []OutputFeatures {
	return p.pending
}

// Classes returns the classifier's class labels
func (p *Pipeline) Classes() []string {
	return p.classifier.Classes()
}

// Timing returns the timestamp of the first point and the spacing between
// points, in seconds.
func (p *Pipeline) Timing() (anchor, step float64) {
	return p.anchor, p.step
}

// analyze runs the per-frame feature stages
func (p *Pipeline) analyze(frame []float64) FrameFeatureVector {
	energy := p.energy.Process(frame)

	power := p.power.Process(frame)
	for i, v := range power {
		p.magnitude[i] = math.Sqrt(v)
	}

	mel := p.mel.Process(p.magnitude)
	coeffs := p.mfcc.Process(mel)
	entropy := p.entropy.Process(power)
	modulation := p.modulation.Process(mel)
	cepstrum := p.cepstrum.Process(p.magnitude)
	p.cepstral.Process(p.magnitude, cepstrum)

	return FrameFeatureVector{
		Energy:           energy,
		Entropy:          entropy,
		MFCC2:            coeffs[1],
		MFCC3:            coeffs[2],
		MFCC4:            coeffs[3],
		PitchDensity:     p.cepstral.PitchDensity(),
		Tonality:         p.cepstral.Tonality(),
		Tonality1:        p.cepstral.Tonality1(),
		FourHzModulation: modulation,
	}
}
