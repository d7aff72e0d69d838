package segmenter

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/RyanBlaney/sonido-segmenter/logging"
	"github.com/RyanBlaney/sonido-segmenter/observe"
)

func quietOptions(t *testing.T) []Option {
	t.Helper()
	metrics, err := observe.NewMetrics(noop.NewMeterProvider())
	require.NoError(t, err)
	return []Option{WithLogger(&logging.NoOpLogger{}), WithMetrics(metrics)}
}

// testSignal mixes a slowly gated tone with noise so every feature moves.
func testSignal(n, sampleRate int) []float32 {
	rng := rand.New(rand.NewPCG(7, 11))
	out := make([]float32, n)
	for i := range out {
		t := float64(i) / float64(sampleRate)
		gate := 0.5 + 0.5*math.Sin(2*math.Pi*3*t)
		tone := math.Sin(2 * math.Pi * 220 * t)
		out[i] = float32(0.4*gate*tone + 0.05*(rng.Float64()*2-1))
	}
	return out
}

func runChunked(t *testing.T, p *Pipeline, signal []float32, sizes []int) []ClassificationPoint {
	t.Helper()
	var points []ClassificationPoint
	for pos, i := 0, 0; pos < len(signal); i++ {
		n := min(sizes[i%len(sizes)], len(signal)-pos)
		p.ComputeStatistics(signal[pos:pos+n], false)
		points = p.ComputeClassification(points)
		pos += n
	}
	p.ComputeStatistics(nil, true)
	return p.ComputeClassification(points)
}

func TestNewPipeline_InvalidContexts(t *testing.T) {
	t.Parallel()

	in := DefaultInputContext(11025)
	fourier := DefaultFourierContext()
	stat := DefaultStatisticContext()

	tests := []struct {
		name   string
		mutate func(*InputContext, *FourierContext, *StatisticContext)
	}{
		{name: "input rate", mutate: func(i *InputContext, _ *FourierContext, _ *StatisticContext) { i.SampleRate = 0 }},
		{name: "quality", mutate: func(i *InputContext, _ *FourierContext, _ *StatisticContext) { i.ResamplerQuality = "best" }},
		{name: "analysis rate", mutate: func(_ *InputContext, f *FourierContext, _ *StatisticContext) { f.SampleRate = -1 }},
		{name: "frame size", mutate: func(_ *InputContext, f *FourierContext, _ *StatisticContext) { f.FrameSize = 1 }},
		{name: "frame step", mutate: func(_ *InputContext, f *FourierContext, _ *StatisticContext) { f.FrameStep = 0 }},
		{name: "window size", mutate: func(_ *InputContext, _ *FourierContext, s *StatisticContext) { s.WindowSize = 1 }},
		{name: "window step", mutate: func(_ *InputContext, _ *FourierContext, s *StatisticContext) { s.WindowStep = 0 }},
		{name: "step beyond window", mutate: func(_ *InputContext, _ *FourierContext, s *StatisticContext) { s.WindowStep = s.WindowSize + 1 }},
		{name: "even delta filter", mutate: func(_ *InputContext, _ *FourierContext, s *StatisticContext) { s.DeltaFilterLength = 4 }},
		{name: "short delta filter", mutate: func(_ *InputContext, _ *FourierContext, s *StatisticContext) { s.DeltaFilterLength = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			i, f, s := in, fourier, stat
			tt.mutate(&i, &f, &s)
			p, err := NewPipeline(i, f, s, quietOptions(t)...)
			assert.ErrorIs(t, err, ErrInvalidContext)
			assert.Nil(t, p)
		})
	}
}

func TestNewPipeline_InvalidModel(t *testing.T) {
	t.Parallel()

	opts := append(quietOptions(t), WithModel(&Model{Classes: []string{"only"}}))
	_, err := NewPipeline(DefaultInputContext(11025), DefaultFourierContext(), DefaultStatisticContext(), opts...)
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestPipeline_EndToEndSilence(t *testing.T) {
	t.Parallel()

	metrics, reader := newTestMetrics(t)
	fourier := DefaultFourierContext()
	stat := DefaultStatisticContext()

	p, err := NewPipeline(DefaultInputContext(fourier.SampleRate), fourier, stat,
		WithLogger(&logging.NoOpLogger{}), WithMetrics(metrics))
	require.NoError(t, err)

	// exactly 154 frames
	const frames = 154
	silence := make([]float32, fourier.FrameSize+(frames-1)*fourier.FrameStep)
	p.ComputeStatistics(silence, true)
	require.Len(t, p.Frames(), frames)

	windows := p.PendingWindows()
	require.Len(t, windows, 2)
	for _, w := range windows {
		assert.Equal(t, 0.0, w.EnergyFlux)
	}

	points := p.ComputeClassification(nil)
	require.Len(t, points, 2)

	anchor := 66.0 * 512 / 11025
	step := 22.0 * 512 / 11025
	gotAnchor, gotStep := p.Timing()
	assert.InDelta(t, anchor, gotAnchor, 1e-12)
	assert.InDelta(t, step, gotStep, 1e-12)

	for i, pt := range points {
		assert.InDelta(t, anchor+float64(i)*step, pt.Timestamp, 1e-9)
		assert.GreaterOrEqual(t, pt.Value, 0.0)
		assert.LessOrEqual(t, pt.Value, 1.0)
		assert.Len(t, pt.Probabilities, 3)
	}
	assert.Greater(t, points[1].Timestamp, points[0].Timestamp)
	assert.Empty(t, p.ComputeClassification(nil), "points are drained once")

	assert.Equal(t, int64(frames), counterValue(t, reader, "segmenter.frames"))
	assert.Equal(t, int64(2), counterValue(t, reader, "segmenter.windows"))
	assert.Equal(t, int64(2), counterValue(t, reader, "segmenter.points"))
}

func TestPipeline_ChunkingInvariance(t *testing.T) {
	t.Parallel()

	fourier := FourierContext{SampleRate: 8000, FrameSize: 256, FrameStep: 128}
	stat := StatisticContext{WindowSize: 20, WindowStep: 5, DeltaFilterLength: 5}
	signal := testSignal(8000*4, fourier.SampleRate)

	run := func(sizes []int) []ClassificationPoint {
		p, err := NewPipeline(DefaultInputContext(fourier.SampleRate), fourier, stat, quietOptions(t)...)
		require.NoError(t, err)
		return runChunked(t, p, signal, sizes)
	}

	whole := run([]int{len(signal)})
	require.NotEmpty(t, whole)

	// 249 frames of 256 samples every 128
	assert.Len(t, whole, (249-20)/5+1)

	for _, sizes := range [][]int{{1}, {7, 333, 1000}, {128}, {255, 257, 4096}} {
		chunked := run(sizes)
		require.Len(t, chunked, len(whole), "chunk sizes %v", sizes)
		for i := range whole {
			assert.InDelta(t, whole[i].Timestamp, chunked[i].Timestamp, 1e-12)
			assert.InDelta(t, whole[i].Value, chunked[i].Value, 1e-12, "point %d, chunk sizes %v", i, sizes)
		}
	}
}

func TestPipeline_ChunkingInvarianceWithResampling(t *testing.T) {
	t.Parallel()

	fourier := FourierContext{SampleRate: 8000, FrameSize: 256, FrameStep: 128}
	stat := StatisticContext{WindowSize: 20, WindowStep: 5, DeltaFilterLength: 5}
	signal := testSignal(16000*4, 16000)

	run := func(sizes []int) []ClassificationPoint {
		p, err := NewPipeline(DefaultInputContext(16000), fourier, stat, quietOptions(t)...)
		require.NoError(t, err)
		return runChunked(t, p, signal, sizes)
	}

	whole := run([]int{len(signal)})
	require.NotEmpty(t, whole)

	for _, sizes := range [][]int{{1}, {7, 333, 1000}, {4096}} {
		chunked := run(sizes)
		require.Len(t, chunked, len(whole), "chunk sizes %v", sizes)
		for i := range whole {
			assert.InDelta(t, whole[i].Timestamp, chunked[i].Timestamp, 1e-12)
			assert.InDelta(t, whole[i].Value, chunked[i].Value, 1e-9, "point %d, chunk sizes %v", i, sizes)
		}
	}
}

func TestPipeline_FrameFeatures(t *testing.T) {
	t.Parallel()

	fourier := FourierContext{SampleRate: 11025, FrameSize: 1024, FrameStep: 512}
	p, err := NewPipeline(DefaultInputContext(11025), fourier, DefaultStatisticContext(), quietOptions(t)...)
	require.NoError(t, err)

	tone := make([]float32, 1024+512*3)
	for i := range tone {
		tone[i] = float32(0.5 * math.Sin(2*math.Pi*441*float64(i)/11025))
	}
	p.ComputeStatistics(tone, false)

	frames := p.Frames()
	require.Len(t, frames, 4)
	for _, f := range frames {
		assert.InDelta(t, 0.5/math.Sqrt2, f.Energy, 0.01)
		assert.Less(t, f.Entropy, 0.5, "a pure tone concentrates in-band power")
		assert.Greater(t, f.Tonality, 0.5)
		assert.GreaterOrEqual(t, f.PitchDensity, 0.0)
		assert.LessOrEqual(t, f.PitchDensity, 1.0)
	}
}

func TestPipeline_FrameStepBeyondFrameSize(t *testing.T) {
	t.Parallel()

	fourier := FourierContext{SampleRate: 8000, FrameSize: 64, FrameStep: 100}
	stat := StatisticContext{WindowSize: 4, WindowStep: 2, DeltaFilterLength: 3}
	signal := testSignal(1064, fourier.SampleRate)

	count := func(sizes []int) int {
		p, err := NewPipeline(DefaultInputContext(fourier.SampleRate), fourier, stat, quietOptions(t)...)
		require.NoError(t, err)
		frames := 0
		for pos, i := 0, 0; pos < len(signal); i++ {
			n := min(sizes[i%len(sizes)], len(signal)-pos)
			p.ComputeStatistics(signal[pos:pos+n], false)
			frames += len(p.Frames())
			pos += n
		}
		return frames
	}

	// frame starts 0, 100, ..., 1000
	assert.Equal(t, 11, count([]int{len(signal)}))
	assert.Equal(t, 11, count([]int{30}))
	assert.Equal(t, 11, count([]int{1}))
}

func TestPipeline_IgnoresInputAfterEndOfStream(t *testing.T) {
	t.Parallel()

	fourier := FourierContext{SampleRate: 8000, FrameSize: 256, FrameStep: 128}
	stat := StatisticContext{WindowSize: 4, WindowStep: 2, DeltaFilterLength: 3}
	p, err := NewPipeline(DefaultInputContext(8000), fourier, stat, quietOptions(t)...)
	require.NoError(t, err)

	p.ComputeStatistics(testSignal(4000, 8000), true)
	first := p.ComputeClassification(nil)
	require.NotEmpty(t, first)

	p.ComputeStatistics(testSignal(4000, 8000), true)
	assert.Empty(t, p.Frames())
	assert.Empty(t, p.ComputeClassification(nil))
}

func TestPipeline_Resampling(t *testing.T) {
	t.Parallel()

	fourier := DefaultFourierContext()
	stat := StatisticContext{WindowSize: 10, WindowStep: 5, DeltaFilterLength: 5}
	p, err := NewPipeline(DefaultInputContext(22050), fourier, stat, quietOptions(t)...)
	require.NoError(t, err)

	signal := testSignal(22050*3, 22050)
	points := runChunked(t, p, signal, []int{4410})

	// about 64 frames at 11025 Hz
	require.NotEmpty(t, points)
	assert.InDelta(t, 11, len(points), 2)
	for _, pt := range points {
		assert.GreaterOrEqual(t, pt.Value, 0.0)
		assert.LessOrEqual(t, pt.Value, 1.0)
	}
}
