// Package observe provides OpenTelemetry metric instruments for the
// segmenter and a Prometheus-backed provider for hosts that expose them.
//
// Components take a [*Metrics] built with [NewMetrics]. Tests should pass a
// provider backed by an sdk ManualReader; hosts that do not care about
// metrics can use [DefaultMetrics], which records into the global provider
// (a no-op until [InitProvider] installs one).
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all segmenter metrics.
const meterName = "github.com/RyanBlaney/sonido-segmenter"

// Metrics holds the segmenter's metric instruments. All fields are safe for
// concurrent use, so pipelines running on different goroutines may share one.
type Metrics struct {
	// Frames counts analysis frames pushed through the feature stages.
	Frames metric.Int64Counter

	// Windows counts completed statistics windows.
	Windows metric.Int64Counter

	// Points counts emitted classification points.
	Points metric.Int64Counter

	// ResampleErrors counts recovered sample-rate conversion failures.
	// Use with attribute.String("stage", "process"|"flush").
	ResampleErrors metric.Int64Counter

	// ComputeDuration tracks the wall time of one statistics call.
	ComputeDuration metric.Float64Histogram
}

var computeBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1,
}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Frames, err = m.Int64Counter("segmenter.frames",
		metric.WithDescription("Analysis frames processed."),
	); err != nil {
		return nil, err
	}
	if met.Windows, err = m.Int64Counter("segmenter.windows",
		metric.WithDescription("Statistics windows completed."),
	); err != nil {
		return nil, err
	}
	if met.Points, err = m.Int64Counter("segmenter.points",
		metric.WithDescription("Classification points emitted."),
	); err != nil {
		return nil, err
	}
	if met.ResampleErrors, err = m.Int64Counter("segmenter.resample.errors",
		metric.WithDescription("Sample-rate conversion failures recovered by dropping buffered input."),
	); err != nil {
		return nil, err
	}
	if met.ComputeDuration, err = m.Float64Histogram("segmenter.compute.duration",
		metric.WithDescription("Latency of one statistics computation call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(computeBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a lazily created Metrics bound to the global
// MeterProvider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordFrames adds n processed frames.
func (m *Metrics) RecordFrames(ctx context.Context, n int) {
	if n > 0 {
		m.Frames.Add(ctx, int64(n))
	}
}

// RecordWindows adds n completed statistics windows.
func (m *Metrics) RecordWindows(ctx context.Context, n int) {
	if n > 0 {
		m.Windows.Add(ctx, int64(n))
	}
}

// RecordPoints adds n emitted classification points.
func (m *Metrics) RecordPoints(ctx context.Context, n int) {
	if n > 0 {
		m.Points.Add(ctx, int64(n))
	}
}

// RecordResampleError counts one conversion failure in the given stage.
func (m *Metrics) RecordResampleError(ctx context.Context, stage string) {
	m.ResampleErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordCompute records the duration of one statistics call.
func (m *Metrics) RecordCompute(ctx context.Context, d time.Duration) {
	m.ComputeDuration.Record(ctx, d.Seconds())
}
