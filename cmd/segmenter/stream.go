package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"

	"github.com/RyanBlaney/sonido-segmenter/logging"
	"github.com/RyanBlaney/sonido-segmenter/observe"
	"github.com/RyanBlaney/sonido-segmenter/segmenter"
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Segment raw PCM read from stdin",
	Long: `Read little-endian float32 mono PCM from stdin until EOF and print one
"timestamp<TAB>value" line per point as soon as it is available.

Examples:
  # Live capture at 48 kHz
  ffmpeg -i http://radio.example/stream -f f32le -ac 1 -ar 48000 - | segmenter stream --input-rate 48000

  # Expose Prometheus metrics while streaming
  segmenter stream --input-rate 44100 --metrics-addr :9464 < capture.f32`,
	Args: cobra.NoArgs,
	RunE: runStream,
}

func init() {
	streamCmd.Flags().Int("input-rate", 0, "sample rate of the PCM on stdin in Hz (required)")
	streamCmd.Flags().Int("chunk-size", 4096, "samples read from stdin per call")
	streamCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9464")

	rootCmd.AddCommand(streamCmd)
}

func runStream(cmd *cobra.Command, args []string) error {
	inputRate := viper.GetInt("input-rate")
	if inputRate <= 0 {
		return fmt.Errorf("--input-rate must be a positive sample rate")
	}
	chunkSize := viper.GetInt("chunk-size")
	if chunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	logger := logging.Component("stream")

	if addr := viper.GetString("metrics-addr"); addr != "" {
		shutdown, err := serveMetrics(ctx, addr, logger)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logger.Error(err, "Metrics shutdown failed")
			}
		}()
	}

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}
	pipeline, err := cfg.newPipeline(inputRate, logger, metrics)
	if err != nil {
		return err
	}

	return pumpPCM(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), chunkSize, pipeline)
}

// streamingPipeline is the part of segmenter.Pipeline the stream loop drives
type streamingPipeline interface {
	ComputeStatistics(samples []float32, endOfStream bool)
	ComputeClassification(out []segmenter.ClassificationPoint) []segmenter.ClassificationPoint
}

// pumpPCM feeds float32 LE samples from r to the pipeline and writes points
// to w as they appear.
func pumpPCM(ctx context.Context, r io.Reader, w io.Writer, chunkSize int, pipeline streamingPipeline) error {
	out := bufio.NewWriter(w)
	raw := make([]byte, chunkSize*4)
	samples := make([]float32, chunkSize)
	var points []segmenter.ClassificationPoint
	carry := 0

	emit := func() error {
		points = pipeline.ComputeClassification(points[:0])
		for _, pt := range points {
			fmt.Fprintf(out, "%.3f\t%.4f\n", pt.Timestamp, pt.Value)
		}
		return out.Flush()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(raw[carry:])
		total := carry + n
		count := total / 4
		for i := range count {
			samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
		}
		carry = copy(raw, raw[4*count:total])

		if count > 0 {
			pipeline.ComputeStatistics(samples[:count], false)
			if werr := emit(); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read PCM: %w", err)
		}
	}

	pipeline.ComputeStatistics(nil, true)
	return emit()
}

// serveMetrics installs the Prometheus-backed provider and serves it on addr
func serveMetrics(ctx context.Context, addr string, logger logging.Logger) (func(context.Context) error, error) {
	shutdownProvider, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "segmenter"})
	if err != nil {
		return nil, fmt.Errorf("failed to initialise metrics provider: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Serving metrics", logging.Fields{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "Metrics server failed")
		}
	}()

	return func(ctx context.Context) error {
		return errors.Join(srv.Shutdown(ctx), shutdownProvider(ctx))
	}, nil
}
