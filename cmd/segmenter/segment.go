package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-segmenter/logging"
	"github.com/RyanBlaney/sonido-segmenter/observe"
	"github.com/RyanBlaney/sonido-segmenter/segmenter"
	"github.com/RyanBlaney/sonido-segmenter/transcode"
)

var segmentCmd = &cobra.Command{
	Use:   "segment [flags] files...",
	Short: "Segment audio files",
	Long: `Decode each file (WAV, AIFF, MP3 or Ogg Vorbis), downmix it to mono and
print its classification curve.

Examples:
  # Print a table for one file
  segmenter segment interview.wav

  # Score a directory with eight workers, one JSON file per input
  segmenter segment --jobs 8 --output json --output-dir out/ recordings/*.mp3

  # Use a trained model and a finer statistics step
  segmenter segment --model models/broadcast.yaml --window-step 11 show.ogg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSegment,
}

func init() {
	segmentCmd.Flags().StringP("output", "o", "table", "output format (json, yaml, csv, table)")
	segmentCmd.Flags().String("output-dir", "", "write one result file per input into this directory instead of stdout")
	segmentCmd.Flags().IntP("jobs", "j", 4, "files decoded and segmented concurrently")
	segmentCmd.Flags().Int("chunk-size", 4096, "mono samples handed to the pipeline per call")

	rootCmd.AddCommand(segmentCmd)
}

func runSegment(cmd *cobra.Command, args []string) error {
	format := outputFormat(strings.ToLower(viper.GetString("output")))
	if !format.valid() {
		return fmt.Errorf("unknown output format %q", format)
	}
	jobs := viper.GetInt("jobs")
	if jobs <= 0 {
		return fmt.Errorf("jobs must be positive, got %d", jobs)
	}
	chunkSize := viper.GetInt("chunk-size")
	if chunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	outputDir := viper.GetString("output-dir")
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	logger := logging.Component("segment")
	decoder := transcode.NewDecoder(nil, logger)
	metrics := observe.DefaultMetrics()

	results := make([]*fileResult, len(args))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(jobs)

	for i, path := range args {
		g.Go(func() error {
			res, err := segmentFile(ctx, cfg, decoder, path, chunkSize, logger, metrics)
			if err != nil {
				return err
			}
			if outputDir == "" {
				results[i] = res
				return nil
			}
			return writeResultFile(outputDir, format, res)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if outputDir != "" {
		return nil
	}
	out := cmd.OutOrStdout()
	for _, res := range results {
		if err := writeResult(out, format, res); err != nil {
			return err
		}
	}
	return nil
}

// segmentFile streams one file through a fresh pipeline
func segmentFile(ctx context.Context, cfg *settings, decoder *transcode.Decoder, path string, chunkSize int,
	logger logging.Logger, metrics *observe.Metrics) (*fileResult, error) {

	stream, err := decoder.Open(path)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	logger = logger.WithFields(logging.Fields{"path": path})
	pipeline, err := cfg.newPipeline(stream.SampleRate(), logger, metrics)
	if err != nil {
		return nil, err
	}

	var points []segmenter.ClassificationPoint
	chunk := make([]float32, chunkSize)
	samples := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := stream.Read(chunk)
		if n > 0 {
			pipeline.ComputeStatistics(chunk[:n], false)
			points = pipeline.ComputeClassification(points)
			samples += n
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}
	pipeline.ComputeStatistics(nil, true)
	points = pipeline.ComputeClassification(points)

	logger.Info("File segmented", logging.Fields{
		"format":      stream.Metadata.Format,
		"sample_rate": stream.SampleRate(),
		"samples":     samples,
		"points":      len(points),
	})

	return &fileResult{
		Path:       path,
		SampleRate: stream.SampleRate(),
		Duration:   float64(samples) / float64(stream.SampleRate()),
		Classes:    pipeline.Classes(),
		Points:     points,
	}, nil
}

func writeResultFile(dir string, format outputFormat, res *fileResult) error {
	base := strings.TrimSuffix(filepath.Base(res.Path), filepath.Ext(res.Path))
	path := filepath.Join(dir, base+"."+format.extension())

	var buf bytes.Buffer
	if err := writeResult(&buf, format, res); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
