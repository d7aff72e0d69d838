package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-segmenter/logging"
	"github.com/RyanBlaney/sonido-segmenter/observe"
	"github.com/RyanBlaney/sonido-segmenter/segmenter"
)

const envPrefix = "SEGMENTER"

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "segmenter",
	Short: "Streaming speech/music segmentation",
	Long: `Segmenter turns mono audio into a continuous, timestamped curve of
classification scores in [0, 1].

Audio is resampled to the analysis rate, split into overlapping frames,
summarised over a sliding statistics window and scored by a linear model.
Points are emitted once per window step.

Settings are read from flags, SEGMENTER_* environment variables and an
optional segmenter.yaml, in that order of precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd, viper.GetViper()); err != nil {
			return err
		}
		return configureLogging()
	},
}

// Execute adds all child commands to the root command and runs it
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	stat := segmenter.DefaultStatisticContext()
	fourier := segmenter.DefaultFourierContext()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default is ./configs/segmenter.yaml or $HOME/.config/segmenter/segmenter.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("model", "", "classifier model YAML (default is the built-in speech/singing/instrumental model)")
	flags.Int("analysis-rate", fourier.SampleRate, "analysis sample rate in Hz")
	flags.Int("frame-size", fourier.FrameSize, "analysis frame length in samples")
	flags.Int("frame-step", fourier.FrameStep, "analysis frame hop in samples")
	flags.Int("window-size", stat.WindowSize, "statistics window length in frames")
	flags.Int("window-step", stat.WindowStep, "statistics window hop in frames")
	flags.Int("delta-length", stat.DeltaFilterLength, "delta regression filter length (odd)")
	flags.String("resampler-quality", string(segmenter.DefaultResamplerQuality), "resampler preset (quick, low, medium, high, very-high)")
	flags.Bool("replicate-delta-bug", false, "report the entropy delta variance for every delta-MFCC variance, for models trained on the legacy extractor")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "segmenter"))
		}
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("segmenter")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		logging.Debug("Using config file", logging.Fields{"path": viper.ConfigFileUsed()})
	} else if configFile != "" {
		fmt.Fprintf(os.Stderr, "error reading config file %s: %v\n", configFile, err)
		os.Exit(1)
	}
}

// bindFlags copies config-file and environment values into flags the user
// did not set, then binds every flag to its viper key.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))

		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				lastErr = fmt.Errorf("invalid value for %s: %w", f.Name, err)
			}
		}

		if err := v.BindPFlag(f.Name, f); err != nil {
			lastErr = err
		}
		if err := v.BindEnv(f.Name, envPrefix+"_"+envVarSuffix); err != nil {
			lastErr = err
		}
	})

	return lastErr
}

// setDefaults sets default configuration values
func setDefaults() {
	fourier := segmenter.DefaultFourierContext()
	stat := segmenter.DefaultStatisticContext()

	viper.SetDefault("log-level", "info")
	viper.SetDefault("analysis-rate", fourier.SampleRate)
	viper.SetDefault("frame-size", fourier.FrameSize)
	viper.SetDefault("frame-step", fourier.FrameStep)
	viper.SetDefault("window-size", stat.WindowSize)
	viper.SetDefault("window-step", stat.WindowStep)
	viper.SetDefault("delta-length", stat.DeltaFilterLength)
	viper.SetDefault("resampler-quality", string(segmenter.DefaultResamplerQuality))
	viper.SetDefault("replicate-delta-bug", false)

	viper.SetDefault("output", "table")
	viper.SetDefault("jobs", 4)
	viper.SetDefault("chunk-size", 4096)
	viper.SetDefault("metrics-addr", "")
}

func configureLogging() error {
	level, err := logging.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return err
	}
	logger := logging.NewWriterLogger(os.Stderr, level)
	logging.SetGlobalLogger(logger)
	return nil
}

// settings is the resolved pipeline configuration shared by every command
type settings struct {
	quality segmenter.ResamplerQuality
	fourier segmenter.FourierContext
	stat    segmenter.StatisticContext
	model   *segmenter.Model
}

func loadSettings() (*settings, error) {
	quality, err := segmenter.ParseResamplerQuality(viper.GetString("resampler-quality"))
	if err != nil {
		return nil, err
	}

	s := &settings{
		quality: quality,
		fourier: segmenter.FourierContext{
			SampleRate: viper.GetInt("analysis-rate"),
			FrameSize:  viper.GetInt("frame-size"),
			FrameStep:  viper.GetInt("frame-step"),
		},
		stat: segmenter.StatisticContext{
			WindowSize:                    viper.GetInt("window-size"),
			WindowStep:                    viper.GetInt("window-step"),
			DeltaFilterLength:             viper.GetInt("delta-length"),
			ReplicateEntropyDeltaVariance: viper.GetBool("replicate-delta-bug"),
		},
		model: segmenter.DefaultModel(),
	}
	if err := s.fourier.Validate(); err != nil {
		return nil, err
	}
	if err := s.stat.Validate(); err != nil {
		return nil, err
	}

	if path := viper.GetString("model"); path != "" {
		if s.model, err = segmenter.LoadModel(path); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// newPipeline builds a pipeline for audio arriving at inputRate
func (s *settings) newPipeline(inputRate int, logger logging.Logger, metrics *observe.Metrics) (*segmenter.Pipeline, error) {
	in := segmenter.InputContext{
		SampleRate:       inputRate,
		ResamplerQuality: s.quality,
	}
	return segmenter.NewPipeline(in, s.fourier, s.stat,
		segmenter.WithLogger(logger),
		segmenter.WithMetrics(metrics),
		segmenter.WithModel(s.model),
	)
}
