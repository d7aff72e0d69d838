package transcode

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/RyanBlaney/sonido-segmenter/logging"
)

// AudioData holds a fully decoded, downmixed file
type AudioData struct {
	PCM        []float32       `json:"-"`
	SampleRate int             `json:"sample_rate"`
	Channels   int             `json:"channels"` // channel count before downmixing
	Duration   time.Duration   `json:"duration"`
	Metadata   *StreamMetadata `json:"metadata,omitempty"`
}

// StreamMetadata describes where decoded audio came from
type StreamMetadata struct {
	Path       string `json:"path"`
	Format     Format `json:"format"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	ReadSize    int           `json:"read_size" yaml:"read_size"`       // mono samples per read in DecodeFile
	MaxDuration time.Duration `json:"max_duration" yaml:"max_duration"` // 0 decodes everything
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		ReadSize:    8192,
		MaxDuration: 0,
	}
}

// Decoder opens audio files with the native Go codecs
type Decoder struct {
	config *DecoderConfig
	logger logging.Logger
}

// NewDecoder creates a new audio decoder. A nil logger uses the global one.
func NewDecoder(config *DecoderConfig, logger logging.Logger) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	if config.ReadSize <= 0 {
		config.ReadSize = DefaultDecoderConfig().ReadSize
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Decoder{
		config: config,
		logger: logger.WithFields(logging.Fields{"component": "audio_decoder"}),
	}
}

// Stream is an open file yielding mono samples
type Stream struct {
	*MonoReader
	Metadata StreamMetadata
	closer   io.Closer
}

// Close releases the underlying file
func (s *Stream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Open opens path for streaming decode. The container is taken from the
// file extension, falling back to the leading bytes.
func (d *Decoder) Open(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	format := FormatFromPath(path)
	if format == FormatUnknown {
		header := make([]byte, 12)
		n, _ := io.ReadFull(f, header)
		format = SniffFormat(header[:n])
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to rewind audio file: %w", err)
		}
	}

	s, err := d.OpenReader(f, format)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Metadata.Path = path
	s.closer = f

	d.logger.Debug("Audio file opened", logging.Fields{
		"path":        path,
		"format":      format,
		"sample_rate": s.Metadata.SampleRate,
		"channels":    s.Metadata.Channels,
	})
	return s, nil
}

// OpenReader decodes r as the given container. The caller keeps ownership
// of r.
func (d *Decoder) OpenReader(r io.ReadSeeker, format Format) (*Stream, error) {
	var (
		src Source
		err error
	)
	switch format {
	case FormatWAV:
		src, err = newWAVSource(r)
	case FormatAIFF:
		src, err = newAIFFSource(r)
	case FormatMP3:
		src, err = newMP3Source(bufio.NewReader(r))
	case FormatVorbis:
		src, err = newVorbisSource(bufio.NewReader(r))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if src.SampleRate() <= 0 || src.Channels() <= 0 {
		return nil, fmt.Errorf("%w: %d Hz, %d channels", ErrUnsupportedFormat, src.SampleRate(), src.Channels())
	}

	return &Stream{
		MonoReader: NewMonoReader(src),
		Metadata: StreamMetadata{
			Format:     format,
			SampleRate: src.SampleRate(),
			Channels:   src.Channels(),
		},
	}, nil
}

// DecodeFile decodes an entire file into memory as mono PCM
func (d *Decoder) DecodeFile(path string) (*AudioData, error) {
	logger := d.logger.WithFields(logging.Fields{
		"function": "DecodeFile",
		"path":     path,
	})

	s, err := d.Open(path)
	if err != nil {
		logger.Error(err, "Failed to open audio file")
		return nil, err
	}
	defer s.Close()

	limit := -1
	if d.config.MaxDuration > 0 {
		limit = int(d.config.MaxDuration.Seconds() * float64(s.Metadata.SampleRate))
	}

	start := time.Now()
	var pcm []float32
	buf := make([]float32, d.config.ReadSize)
	for limit < 0 || len(pcm) < limit {
		n, err := s.Read(buf)
		pcm = append(pcm, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Error(err, "Audio decode failed", logging.Fields{
				"decoded_samples": len(pcm),
			})
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}
	if limit >= 0 && len(pcm) > limit {
		pcm = pcm[:limit]
	}

	data := &AudioData{
		PCM:        pcm,
		SampleRate: s.Metadata.SampleRate,
		Channels:   s.Metadata.Channels,
		Duration:   time.Duration(float64(len(pcm)) / float64(s.Metadata.SampleRate) * float64(time.Second)),
		Metadata:   &s.Metadata,
	}

	logger.Debug("Audio decode completed", logging.Fields{
		"samples":     len(pcm),
		"duration":    data.Duration.Seconds(),
		"decode_time": time.Since(start).Seconds(),
	})
	return data, nil
}
