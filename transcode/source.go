package transcode

import (
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// Source yields interleaved float32 samples in [-1, 1). ReadSamples returns
// io.EOF once the stream is exhausted.
type Source interface {
	SampleRate() int
	Channels() int
	ReadSamples(dst []float32) (int, error)
}

// pcmReader is the part of the go-audio wav and aiff decoders we read through
type pcmReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// intSource adapts integer PCM from go-audio to float samples
type intSource struct {
	dec        pcmReader
	format     *goaudio.Format
	sampleRate int
	channels   int
	offset     int // 8-bit WAV is unsigned
	scale      float32
	buf        *goaudio.IntBuffer
}

func newIntSource(dec pcmReader, format *goaudio.Format, bitDepth int, unsigned8 bool) (*intSource, error) {
	if bitDepth <= 0 || bitDepth > 32 || bitDepth%8 != 0 {
		return nil, fmt.Errorf("%w: %d-bit PCM", ErrUnsupportedFormat, bitDepth)
	}
	s := &intSource{
		dec:        dec,
		format:     format,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		scale:      1 / float32(int64(1)<<(bitDepth-1)),
	}
	if bitDepth == 8 && unsigned8 {
		s.offset = 128
	}
	return s, nil
}

func (s *intSource) SampleRate() int { return s.sampleRate }
func (s *intSource) Channels() int   { return s.channels }

func (s *intSource) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if s.buf == nil || cap(s.buf.Data) < len(dst) {
		s.buf = &goaudio.IntBuffer{Data: make([]int, len(dst)), Format: s.format}
	}
	s.buf.Data = s.buf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.buf)
	for i := range n {
		dst[i] = float32(s.buf.Data[i]-s.offset) * s.scale
	}
	if n == 0 && err == nil {
		err = io.EOF
	}
	return n, err
}

func newWAVSource(r io.ReadSeeker) (Source, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrUnsupportedFormat)
	}
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: WAV encoding %d is not integer PCM", ErrUnsupportedFormat, dec.WavAudioFormat)
	}
	format := dec.Format()
	if format == nil || format.NumChannels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: WAV header has no usable format", ErrUnsupportedFormat)
	}
	return newIntSource(dec, format, int(dec.BitDepth), true)
}

func newAIFFSource(r io.ReadSeeker) (Source, error) {
	dec := aiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid AIFF file", ErrUnsupportedFormat)
	}
	dec.ReadInfo()
	format := dec.Format()
	if format == nil || format.NumChannels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: AIFF header has no usable format", ErrUnsupportedFormat)
	}
	return newIntSource(dec, format, int(dec.BitDepth), false)
}

// mp3Source reads go-mp3's 16-bit little-endian stereo output
type mp3Source struct {
	dec *gomp3.Decoder
	buf []byte
}

func newMP3Source(r io.Reader) (Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 stream: %w", err)
	}
	return &mp3Source{dec: dec}, nil
}

func (s *mp3Source) SampleRate() int { return s.dec.SampleRate() }
func (s *mp3Source) Channels() int   { return 2 }

func (s *mp3Source) ReadSamples(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]

	n, err := io.ReadFull(s.dec, s.buf)
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	samples := n / 2
	for i := range samples {
		v := int16(uint16(s.buf[2*i]) | uint16(s.buf[2*i+1])<<8)
		dst[i] = float32(v) / 32768
	}
	if samples == 0 && err == nil {
		err = io.EOF
	}
	return samples, err
}

type vorbisSource struct {
	dec *oggvorbis.Reader
}

func newVorbisSource(r io.Reader) (Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Ogg Vorbis stream: %w", err)
	}
	return &vorbisSource{dec: dec}, nil
}

func (s *vorbisSource) SampleRate() int { return s.dec.SampleRate() }
func (s *vorbisSource) Channels() int   { return s.dec.Channels() }

func (s *vorbisSource) ReadSamples(dst []float32) (int, error) {
	// whole frames only so channel interleaving stays aligned across reads
	n := len(dst) - len(dst)%s.dec.Channels()
	if n == 0 {
		return 0, nil
	}
	return s.dec.Read(dst[:n])
}
