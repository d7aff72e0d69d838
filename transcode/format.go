package transcode

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for containers or encodings no decoder
// handles.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Format identifies a container
type Format string

const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatAIFF    Format = "aiff"
	FormatMP3     Format = "mp3"
	FormatVorbis  Format = "ogg"
)

// SupportedFormats lists the containers Open can decode
func SupportedFormats() []Format {
	return []Format{FormatWAV, FormatAIFF, FormatMP3, FormatVorbis}
}

// FormatFromPath guesses the container from a file extension
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return FormatWAV
	case ".aif", ".aiff", ".aifc":
		return FormatAIFF
	case ".mp3":
		return FormatMP3
	case ".ogg", ".oga":
		return FormatVorbis
	default:
		return FormatUnknown
	}
}

// SniffFormat identifies a container from its first bytes. At least 12
// bytes are needed to tell RIFF/WAVE and FORM/AIFF apart from other RIFF
// and IFF files.
func SniffFormat(header []byte) Format {
	switch {
	case len(header) >= 12 && bytes.Equal(header[:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")):
		return FormatWAV
	case len(header) >= 12 && bytes.Equal(header[:4], []byte("FORM")) &&
		(bytes.Equal(header[8:12], []byte("AIFF")) || bytes.Equal(header[8:12], []byte("AIFC"))):
		return FormatAIFF
	case len(header) >= 4 && bytes.Equal(header[:4], []byte("OggS")):
		return FormatVorbis
	case len(header) >= 3 && bytes.Equal(header[:3], []byte("ID3")):
		return FormatMP3
	case len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		// MPEG frame sync
		return FormatMP3
	default:
		return FormatUnknown
	}
}
