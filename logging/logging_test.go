package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriterLogger_FiltersAndFormats(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, WarnLevel).WithFields(Fields{"component": "resampler"})

	logger.Info("dropped")
	logger.Error(errors.New("bad ratio"), "conversion failed", Fields{"buffered": 12})

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "[ERROR] conversion failed: bad ratio")
	assert.Contains(t, out, "buffered=12 component=resampler")
}

func TestSetGlobalLogger_NilSilences(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	SetGlobalLogger(nil)
	_, ok := GetGlobalLogger().(*NoOpLogger)
	assert.True(t, ok)
	_, ok = Component("statistics").(*NoOpLogger)
	assert.True(t, ok)
}
