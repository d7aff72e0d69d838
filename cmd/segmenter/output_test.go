package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-segmenter/segmenter"
)

func sampleResult() *fileResult {
	return &fileResult{
		Path:       "clips/news.wav",
		SampleRate: 44100,
		Duration:   12.5,
		Classes:    []string{"speech", "singing", "instrumental"},
		Points: []segmenter.ClassificationPoint{
			{Timestamp: 3.065, Value: 0.1, Probabilities: []float64{0.8, 0.2, 0}},
			{Timestamp: 4.086, Value: 0.75, Probabilities: []float64{0.1, 0.3, 0.6}},
		},
	}
}

func TestOutputFormat(t *testing.T) {
	t.Parallel()

	for _, f := range []outputFormat{formatJSON, formatYAML, formatCSV, formatTable} {
		assert.True(t, f.valid(), f)
	}
	assert.False(t, outputFormat("xml").valid())
	assert.Equal(t, "txt", formatTable.extension())
	assert.Equal(t, "csv", formatCSV.extension())
}

func TestWriteResult_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, formatJSON, sampleResult()))

	var got fileResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, *sampleResult(), got)
}

func TestWriteResult_YAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, formatYAML, sampleResult()))
	assert.Contains(t, buf.String(), "duration_seconds: 12.5")

	var got fileResult
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleResult().Points, got.Points)
}

func TestWriteResult_CSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, formatCSV, sampleResult()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"file", "timestamp", "value", "speech", "singing", "instrumental"}, rows[0])
	assert.Equal(t, []string{"clips/news.wav", "4.086", "0.7500", "0.1000", "0.3000", "0.6000"}, rows[2])
}

func TestWriteResult_Table(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, formatTable, sampleResult()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "clips/news.wav (44100 Hz, 12.5 s, 2 points)", lines[0])
	assert.Contains(t, lines[1], "Instrumental")
	assert.Contains(t, lines[3], "0.750")
}

func TestWriteResultFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, writeResultFile(dir, formatJSON, sampleResult()))

	data, err := os.ReadFile(filepath.Join(dir, "news.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"path": "clips/news.wav"`)
}
