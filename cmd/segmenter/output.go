package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-segmenter/segmenter"
)

type outputFormat string

const (
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
	formatCSV   outputFormat = "csv"
	formatTable outputFormat = "table"
)

func (f outputFormat) valid() bool {
	switch f {
	case formatJSON, formatYAML, formatCSV, formatTable:
		return true
	}
	return false
}

func (f outputFormat) extension() string {
	if f == formatTable {
		return "txt"
	}
	return string(f)
}

// fileResult is the classification curve of one input file
type fileResult struct {
	Path       string                          `json:"path" yaml:"path"`
	SampleRate int                             `json:"sample_rate" yaml:"sample_rate"`
	Duration   float64                         `json:"duration_seconds" yaml:"duration_seconds"`
	Classes    []string                        `json:"classes" yaml:"classes"`
	Points     []segmenter.ClassificationPoint `json:"points" yaml:"points"`
}

func writeResult(w io.Writer, format outputFormat, res *fileResult) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	case formatCSV:
		return writeCSV(w, res)
	case formatTable:
		return writeTable(w, res)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeCSV(w io.Writer, res *fileResult) error {
	cw := csv.NewWriter(w)
	header := append([]string{"file", "timestamp", "value"}, res.Classes...)
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for _, pt := range res.Points {
		row = row[:3]
		row[0] = res.Path
		row[1] = strconv.FormatFloat(pt.Timestamp, 'f', 3, 64)
		row[2] = strconv.FormatFloat(pt.Value, 'f', 4, 64)
		for _, p := range pt.Probabilities {
			row = append(row, strconv.FormatFloat(p, 'f', 4, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeTable(w io.Writer, res *fileResult) error {
	fmt.Fprintf(w, "%s (%d Hz, %.1f s, %d points)\n", res.Path, res.SampleRate, res.Duration, len(res.Points))

	// a Caser keeps state, and result files are written concurrently
	titleCaser := cases.Title(language.English)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "Time\tValue\t")
	for _, class := range res.Classes {
		fmt.Fprintf(tw, "%s\t", titleCaser.String(class))
	}
	fmt.Fprintln(tw)

	for _, pt := range res.Points {
		fmt.Fprintf(tw, "%.2f\t%.3f\t", pt.Timestamp, pt.Value)
		for _, p := range pt.Probabilities {
			fmt.Fprintf(tw, "%.3f\t", p)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
