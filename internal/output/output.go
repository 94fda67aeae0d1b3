// Package output provides formatted output rendering for redaction
// summaries, similarity scores and kernel information. It supports text,
// JSON, table and YAML formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/bimmerbailey/sentinel/internal/analyzer"
	"github.com/bimmerbailey/sentinel/internal/kernel"
)

// Format represents an output format type.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat converts a string to a Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	case "yaml", "yml":
		return FormatYAML
	default:
		return FormatText
	}
}

// RedactionSummary describes one redacted input.
type RedactionSummary struct {
	Source  string `json:"source" yaml:"source"`
	Bytes   int64  `json:"bytes" yaml:"bytes"`
	Written int64  `json:"written" yaml:"written"`
	Chunks  int    `json:"chunks" yaml:"chunks"`
	Matches int    `json:"matches" yaml:"matches"`
	Forced  int    `json:"forced_splits,omitempty" yaml:"forced_splits,omitempty"`
}

// SimilarityResult is one scored vector pair.
type SimilarityResult struct {
	Index  int     `json:"index" yaml:"index"`
	Metric string  `json:"metric" yaml:"metric"`
	Dim    int     `json:"dim" yaml:"dim"`
	Score  float32 `json:"score" yaml:"score"`
	Status string  `json:"status" yaml:"status"`
}

// DetectorRow describes a built-in detector and whether it is enabled.
type DetectorRow struct {
	Name        string `json:"name" yaml:"name"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Description string `json:"description" yaml:"description"`
}

// Writer handles writing formatted output.
type Writer struct {
	w      io.Writer
	format Format
	color  ColorMode
}

// New creates a new output Writer. Colors are auto-detected.
func New(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format, color: ColorAuto}
}

// SetColorMode overrides color detection for text output.
func (wr *Writer) SetColorMode(mode ColorMode) {
	wr.color = mode
}

// WriteJSON outputs any value as indented JSON.
func (wr *Writer) WriteJSON(v interface{}) error {
	enc := json.NewEncoder(wr.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteYAML outputs any value as YAML.
func (wr *Writer) WriteYAML(v interface{}) error {
	enc := yaml.NewEncoder(wr.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// structured writes v for the JSON and YAML formats and reports whether it did.
func (wr *Writer) structured(v interface{}) (bool, error) {
	switch wr.format {
	case FormatJSON:
		return true, wr.WriteJSON(v)
	case FormatYAML:
		return true, wr.WriteYAML(v)
	}
	return false, nil
}

// WriteSummaries outputs redaction summaries in the configured format.
func (wr *Writer) WriteSummaries(summaries []RedactionSummary) error {
	if ok, err := wr.structured(summaries); ok {
		return err
	}

	if wr.format == FormatTable {
		tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SOURCE\tBYTES\tCHUNKS\tMATCHES")
		fmt.Fprintln(tw, "------\t-----\t------\t-------")
		for _, s := range summaries {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", s.Source, s.Bytes, s.Chunks, s.Matches)
		}
		return tw.Flush()
	}

	colorize := shouldColorize(wr.color, wr.w)
	for _, s := range summaries {
		line := fmt.Sprintf("%s: %d bytes, %d chunks, %d matches redacted", s.Source, s.Bytes, s.Chunks, s.Matches)
		if s.Forced > 0 {
			line += fmt.Sprintf(" (%d forced splits)", s.Forced)
		}
		if _, err := fmt.Fprintln(wr.w, ColorizeSummary(s.Matches, line, colorize)); err != nil {
			return err
		}
	}
	return nil
}

// WriteSimilarities outputs similarity results in the configured format.
func (wr *Writer) WriteSimilarities(results []SimilarityResult) error {
	if ok, err := wr.structured(results); ok {
		return err
	}

	if wr.format == FormatTable {
		tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tMETRIC\tDIM\tSCORE\tSTATUS")
		fmt.Fprintln(tw, "-\t------\t---\t-----\t------")
		for _, r := range results {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%.6f\t%s\n", r.Index, r.Metric, r.Dim, r.Score, r.Status)
		}
		return tw.Flush()
	}

	for _, r := range results {
		var err error
		if r.Status == kernel.Ok.String() {
			_, err = fmt.Fprintf(wr.w, "%.6f\n", r.Score)
		} else {
			_, err = fmt.Fprintf(wr.w, "error: %s\n", r.Status)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteDetectors outputs the detector list in the configured format.
func (wr *Writer) WriteDetectors(rows []DetectorRow) error {
	if ok, err := wr.structured(rows); ok {
		return err
	}

	tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
	if wr.format == FormatTable {
		fmt.Fprintln(tw, "NAME\tENABLED\tDESCRIPTION")
		fmt.Fprintln(tw, "----\t-------\t-----------")
	}
	for _, r := range rows {
		mark := " "
		if r.Enabled {
			mark = "*"
		}
		if wr.format == FormatTable {
			fmt.Fprintf(tw, "%s\t%t\t%s\n", r.Name, r.Enabled, r.Description)
		} else {
			fmt.Fprintf(tw, "%s %s\t%s\n", mark, r.Name, r.Description)
		}
	}
	return tw.Flush()
}

// WriteStats outputs exposure statistics in the configured format.
func (wr *Writer) WriteStats(stats []analyzer.Stats) error {
	if ok, err := wr.structured(stats); ok {
		return err
	}

	if wr.format == FormatTable {
		tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SOURCE\tLINES\tEXPOSED\tMATCHES\tRATE")
		fmt.Fprintln(tw, "------\t-----\t-------\t-------\t----")
		for _, s := range stats {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.2f%%\n",
				s.Source, s.TotalLines, s.LinesWithMatches, s.Matches, s.ExposureRate*100)
		}
		return tw.Flush()
	}

	colorize := shouldColorize(wr.color, wr.w)
	for i, s := range stats {
		if i > 0 {
			fmt.Fprintln(wr.w)
		}
		fmt.Fprintln(wr.w, ColorizeSummary(s.Matches, s.Source, colorize))
		fmt.Fprintf(wr.w, "  Total Lines: %d\n", s.TotalLines)
		fmt.Fprintf(wr.w, "  Lines With Matches: %d\n", s.LinesWithMatches)
		fmt.Fprintf(wr.w, "  Exposure Rate: %.2f%%\n", s.ExposureRate*100)
		for _, d := range s.Detectors {
			fmt.Fprintf(wr.w, "  %s [%d]\n", d.Detector, d.Count)
		}
	}
	return nil
}

// WriteFindings outputs finding locations in the configured format.
func (wr *Writer) WriteFindings(findings []analyzer.Finding) error {
	if ok, err := wr.structured(findings); ok {
		return err
	}

	if wr.format == FormatTable {
		tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SOURCE\tLINE\tCOLUMN\tDETECTOR\tLENGTH")
		fmt.Fprintln(tw, "------\t----\t------\t--------\t------")
		for _, f := range findings {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%d\n", f.Source, f.Line, f.Column, f.Detector, f.Length)
		}
		return tw.Flush()
	}

	for _, f := range findings {
		if _, err := fmt.Fprintf(wr.w, "%s:%d:%d: %s (%d bytes)\n", f.Source, f.Line, f.Column, f.Detector, f.Length); err != nil {
			return err
		}
	}
	return nil
}

// WriteFeatures outputs the CPU probe result in the configured format.
func (wr *Writer) WriteFeatures(f kernel.CPUFeatures) error {
	if ok, err := wr.structured(f); ok {
		return err
	}

	tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
	rows := []struct {
		key   string
		value interface{}
	}{
		{"arch", f.Arch},
		{"avx2", f.AVX2},
		{"fma", f.FMA},
		{"avx512f", f.AVX512F},
		{"asimd", f.ASIMD},
		{"accelerated", f.Accelerated},
		{"implementation", f.Implementation},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s:\t%v\n", r.key, r.value)
	}
	return tw.Flush()
}
