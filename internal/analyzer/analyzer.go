// Package analyzer reports where sensitive values occur in text and how
// often, without ever returning the values themselves.
package analyzer

import (
	"bytes"
	"context"
	"io"
	"sort"

	"github.com/bimmerbailey/sentinel/internal/bulk"
	"github.com/bimmerbailey/sentinel/internal/kernel"
)

// Stats holds aggregate exposure statistics for one input.
type Stats struct {
	Source           string          `json:"source" yaml:"source"`
	TotalLines       int             `json:"total_lines" yaml:"total_lines"`
	LinesWithMatches int             `json:"lines_with_matches" yaml:"lines_with_matches"`
	Matches          int             `json:"matches" yaml:"matches"`
	ExposureRate     float64         `json:"exposure_rate" yaml:"exposure_rate"`
	Detectors        []DetectorCount `json:"detectors,omitempty" yaml:"detectors,omitempty"`
}

// DetectorCount tracks how many spans a detector matched.
type DetectorCount struct {
	Detector string `json:"detector" yaml:"detector"`
	Count    int    `json:"count" yaml:"count"`
}

// Finding locates one sensitive span. Line and Column are 1-based; Column
// counts bytes.
type Finding struct {
	Source   string `json:"source" yaml:"source"`
	Line     int    `json:"line" yaml:"line"`
	Column   int    `json:"column" yaml:"column"`
	Detector string `json:"detector" yaml:"detector"`
	Length   int    `json:"length" yaml:"length"`
}

// Analyzer scans inputs with the redactor of a bulk.Processor.
type Analyzer struct {
	proc *bulk.Processor
}

// New creates an Analyzer. Inputs are read in the chunks proc would redact,
// so every reported span is one that redaction masks.
func New(proc *bulk.Processor) *Analyzer {
	return &Analyzer{proc: proc}
}

// Scan reads r to EOF and computes its Stats. When fn is non-nil it is called
// for each finding in input order; an error from fn stops the scan.
func (a *Analyzer) Scan(ctx context.Context, source string, r io.Reader, fn func(Finding) error) (Stats, error) {
	redactor := a.proc.Redactor()
	stats := Stats{Source: source}
	counts := make(map[string]int)

	// line is the current 1-based line, col the bytes already seen on it.
	line, col := 1, 0
	lastMatchLine := 0

	_, err := a.proc.Each(ctx, r, func(chunk []byte) error {
		pos := 0
		advance := func(to int) {
			seg := chunk[pos:to]
			if n := bytes.Count(seg, []byte{'\n'}); n > 0 {
				line += n
				col = len(seg) - bytes.LastIndexByte(seg, '\n') - 1
			} else {
				col += len(seg)
			}
			pos = to
		}

		var ferr error
		redactor.Find(chunk, func(m kernel.Match) {
			if ferr != nil {
				return
			}
			advance(m.Start)

			f := Finding{
				Source:   source,
				Line:     line,
				Column:   col + 1,
				Detector: m.Name(),
				Length:   m.End - m.Start,
			}
			stats.Matches++
			counts[f.Detector]++
			if line != lastMatchLine {
				stats.LinesWithMatches++
				lastMatchLine = line
			}
			if fn != nil {
				ferr = fn(f)
			}
		})
		if ferr != nil {
			return ferr
		}
		advance(len(chunk))
		return nil
	})
	if err != nil {
		return stats, err
	}

	stats.TotalLines = line - 1
	if col > 0 {
		stats.TotalLines++
	}
	if stats.TotalLines > 0 {
		stats.ExposureRate = float64(stats.LinesWithMatches) / float64(stats.TotalLines)
	}
	stats.Detectors = topDetectors(counts)

	return stats, nil
}

// Merge sums per-source statistics into a single total named source.
func Merge(source string, all []Stats) Stats {
	total := Stats{Source: source}
	counts := make(map[string]int)
	for _, s := range all {
		total.TotalLines += s.TotalLines
		total.LinesWithMatches += s.LinesWithMatches
		total.Matches += s.Matches
		for _, d := range s.Detectors {
			counts[d.Detector] += d.Count
		}
	}
	if total.TotalLines > 0 {
		total.ExposureRate = float64(total.LinesWithMatches) / float64(total.TotalLines)
	}
	total.Detectors = topDetectors(counts)
	return total
}

// topDetectors orders detector counts from most to least frequent, breaking
// ties by name.
func topDetectors(counts map[string]int) []DetectorCount {
	if len(counts) == 0 {
		return nil
	}
	out := make([]DetectorCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, DetectorCount{Detector: name, Count: count})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Detector < out[j].Detector
	})

	return out
}
