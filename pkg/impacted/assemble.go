// Package impacted assembles the render model for one impacted file of a
// comparison: file labels, coverage-annotated segments and view options.
package impacted

import (
	"github.com/multimediallc/covdiff/pkg/coverage"
	f "github.com/multimediallc/covdiff/pkg/functional"
	"github.com/multimediallc/covdiff/pkg/segments"
	"github.com/rs/zerolog"
)

// Capabilities are repository-level features enabled upstream
type Capabilities struct {
	LineCoverage   bool `json:"lineCoverage" toml:"line_coverage"`
	BundleAnalysis bool `json:"bundleAnalysis" toml:"bundle_analysis"`
}

// The full file view needs both line coverage and bundle reporting
func (c Capabilities) FullFileView() bool {
	return c.LineCoverage && c.BundleAnalysis
}

type Stats struct {
	Covered   int `json:"covered"`
	Uncovered int `json:"uncovered"`
	Partial   int `json:"partial"`
}

// RenderModel is everything a renderer needs to draw one impacted file.
// It is built once per (payload, ignored uploads) pair and never mutated, so
// a renderer may paint any window of rows without recomputing hit counts.
type RenderModel struct {
	HeadName           string             `json:"headName"`
	BaseName           *string            `json:"baseName"`
	FileLabel          FileLabel          `json:"fileLabel"`
	IsCriticalFile     bool               `json:"isCriticalFile"`
	HashedPath         string             `json:"hashedPath"`
	HasIndirectChanges bool               `json:"hasIndirectChanges"`
	ShowFullFileLink   bool               `json:"showFullFileLink"`
	Stats              Stats              `json:"stats"`
	Segments           []segments.Segment `json:"segments"`
}

// Assemble builds the render model for raw. A nil raw means the comparison
// could not be loaded and yields an Unavailable signal.
func Assemble(raw *RawFile, ignored f.Set[int], caps Capabilities, log zerolog.Logger) (*RenderModel, *ErrorSignal) {
	if raw == nil {
		return nil, unavailable("comparison data missing")
	}
	if sig := raw.validate(); sig != nil {
		return nil, sig
	}
	label, _ := raw.label()

	log = log.With().Str("file", raw.HeadName).Logger()
	segs := segments.Transform(raw.Segments, ignored, log)

	model := &RenderModel{
		HeadName:         raw.HeadName,
		BaseName:         raw.BaseName,
		FileLabel:        label,
		IsCriticalFile:   raw.IsCriticalFile,
		HashedPath:       raw.HashedPath,
		ShowFullFileLink: caps.FullFileView(),
		Segments:         segs,
	}
	for _, seg := range segs {
		if seg.HasUnintendedChanges {
			model.HasIndirectChanges = true
		}
		for _, ann := range seg.Lines {
			if ann.HeadNumber == nil {
				continue
			}
			switch ann.HeadCoverage {
			case coverage.Covered:
				model.Stats.Covered++
			case coverage.Uncovered:
				model.Stats.Uncovered++
			case coverage.Partial:
				model.Stats.Partial++
			}
		}
	}
	log.Debug().
		Int("segments", len(segs)).
		Bool("indirect_changes", model.HasIndirectChanges).
		Msg("assembled impacted file")
	return model, nil
}

// RenderableSegments returns the segments that have lines to show
func (m *RenderModel) RenderableSegments() []segments.Segment {
	return f.Filtered(m.Segments, func(s segments.Segment) bool { return !s.IsEmpty() })
}

// Rows returns the precomputed annotations in [start, end) of a segment,
// clamped to its bounds.
func (m *RenderModel) Rows(segment, start, end int) []segments.Annotation {
	if segment < 0 || segment >= len(m.Segments) {
		return nil
	}
	lines := m.Segments[segment].Lines
	start = max(start, 0)
	end = min(end, len(lines))
	if start >= end {
		return nil
	}
	return lines[start:end]
}
