// Package segments turns raw diff segments into render-ready segments: one
// text buffer per segment plus a parallel list of per-line annotations.
package segments

import (
	"strings"

	"github.com/multimediallc/covdiff/pkg/coverage"
	f "github.com/multimediallc/covdiff/pkg/functional"
	"github.com/rs/zerolog"
)

// Lines at each end of a segment that get extra padding in the legacy renderer
const EdgeSize = 3

type LineKind string

const (
	Added   LineKind = "added"
	Removed LineKind = "removed"
	Context LineKind = "context"
)

// Annotation describes one line of Segment.Content. Lines[i] always belongs
// to the i-th newline-delimited line of Content.
type Annotation struct {
	HeadNumber    *int           `json:"headNumber"`
	BaseNumber    *int           `json:"baseNumber"`
	HeadCoverage  coverage.State `json:"headCoverage"`
	BaseCoverage  coverage.State `json:"baseCoverage"`
	HitCount      int            `json:"hitCount"`
	ShowBadge     bool           `json:"showBadge"`
	EdgeOfSegment bool           `json:"edgeOfSegment"`
	Kind          LineKind       `json:"kind"`
}

type Segment struct {
	Header               string       `json:"header"`
	HasUnintendedChanges bool         `json:"hasUnintendedChanges"`
	Content              string       `json:"content"`
	Lines                []Annotation `json:"lines"`
}

// IsEmpty reports whether the segment has nothing to render. Empty segments
// must not get a code viewer.
func (s Segment) IsEmpty() bool {
	return len(s.Lines) == 0
}

// EdgeOfSegment reports whether the line at index is among the first or last
// EdgeSize lines of a segment with length lines. Short segments overlap.
func EdgeOfSegment(index, length int) bool {
	return index < EdgeSize || index >= length-EdgeSize
}

// Transform converts raw segments into render-ready segments. Hit counts are
// computed here once, with every upload in ignored left out.
// Lines without a head or a base number, or with content spanning several
// lines, are skipped and logged.
func Transform(raw []RawSegment, ignored f.Set[int], log zerolog.Logger) []Segment {
	out := make([]Segment, 0, len(raw))
	for _, rs := range raw {
		out = append(out, transformSegment(rs, ignored, log))
	}
	return out
}

func transformSegment(rs RawSegment, ignored f.Set[int], log zerolog.Logger) Segment {
	contents := make([]string, 0, len(rs.Lines))
	lines := make([]Annotation, 0, len(rs.Lines))

	for i, rl := range rs.Lines {
		ann, ok := annotate(rl, ignored, log)
		if !ok {
			log.Warn().
				Str("header", rs.Header).
				Int("index", i).
				Msg("skipping malformed diff line")
			continue
		}
		contents = append(contents, lineContent(rl.Content))
		lines = append(lines, ann)
	}

	for i := range lines {
		lines[i].EdgeOfSegment = EdgeOfSegment(i, len(lines))
	}

	return Segment{
		Header:               rs.Header,
		HasUnintendedChanges: rs.HasUnintendedChanges,
		Content:              strings.Join(contents, "\n"),
		Lines:                lines,
	}
}

func annotate(rl RawLine, ignored f.Set[int], log zerolog.Logger) (Annotation, bool) {
	if strings.Contains(lineContent(rl.Content), "\n") {
		return Annotation{}, false
	}
	head, headOK := parseLineNumber(rl.HeadNumber)
	base, baseOK := parseLineNumber(rl.BaseNumber)
	if !headOK || !baseOK || (head == nil && base == nil) {
		return Annotation{}, false
	}

	ann := Annotation{
		HeadNumber:   head,
		BaseNumber:   base,
		HeadCoverage: coverage.Classify(rl.HeadCoverage, log),
		BaseCoverage: coverage.Classify(rl.BaseCoverage, log),
		HitCount:     coverage.EffectiveHitCount(rl.hitUploadIDs(), ignored),
	}
	_, ann.ShowBadge = coverage.Badge(ann.HeadCoverage, ann.HitCount)

	switch {
	case head != nil && base != nil:
		ann.Kind = Context
	case head != nil:
		ann.Kind = Added
	default:
		ann.Kind = Removed
	}
	return ann, true
}

// lineContent drops a line terminator the backend may have left in place.
func lineContent(content string) string {
	return strings.TrimSuffix(strings.TrimSuffix(content, "\n"), "\r")
}
