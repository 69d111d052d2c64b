package segments

import (
	"strconv"
	"strings"
)

// RawLine is one line of a diff segment as sent by the comparison backend.
// Line numbers arrive as strings; a nil number means the line does not exist
// on that side.
type RawLine struct {
	HeadNumber   *string       `json:"headNumber"`
	BaseNumber   *string       `json:"baseNumber"`
	HeadCoverage *string       `json:"headCoverage"`
	BaseCoverage *string       `json:"baseCoverage"`
	Content      string        `json:"content"`
	CoverageInfo *CoverageInfo `json:"coverageInfo,omitempty"`
}

type CoverageInfo struct {
	HitUploadIDs []int `json:"hitUploadIds"`
}

type RawSegment struct {
	Header               string    `json:"header"`
	HasUnintendedChanges bool      `json:"hasUnintendedChanges"`
	Lines                []RawLine `json:"lines"`
}

func (l RawLine) hitUploadIDs() []int {
	if l.CoverageInfo == nil {
		return nil
	}
	return l.CoverageInfo.HitUploadIDs
}

// parseLineNumber returns nil for missing numbers. ok is false when a number
// is present but not a positive integer.
func parseLineNumber(raw *string) (n *int, ok bool) {
	if raw == nil {
		return nil, true
	}
	v, err := strconv.Atoi(strings.TrimSpace(*raw))
	if err != nil || v <= 0 {
		return nil, false
	}
	return &v, true
}
