// Package uploads reads coverage uploads and merges them into a per-line index
// for the head and base side of a comparison.
package uploads

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/multimediallc/covdiff/pkg/coverage"
	f "github.com/multimediallc/covdiff/pkg/functional"
)

type Side string

const (
	Head Side = "head"
	Base Side = "base"
)

// Report is one coverage upload. Files maps a path to line number -> marker
// ("H", "M" or "P").
type Report struct {
	UploadID int                          `json:"uploadId"`
	Side     Side                         `json:"side"`
	Flags    []string                     `json:"flags,omitempty"`
	Files    map[string]map[string]string `json:"files"`
}

func ReadReport(r io.Reader) (Report, error) {
	var report Report
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return Report{}, fmt.Errorf("decoding upload: %w", err)
	}
	if err := report.validate(); err != nil {
		return Report{}, err
	}
	return report, nil
}

func (r Report) validate() error {
	if r.UploadID <= 0 {
		return fmt.Errorf("upload id must be positive, got %d", r.UploadID)
	}
	if r.Side != Head && r.Side != Base {
		return fmt.Errorf("upload %d: unknown side %q", r.UploadID, r.Side)
	}
	for path, lines := range r.Files {
		for line, code := range lines {
			if n, err := strconv.Atoi(line); err != nil || n <= 0 {
				return fmt.Errorf("upload %d: %s: invalid line %q", r.UploadID, path, line)
			}
			if code != coverage.CodeHit && code != coverage.CodeMiss && code != coverage.CodePartial {
				return fmt.Errorf("upload %d: %s:%s: invalid coverage code %q", r.UploadID, path, line, code)
			}
		}
	}
	return nil
}

// LineCoverage is the merged coverage of one line across uploads
type LineCoverage struct {
	Code         string
	HitUploadIDs []int
}

// Codecov-style merge: a hit anywhere wins over a partial, which wins over a miss
var codeRank = map[string]int{
	coverage.CodeMiss:    1,
	coverage.CodePartial: 2,
	coverage.CodeHit:     3,
}

type Index struct {
	lines   map[Side]map[string]map[int]*LineCoverage
	uploads f.Set[int]
}

// NewIndex merges reports. Upload ids must be unique.
func NewIndex(reports ...Report) (*Index, error) {
	ix := &Index{
		lines: map[Side]map[string]map[int]*LineCoverage{
			Head: {},
			Base: {},
		},
		uploads: f.NewSet[int](),
	}
	for _, r := range reports {
		if err := r.validate(); err != nil {
			return nil, err
		}
		if ix.uploads.Contains(r.UploadID) {
			return nil, fmt.Errorf("duplicate upload id %d", r.UploadID)
		}
		ix.uploads.Add(r.UploadID)
		ix.merge(r)
	}
	for _, files := range ix.lines {
		for _, lines := range files {
			for _, lc := range lines {
				slices.Sort(lc.HitUploadIDs)
			}
		}
	}
	return ix, nil
}

func (ix *Index) merge(r Report) {
	files := ix.lines[r.Side]
	for path, lines := range r.Files {
		if files[path] == nil {
			files[path] = make(map[int]*LineCoverage, len(lines))
		}
		for line, code := range lines {
			n, _ := strconv.Atoi(line)
			lc, ok := files[path][n]
			if !ok {
				lc = &LineCoverage{Code: code}
				files[path][n] = lc
			} else if codeRank[code] > codeRank[lc.Code] {
				lc.Code = code
			}
			if code == coverage.CodeHit || code == coverage.CodePartial {
				lc.HitUploadIDs = append(lc.HitUploadIDs, r.UploadID)
			}
		}
	}
}

// Line returns the merged coverage of a line, if any upload tracked it
func (ix *Index) Line(side Side, path string, line int) (LineCoverage, bool) {
	lc, ok := ix.lines[side][path][line]
	if !ok {
		return LineCoverage{}, false
	}
	return *lc, true
}

// Lines returns the tracked line numbers of a file in ascending order
func (ix *Index) Lines(side Side, path string) []int {
	lines := make([]int, 0, len(ix.lines[side][path]))
	for n := range ix.lines[side][path] {
		lines = append(lines, n)
	}
	slices.Sort(lines)
	return lines
}

func (ix *Index) UploadIDs() []int {
	return f.SortedItems(ix.uploads)
}
