package git

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/multimediallc/covdiff/internal/uploads"
	"github.com/multimediallc/covdiff/pkg/segments"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/go-diff/diff"
)

type mapReader map[string]string

func (m mapReader) ReadFile(path string) ([]byte, error) {
	content, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("no such file %s", path)
	}
	return []byte(content), nil
}

const modifiedFileDiff = `diff --git a/app.go b/app.go
index 111..222 100644
--- a/app.go
+++ b/app.go
@@ -2,3 +2,4 @@
 two
-three
+THREE
+three-and-half
 four
`

func testIndex(t *testing.T) *uploads.Index {
	t.Helper()
	ix, err := uploads.NewIndex(
		uploads.Report{UploadID: 1, Side: uploads.Head, Files: map[string]map[string]string{
			"app.go": {"2": "H", "3": "H", "4": "M", "5": "H", "9": "M"},
		}},
		uploads.Report{UploadID: 2, Side: uploads.Base, Files: map[string]map[string]string{
			"app.go": {"2": "H", "3": "M", "4": "P", "8": "H"},
		}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ix
}

func parseOne(t *testing.T, data string) *diff.FileDiff {
	t.Helper()
	files, err := ParseDiff([]byte(data), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	return files[0]
}

func str(s string) *string { return &s }

func TestComparisonHunkSegment(t *testing.T) {
	c := &Comparison{Coverage: testIndex(t), Log: zerolog.Nop()}
	files := c.ImpactedFiles([]*diff.FileDiff{parseOne(t, modifiedFileDiff)})
	if len(files) != 1 {
		t.Fatalf("expected 1 impacted file, got %d", len(files))
	}
	raw := files[0]

	if raw.HeadName != "app.go" || raw.BaseName == nil || *raw.BaseName != "app.go" {
		t.Errorf("unexpected names %q %v", raw.HeadName, raw.BaseName)
	}
	if raw.IsNewFile || raw.IsDeletedFile || raw.IsRenamedFile {
		t.Error("modified file should carry no label")
	}
	if raw.HashedPath != HashPath("app.go") {
		t.Errorf("unexpected hashed path %s", raw.HashedPath)
	}
	if len(raw.Segments) != 1 {
		t.Fatalf("expected 1 segment without a head reader, got %d", len(raw.Segments))
	}

	seg := raw.Segments[0]
	if seg.Header != "-2,3 +2,4" {
		t.Errorf("unexpected header %q", seg.Header)
	}
	if !seg.HasUnintendedChanges {
		t.Error("context line with changed coverage should flag unintended changes")
	}

	expected := []segments.RawLine{
		{HeadNumber: str("2"), BaseNumber: str("2"), HeadCoverage: str("H"), BaseCoverage: str("H"), Content: "two",
			CoverageInfo: &segments.CoverageInfo{HitUploadIDs: []int{1}}},
		{BaseNumber: str("3"), BaseCoverage: str("M"), Content: "three",
			CoverageInfo: &segments.CoverageInfo{HitUploadIDs: nil}},
		{HeadNumber: str("3"), HeadCoverage: str("H"), Content: "THREE",
			CoverageInfo: &segments.CoverageInfo{HitUploadIDs: []int{1}}},
		{HeadNumber: str("4"), HeadCoverage: str("M"), Content: "three-and-half",
			CoverageInfo: &segments.CoverageInfo{HitUploadIDs: nil}},
		{HeadNumber: str("5"), BaseNumber: str("4"), HeadCoverage: str("H"), BaseCoverage: str("P"), Content: "four",
			CoverageInfo: &segments.CoverageInfo{HitUploadIDs: []int{1}}},
	}
	if diff := cmp.Diff(expected, seg.Lines, emptyHits); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

var emptyHits = cmp.Transformer("emptyHits", func(ci *segments.CoverageInfo) []int {
	if ci == nil || len(ci.HitUploadIDs) == 0 {
		return nil
	}
	return ci.HitUploadIDs
})

func TestComparisonIndirectSegments(t *testing.T) {
	head := strings.Join([]string{"one", "two", "THREE", "three-and-half", "four", "five", "six", "seven", "eight-head"}, "\n") + "\n"
	c := &Comparison{
		Coverage:   testIndex(t),
		HeadReader: mapReader{"app.go": head},
		Log:        zerolog.Nop(),
	}
	raw := c.ImpactedFiles([]*diff.FileDiff{parseOne(t, modifiedFileDiff)})[0]
	if len(raw.Segments) != 2 {
		t.Fatalf("expected hunk and indirect segment, got %d", len(raw.Segments))
	}

	indirect := raw.Segments[1]
	if indirect.Header != "-8,1 +9,1" {
		t.Errorf("unexpected indirect header %q", indirect.Header)
	}
	if !indirect.HasUnintendedChanges {
		t.Error("indirect segments are always unintended changes")
	}
	if len(indirect.Lines) != 1 {
		t.Fatalf("expected 1 indirect line, got %d", len(indirect.Lines))
	}
	line := indirect.Lines[0]
	if line.Content != "eight-head" || *line.HeadNumber != "9" || *line.BaseNumber != "8" {
		t.Errorf("unexpected indirect line %+v", line)
	}
	if *line.HeadCoverage != "M" || *line.BaseCoverage != "H" {
		t.Errorf("unexpected indirect coverage %s/%s", *line.HeadCoverage, *line.BaseCoverage)
	}
}

func TestComparisonIndirectReadError(t *testing.T) {
	c := &Comparison{
		Coverage:   testIndex(t),
		HeadReader: mapReader{},
		Log:        zerolog.Nop(),
	}
	raw := c.ImpactedFiles([]*diff.FileDiff{parseOne(t, modifiedFileDiff)})[0]
	if len(raw.Segments) != 1 {
		t.Errorf("unreadable head file should only drop indirect segments, got %d segments", len(raw.Segments))
	}
}

func TestComparisonLabels(t *testing.T) {
	ix, err := uploads.NewIndex()
	if err != nil {
		t.Fatal(err)
	}

	tt := []struct {
		name     string
		diff     string
		headName string
		baseName *string
		isNew    bool
		renamed  bool
		deleted  bool
		critical bool
	}{
		{
			name: "new file",
			diff: `diff --git a/cmd/new.go b/cmd/new.go
new file mode 100644
index 000..333
--- /dev/null
+++ b/cmd/new.go
@@ -0,0 +1,1 @@
+package cmd
`,
			headName: "cmd/new.go",
			isNew:    true,
		},
		{
			name: "deleted file",
			diff: `diff --git a/old.go b/old.go
deleted file mode 100644
index 444..000
--- a/old.go
+++ /dev/null
@@ -1,1 +0,0 @@
-package old
`,
			headName: "old.go",
			baseName: str("old.go"),
			deleted:  true,
		},
		{
			name: "renamed file",
			diff: `diff --git a/a.go b/secure/b.go
similarity index 90%
rename from a.go
rename to secure/b.go
index 111..222 100644
--- a/a.go
+++ b/secure/b.go
@@ -1,1 +1,1 @@
-package a
+package b
`,
			headName: "secure/b.go",
			baseName: str("a.go"),
			renamed:  true,
			critical: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			c := &Comparison{
				Coverage:   ix,
				HeadReader: mapReader{},
				IsCritical: func(path string) bool { return strings.HasPrefix(path, "secure/") },
				Log:        zerolog.Nop(),
			}
			raw := c.ImpactedFiles([]*diff.FileDiff{parseOne(t, tc.diff)})[0]
			if raw.HeadName != tc.headName {
				t.Errorf("expected head name %q, got %q", tc.headName, raw.HeadName)
			}
			if diff := cmp.Diff(tc.baseName, raw.BaseName); diff != "" {
				t.Errorf("base name mismatch (-want +got):\n%s", diff)
			}
			if raw.IsNewFile != tc.isNew || raw.IsRenamedFile != tc.renamed || raw.IsDeletedFile != tc.deleted {
				t.Errorf("unexpected labels new=%v renamed=%v deleted=%v", raw.IsNewFile, raw.IsRenamedFile, raw.IsDeletedFile)
			}
			if raw.IsCriticalFile != tc.critical {
				t.Errorf("expected critical %v, got %v", tc.critical, raw.IsCriticalFile)
			}
		})
	}
}

func TestLineMap(t *testing.T) {
	// base 2..4 replaced by head 2..5, base 10 deleted
	lm := lineMap{
		{OrigStartLine: 2, OrigLines: 3, NewStartLine: 2, NewLines: 4},
		{OrigStartLine: 10, OrigLines: 1, NewStartLine: 10, NewLines: 0},
	}

	tt := []struct {
		name     string
		head     int
		expected int
		ok       bool
	}{
		{name: "before any hunk", head: 1, expected: 1, ok: true},
		{name: "inside first hunk", head: 3, ok: false},
		{name: "after first hunk", head: 6, expected: 5, ok: true},
		{name: "after deletion", head: 11, expected: 11, ok: true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := lm.baseLine(tc.head)
			if ok != tc.ok || (ok && got != tc.expected) {
				t.Errorf("baseLine(%d) = %d, %v; want %d, %v", tc.head, got, ok, tc.expected, tc.ok)
			}
			if ok {
				back, ok := lm.headLine(got)
				if !ok || back != tc.head {
					t.Errorf("headLine(%d) = %d, %v; want %d", got, back, ok, tc.head)
				}
			}
		})
	}
}

func TestFormatHeader(t *testing.T) {
	if got := FormatHeader(12, 5, 12, 8); got != "-12,5 +12,8" {
		t.Errorf("unexpected header %q", got)
	}
}
