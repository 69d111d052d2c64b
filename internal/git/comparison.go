package git

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/multimediallc/covdiff/internal/uploads"
	f "github.com/multimediallc/covdiff/pkg/functional"
	"github.com/multimediallc/covdiff/pkg/impacted"
	"github.com/multimediallc/covdiff/pkg/segments"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/go-diff/diff"
)

// CoverageSource answers per-line coverage lookups. *uploads.Index satisfies it.
type CoverageSource interface {
	Line(side uploads.Side, path string, line int) (uploads.LineCoverage, bool)
	Lines(side uploads.Side, path string) []int
}

type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// Comparison builds impacted file payloads from a parsed diff and the
// coverage uploads of both sides
type Comparison struct {
	Coverage CoverageSource
	// Reads files at head. When set, lines outside the diff whose coverage
	// changed are reported as indirect change segments.
	HeadReader FileReader
	IsCritical func(path string) bool
	Log        zerolog.Logger
}

func (c *Comparison) ImpactedFiles(fileDiffs []*diff.FileDiff) []*impacted.RawFile {
	return f.Map(fileDiffs, c.impactedFile)
}

type positioned struct {
	start   int
	segment segments.RawSegment
}

func (c *Comparison) impactedFile(d *diff.FileDiff) *impacted.RawFile {
	headPath := HeadName(d)
	basePath := BaseName(d)
	path := headPath
	if path == "" {
		path = basePath
	}

	raw := &impacted.RawFile{
		HeadName:      path,
		HashedPath:    HashPath(path),
		IsNewFile:     basePath == "" || hasExtended(d, "new file mode"),
		IsDeletedFile: headPath == "" || hasExtended(d, "deleted file mode"),
	}
	raw.IsRenamedFile = !raw.IsNewFile && !raw.IsDeletedFile &&
		(headPath != basePath || hasExtended(d, "rename from"))
	if basePath != "" {
		raw.BaseName = &basePath
	}
	if c.IsCritical != nil {
		raw.IsCriticalFile = c.IsCritical(path)
	}

	segs := make([]positioned, 0, len(d.Hunks))
	for _, hunk := range d.Hunks {
		segs = append(segs, positioned{
			start:   int(hunk.NewStartLine),
			segment: c.hunkSegment(hunk, headPath, basePath),
		})
	}
	if c.HeadReader != nil && !raw.IsNewFile && !raw.IsDeletedFile {
		segs = append(segs, c.indirectSegments(lineMap(d.Hunks), headPath, basePath)...)
	}
	slices.SortStableFunc(segs, func(a, b positioned) int { return a.start - b.start })
	raw.Segments = f.Map(segs, func(p positioned) segments.RawSegment { return p.segment })
	return raw
}

func (c *Comparison) hunkSegment(hunk *diff.Hunk, headPath, basePath string) segments.RawSegment {
	seg := segments.RawSegment{
		Header: FormatHeader(int(hunk.OrigStartLine), int(hunk.OrigLines), int(hunk.NewStartLine), int(hunk.NewLines)),
		Lines:  make([]segments.RawLine, 0, int(max(hunk.OrigLines, hunk.NewLines))),
	}
	base := int(hunk.OrigStartLine)
	head := int(hunk.NewStartLine)

	scanner := bufio.NewScanner(bytes.NewReader(hunk.Body))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		op, content := byte(' '), line
		if len(line) > 0 {
			op, content = line[0], line[1:]
		}
		switch op {
		case ' ':
			rl := c.rawLine(content, headPath, head, basePath, base)
			if lineCode(rl.HeadCoverage) != lineCode(rl.BaseCoverage) {
				seg.HasUnintendedChanges = true
			}
			seg.Lines = append(seg.Lines, rl)
			head++
			base++
		case '+':
			seg.Lines = append(seg.Lines, c.rawLine(content, headPath, head, "", 0))
			head++
		case '-':
			seg.Lines = append(seg.Lines, c.rawLine(content, "", 0, basePath, base))
			base++
		case '\\':
			// "\ No newline at end of file"
		default:
			c.Log.Warn().Str("file", headPath).Str("line", line).Msg("unexpected line in hunk body")
		}
	}
	return seg
}

// rawLine looks up coverage for a line. A zero line number means the line
// does not exist on that side.
func (c *Comparison) rawLine(content, headPath string, head int, basePath string, base int) segments.RawLine {
	rl := segments.RawLine{Content: content, CoverageInfo: &segments.CoverageInfo{HitUploadIDs: []int{}}}
	if head > 0 {
		rl.HeadNumber = numberString(head)
		if lc, ok := c.Coverage.Line(uploads.Head, headPath, head); ok {
			rl.HeadCoverage = &lc.Code
			rl.CoverageInfo.HitUploadIDs = lc.HitUploadIDs
		}
	}
	if base > 0 {
		rl.BaseNumber = numberString(base)
		if lc, ok := c.Coverage.Line(uploads.Base, basePath, base); ok {
			rl.BaseCoverage = &lc.Code
			if head == 0 {
				rl.CoverageInfo.HitUploadIDs = lc.HitUploadIDs
			}
		}
	}
	return rl
}

// indirectSegments finds lines outside every hunk whose coverage differs
// between base and head, and groups consecutive ones into segments
func (c *Comparison) indirectSegments(lm lineMap, headPath, basePath string) []positioned {
	candidates := f.NewSet(c.Coverage.Lines(uploads.Head, headPath)...)
	for _, b := range c.Coverage.Lines(uploads.Base, basePath) {
		if h, ok := lm.headLine(b); ok {
			candidates.Add(h)
		}
	}

	type pair struct{ head, base int }
	changed := make([]pair, 0)
	for _, h := range f.SortedItems(candidates) {
		b, ok := lm.baseLine(h)
		if !ok {
			continue
		}
		headCov, _ := c.Coverage.Line(uploads.Head, headPath, h)
		baseCov, _ := c.Coverage.Line(uploads.Base, basePath, b)
		if headCov.Code != baseCov.Code {
			changed = append(changed, pair{head: h, base: b})
		}
	}
	if len(changed) == 0 {
		return nil
	}

	content, err := c.HeadReader.ReadFile(headPath)
	if err != nil {
		c.Log.Warn().Err(err).Str("file", headPath).Msg("cannot read head file for indirect changes")
		return nil
	}
	fileLines := strings.Split(string(content), "\n")

	out := make([]positioned, 0)
	for i := 0; i < len(changed); {
		j := i + 1
		for j < len(changed) && changed[j].head == changed[j-1].head+1 && changed[j].base == changed[j-1].base+1 {
			j++
		}
		run := changed[i:j]
		seg := segments.RawSegment{
			Header:               FormatHeader(run[0].base, len(run), run[0].head, len(run)),
			HasUnintendedChanges: true,
			Lines:                make([]segments.RawLine, 0, len(run)),
		}
		for _, p := range run {
			text := ""
			if p.head <= len(fileLines) {
				text = strings.TrimSuffix(fileLines[p.head-1], "\r")
			}
			seg.Lines = append(seg.Lines, c.rawLine(text, headPath, p.head, basePath, p.base))
		}
		out = append(out, positioned{start: run[0].head, segment: seg})
		i = j
	}
	return out
}

// lineMap translates line numbers outside of hunks between base and head
type lineMap []*diff.Hunk

func (m lineMap) baseLine(head int) (int, bool) {
	offset := 0
	for _, h := range m {
		start, count := int(h.NewStartLine), int(h.NewLines)
		if count > 0 && head >= start && head < start+count {
			return 0, false
		}
		if (count == 0 && start < head) || (count > 0 && start+count-1 < head) {
			offset += int(h.OrigLines) - count
			continue
		}
		break
	}
	return head + offset, true
}

func (m lineMap) headLine(base int) (int, bool) {
	offset := 0
	for _, h := range m {
		start, count := int(h.OrigStartLine), int(h.OrigLines)
		if count > 0 && base >= start && base < start+count {
			return 0, false
		}
		if (count == 0 && start < base) || (count > 0 && start+count-1 < base) {
			offset += int(h.NewLines) - count
			continue
		}
		break
	}
	return base + offset, true
}

// FormatHeader renders a hunk header like "-12,5 +12,8"
func FormatHeader(baseStart, baseLines, headStart, headLines int) string {
	return fmt.Sprintf("-%d,%d +%d,%d", baseStart, baseLines, headStart, headLines)
}

// HashPath is the opaque id used to correlate a file with line selections
func HashPath(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}

func hasExtended(d *diff.FileDiff, prefix string) bool {
	return slices.ContainsFunc(d.Extended, func(line string) bool {
		return strings.HasPrefix(line, prefix)
	})
}

func numberString(n int) *string {
	s := strconv.Itoa(n)
	return &s
}

func lineCode(code *string) string {
	if code == nil {
		return ""
	}
	return *code
}
