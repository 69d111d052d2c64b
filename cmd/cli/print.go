package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/multimediallc/covdiff/internal/app"
	"github.com/multimediallc/covdiff/pkg/coverage"
	"github.com/multimediallc/covdiff/pkg/impacted"
	"github.com/multimediallc/covdiff/pkg/segments"
)

// rows are painted in windows the way a virtualized view would
const rowWindow = 50

var coverageMarks = map[coverage.State]string{
	coverage.Covered:   "+",
	coverage.Uncovered: "!",
	coverage.Partial:   "~",
	coverage.Blank:     " ",
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(w io.Writer, result app.FileResult, format OutputFormat) error {
	if format == FormatJSON {
		return printJSON(w, result)
	}
	if result.Signal != nil {
		_, err := fmt.Fprintf(w, "%s: %s\n", result.Path, result.Signal.Error())
		return err
	}
	if format == FormatOneLine {
		return printOneLine(w, result.Model)
	}
	return printModel(w, result.Model)
}

func printOutput(w io.Writer, out *app.OutputData, format OutputFormat) error {
	if format == FormatJSON {
		return printJSON(w, out)
	}
	if out.Signal != nil {
		_, err := fmt.Fprintf(w, "comparison %s...%s: %s\n", out.Base, out.Head, out.Signal.Error())
		return err
	}
	for _, result := range out.Files {
		if err := printResult(w, result, format); err != nil {
			return err
		}
	}
	if format == FormatDefault {
		_, err := fmt.Fprintf(w, "%d files: %d covered, %d partial, %d uncovered\n",
			len(out.Files), out.Totals.Covered, out.Totals.Partial, out.Totals.Uncovered)
		return err
	}
	return nil
}

func printOneLine(w io.Writer, m *impacted.RenderModel) error {
	_, err := fmt.Fprintf(w, "%s covered=%d partial=%d uncovered=%d indirect=%t\n",
		m.HeadName, m.Stats.Covered, m.Stats.Partial, m.Stats.Uncovered, m.HasIndirectChanges)
	return err
}

func printModel(w io.Writer, m *impacted.RenderModel) error {
	title := m.HeadName
	if m.FileLabel != impacted.LabelNone {
		title += " [" + string(m.FileLabel) + "]"
	}
	if m.BaseName != nil && *m.BaseName != m.HeadName {
		title += " (from " + *m.BaseName + ")"
	}
	if m.IsCriticalFile {
		title += " (critical)"
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	if m.HasIndirectChanges {
		if _, err := fmt.Fprintln(w, "  indirect coverage changes"); err != nil {
			return err
		}
	}
	for i, seg := range m.Segments {
		if seg.IsEmpty() {
			continue
		}
		if _, err := fmt.Fprintf(w, "@@ %s @@\n", seg.Header); err != nil {
			return err
		}
		content := strings.Split(seg.Content, "\n")
		for start := 0; start < len(seg.Lines); start += rowWindow {
			for j, row := range m.Rows(i, start, start+rowWindow) {
				if _, err := fmt.Fprintln(w, formatRow(row, content[start+j])); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func formatRow(row segments.Annotation, content string) string {
	op := " "
	switch row.Kind {
	case segments.Added:
		op = "+"
	case segments.Removed:
		op = "-"
	}
	state := row.HeadCoverage
	if row.HeadNumber == nil {
		state = row.BaseCoverage
	}
	badge := ""
	if row.ShowBadge {
		badge = strconv.Itoa(row.HitCount)
	}
	return strings.TrimRight(fmt.Sprintf("%5s %5s %s%s %3s %s",
		lineNumber(row.BaseNumber), lineNumber(row.HeadNumber), coverageMarks[state], op, badge, content), " ")
}

func lineNumber(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
