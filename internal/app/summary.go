package app

import (
	"fmt"
	"strings"

	"github.com/multimediallc/covdiff/pkg/impacted"
)

// CommentPrefix marks the PR comment owned by covdiff so later runs edit it
const CommentPrefix = "<!-- covdiff -->\n"

// Summary renders the PR comment for a run
func Summary(out *OutputData) string {
	var b strings.Builder
	b.WriteString(CommentPrefix)
	if out.Signal != nil {
		fmt.Fprintf(&b, "Coverage diff unavailable: %s\n", out.Signal.Error())
		return b.String()
	}

	fmt.Fprintf(&b, "### Coverage diff `%s...%s`\n\n", shortRef(out.Base), shortRef(out.Head))
	if len(out.Files) == 0 {
		b.WriteString("No impacted files.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Head lines: %d covered, %d partial, %d uncovered\n\n",
		out.Totals.Covered, out.Totals.Partial, out.Totals.Uncovered)
	b.WriteString("| File | Covered | Partial | Uncovered | |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, file := range out.Files {
		if file.Signal != nil {
			fmt.Fprintf(&b, "| `%s` | | | | %s |\n", file.Path, file.Signal.Kind)
			continue
		}
		m := file.Model
		fmt.Fprintf(&b, "| `%s` | %d | %d | %d | %s |\n",
			file.Path, m.Stats.Covered, m.Stats.Partial, m.Stats.Uncovered, notes(m))
	}
	return b.String()
}

func notes(m *impacted.RenderModel) string {
	parts := make([]string, 0, 3)
	if m.FileLabel != impacted.LabelNone {
		parts = append(parts, string(m.FileLabel))
	}
	if m.IsCriticalFile {
		parts = append(parts, "critical")
	}
	if m.HasIndirectChanges {
		parts = append(parts, "indirect changes")
	}
	return strings.Join(parts, ", ")
}

func shortRef(ref string) string {
	if len(ref) > 7 {
		return ref[:7]
	}
	return ref
}
