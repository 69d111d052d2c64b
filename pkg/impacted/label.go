package impacted

import "slices"

type FileLabel string

const (
	LabelNone    FileLabel = ""
	LabelNew     FileLabel = "New"
	LabelRenamed FileLabel = "Renamed"
	LabelDeleted FileLabel = "Deleted"
)

var knownLabels = []FileLabel{LabelNew, LabelRenamed, LabelDeleted}

// label resolves the file label from the explicit fileLabel field and the
// new/renamed/deleted indicators. The sources must agree on at most one label.
func (r *RawFile) label() (FileLabel, *ErrorSignal) {
	found := make([]FileLabel, 0, 2)
	if r.FileLabel != nil && *r.FileLabel != "" {
		l := FileLabel(*r.FileLabel)
		if !slices.Contains(knownLabels, l) {
			return LabelNone, invalid("unknown file label %q", *r.FileLabel)
		}
		found = append(found, l)
	}
	if r.IsNewFile {
		found = append(found, LabelNew)
	}
	if r.IsRenamedFile {
		found = append(found, LabelRenamed)
	}
	if r.IsDeletedFile {
		found = append(found, LabelDeleted)
	}

	found = slices.Compact(found)
	switch len(found) {
	case 0:
		return LabelNone, nil
	case 1:
		return found[0], nil
	}
	return LabelNone, invalid("conflicting file labels %v", found)
}
