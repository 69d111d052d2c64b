package coverage

import f "github.com/multimediallc/covdiff/pkg/functional"

// EffectiveHitCount counts the distinct uploads in ids that are not ignored.
// Duplicate ids count once.
func EffectiveHitCount(ids []int, ignored f.Set[int]) int {
	if len(ids) == 0 {
		return 0
	}
	count := 0
	for _, id := range f.RemoveDuplicates(ids) {
		if !ignored.Contains(id) {
			count++
		}
	}
	return count
}

// Badge returns the hit count to display next to a line and whether a badge
// should be drawn at all. Blank lines and lines whose contributing uploads
// are all ignored get no badge.
func Badge(state State, count int) (int, bool) {
	if !state.IsTracked() || count <= 0 {
		return 0, false
	}
	return count, true
}
