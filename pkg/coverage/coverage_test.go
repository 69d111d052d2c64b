package coverage

import (
	"bytes"
	"strings"
	"testing"

	f "github.com/multimediallc/covdiff/pkg/functional"
	"github.com/rs/zerolog"
)

func strPtr(s string) *string {
	return &s
}

func TestClassify(t *testing.T) {
	tt := []struct {
		name     string
		raw      *string
		expected State
		logged   bool
	}{
		{name: "no marker", raw: nil, expected: Blank},
		{name: "hit", raw: strPtr("H"), expected: Covered},
		{name: "miss", raw: strPtr("M"), expected: Uncovered},
		{name: "partial", raw: strPtr("P"), expected: Partial},
		{name: "lowercase is unknown", raw: strPtr("h"), expected: Blank, logged: true},
		{name: "empty string is unknown", raw: strPtr(""), expected: Blank, logged: true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			got := Classify(tc.raw, zerolog.New(buf))
			if got != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, got)
			}
			if logged := strings.Contains(buf.String(), "unrecognized coverage code"); logged != tc.logged {
				t.Errorf("expected logged=%t, log output: %q", tc.logged, buf.String())
			}
		})
	}
}

func TestCodeRoundTrip(t *testing.T) {
	for _, s := range []State{Covered, Uncovered, Partial} {
		if got := Classify(s.Code(), zerolog.Nop()); got != s {
			t.Errorf("expected %s, got %s", s, got)
		}
	}
	if Blank.Code() != nil {
		t.Error("Blank should have no marker")
	}
}

func TestEffectiveHitCount(t *testing.T) {
	tt := []struct {
		name     string
		ids      []int
		ignored  f.Set[int]
		expected int
	}{
		{name: "nil ids", ids: nil, ignored: f.NewSet[int](), expected: 0},
		{name: "empty ids", ids: []int{}, ignored: f.NewSet(1), expected: 0},
		{name: "no ignores", ids: []int{1, 2}, ignored: f.NewSet[int](), expected: 2},
		{name: "zero value ignores", ids: []int{1, 2}, expected: 2},
		{name: "one ignored", ids: []int{1, 2}, ignored: f.NewSet(2), expected: 1},
		{name: "all ignored", ids: []int{1, 2}, ignored: f.NewSet(1, 2), expected: 0},
		{name: "duplicates count once", ids: []int{1, 1, 1, 2}, ignored: f.NewSet[int](), expected: 2},
		{name: "ignored id not contributing", ids: []int{1}, ignored: f.NewSet(7), expected: 1},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := EffectiveHitCount(tc.ids, tc.ignored); got != tc.expected {
				t.Errorf("expected %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestEffectiveHitCountMonotonic(t *testing.T) {
	ids := []int{1, 2, 3, 3, 4}
	ignored := f.NewSet[int]()
	prev := EffectiveHitCount(ids, ignored)
	if prev != 4 {
		t.Fatalf("expected 4 distinct uploads, got %d", prev)
	}
	for _, id := range []int{9, 3, 1, 4, 2} {
		ignored.Add(id)
		got := EffectiveHitCount(ids, ignored)
		if got > prev || got < 0 {
			t.Errorf("ignoring %d changed count from %d to %d", id, prev, got)
		}
		prev = got
	}
	if prev != 0 {
		t.Errorf("expected 0 once everything is ignored, got %d", prev)
	}
}

func TestBadge(t *testing.T) {
	tt := []struct {
		name      string
		state     State
		count     int
		wantCount int
		wantShow  bool
	}{
		{name: "covered with hits", state: Covered, count: 2, wantCount: 2, wantShow: true},
		{name: "partial with hits", state: Partial, count: 1, wantCount: 1, wantShow: true},
		{name: "blank hides hits", state: Blank, count: 3, wantShow: false},
		{name: "covered all ignored", state: Covered, count: 0, wantShow: false},
		{name: "unknown state", state: State("weird"), count: 1, wantShow: false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			count, show := Badge(tc.state, tc.count)
			if count != tc.wantCount || show != tc.wantShow {
				t.Errorf("expected (%d, %t), got (%d, %t)", tc.wantCount, tc.wantShow, count, show)
			}
		})
	}
}
