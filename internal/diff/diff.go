package diff

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Kind classifies one diff segment.
type Kind int

const (
	Unchanged Kind = iota
	Added
	Removed
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "unchanged"
	}
}

// Segment is one unit of a computed diff. Concatenating the text of all
// non-Removed segments reconstructs the new content; all non-Added segments
// reconstruct the old content.
type Segment struct {
	Text string
	Kind Kind
}

// Granularity selects the atomic comparison unit.
type Granularity int

const (
	// Chars compares character by character; a single changed character
	// surfaces on its own.
	Chars Granularity = iota
	// Lines compares whole lines; a single changed word marks the entire
	// line removed and its replacement added.
	Lines
)

// Compute diffs old against new at the given granularity. Output is
// deterministic for a fixed input: the diff timeout is disabled so the search
// never gets cut short under load.
func Compute(old, new string, g Granularity) []Segment {
	if old == "" && new == "" {
		return nil
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	var diffs []diffmatchpatch.Diff
	if g == Lines {
		a, b, lines := dmp.DiffLinesToChars(old, new)
		diffs = dmp.DiffMain(a, b, false)
		diffs = dmp.DiffCharsToLines(diffs, lines)
	} else {
		diffs = dmp.DiffMain(old, new, false)
	}

	segs := make([]Segment, 0, len(diffs))
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		seg := Segment{Text: d.Text}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			seg.Kind = Added
		case diffmatchpatch.DiffDelete:
			seg.Kind = Removed
		default:
			seg.Kind = Unchanged
		}
		segs = append(segs, seg)
	}
	return segs
}
