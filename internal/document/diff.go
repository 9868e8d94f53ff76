package document

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffMutation is a [Mutation] derived from the textual difference between
// two document snapshots. Hosts that only expose before/after text (rather
// than per-edit spans) can hand the engine one of these and still get exact
// position mapping.
type DiffMutation struct {
	diffs    []diffmatchpatch.Diff
	inserted string
	changed  bool
}

// Diff computes a DiffMutation between oldText and newText.
func Diff(oldText, newText string) *DiffMutation {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, false)
	diffs = dmp.DiffCleanupEfficiency(diffs)

	m := &DiffMutation{diffs: diffs, changed: oldText != newText}

	// The literal inserted text is only well defined for a pure insertion
	// or a single contiguous replacement.
	inserts, deletes := 0, 0
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			inserts++
			m.inserted = d.Text
		case diffmatchpatch.DiffDelete:
			deletes++
		}
	}
	if inserts != 1 || deletes > 1 {
		m.inserted = ""
	}
	return m
}

// Changed implements [Mutation].
func (m *DiffMutation) Changed() bool { return m.changed }

// InsertedText implements [Mutation].
func (m *DiffMutation) InsertedText() string { return m.inserted }

// Map implements [Mutation] by walking the diff spans, advancing parallel
// cursors through the old and new text.
func (m *DiffMutation) Map(pos int, b Bias) int {
	oldPos, newPos := 0, 0

	for i, d := range m.diffs {
		n := len(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			if pos >= oldPos && pos < oldPos+n {
				if b == BiasLeft {
					return newPos
				}
				// Right bias lands after whatever replaced the span. A
				// replacement diffs as a delete followed by its insert.
				if i+1 < len(m.diffs) && m.diffs[i+1].Type == diffmatchpatch.DiffInsert {
					newPos += len(m.diffs[i+1].Text)
				}
				return newPos
			}
			oldPos += n
		case diffmatchpatch.DiffInsert:
			// A position sitting exactly at the insertion point stays
			// before the inserted text with BiasLeft and lands after it
			// with BiasRight.
			if pos == oldPos && b == BiasLeft {
				return newPos
			}
			newPos += n
		case diffmatchpatch.DiffEqual:
			if pos >= oldPos && pos < oldPos+n {
				return newPos + (pos - oldPos)
			}
			oldPos += n
			newPos += n
		}
	}
	return newPos
}
