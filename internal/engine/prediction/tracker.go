// Package prediction tracks the single current ghost-text prediction.
//
// At most one prediction exists at a time. While the user types exactly the
// predicted text the tracker advances in place — no re-fetch; any mismatch
// destroys the prediction and the engine's idle trigger schedules a fresh
// request.
package prediction

import (
	"strings"

	"github.com/victor-ca/marksense/internal/document"
)

// State is the current prediction. GhostText is the suffix the user has not
// typed yet; CursorPos is the document position where it renders.
type State struct {
	FullText  string
	GhostText string
	CursorPos int
}

// Outcome reports what AdvanceOrClear did with an insertion.
type Outcome int

const (
	// OutcomeNone: there was no prediction to advance.
	OutcomeNone Outcome = iota

	// OutcomeAdvanced: the insertion was a prefix of the ghost text and
	// was consumed.
	OutcomeAdvanced

	// OutcomeConsumed: the insertion consumed the entire remaining ghost
	// text; the prediction is now cleared.
	OutcomeConsumed

	// OutcomeCleared: the insertion broke the prefix match; the
	// prediction was destroyed.
	OutcomeCleared
)

// Tracker owns the prediction state. Like the correction registry it is
// unlocked; the engine's reducer serialises access.
type Tracker struct {
	state *State
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Active reports whether a prediction is currently displayed.
func (t *Tracker) Active() bool { return t.state != nil }

// State returns a copy of the current prediction, or nil.
func (t *Tracker) State() *State {
	if t.state == nil {
		return nil
	}
	s := *t.state
	return &s
}

// Set replaces any current prediction. Callers are expected to have
// confirmed no prediction is active; replacing a live one churns the ghost
// element for no benefit.
func (t *Tracker) Set(fullText, ghostText string, cursorPos int) {
	if ghostText == "" {
		return
	}
	t.state = &State{FullText: fullText, GhostText: ghostText, CursorPos: cursorPos}
}

// Remap advances the render position through m. Right bias keeps the ghost
// after text typed at the cursor.
func (t *Tracker) Remap(m document.Mutation) {
	if t.state == nil {
		return
	}
	t.state.CursorPos = m.Map(t.state.CursorPos, document.BiasRight)
}

// AdvanceOrClear consumes inserted against the ghost text. An exact prefix
// shrinks the ghost; anything else clears the prediction. The cursor
// position is assumed to have been remapped already (reducer step order).
func (t *Tracker) AdvanceOrClear(inserted string) Outcome {
	if t.state == nil {
		return OutcomeNone
	}
	if inserted == "" || !strings.HasPrefix(t.state.GhostText, inserted) {
		t.state = nil
		return OutcomeCleared
	}
	t.state.GhostText = t.state.GhostText[len(inserted):]
	if t.state.GhostText == "" {
		t.state = nil
		return OutcomeConsumed
	}
	return OutcomeAdvanced
}

// Accept clears the prediction and returns the remaining ghost text and the
// position it should be inserted at. The engine inserts the text plus one
// trailing space and records that space's position for punctuation
// re-attachment.
func (t *Tracker) Accept() (ghost string, pos int, ok bool) {
	if t.state == nil {
		return "", 0, false
	}
	ghost, pos = t.state.GhostText, t.state.CursorPos
	t.state = nil
	return ghost, pos, true
}

// Dismiss clears the prediction without inserting anything. Reports whether
// a prediction existed.
func (t *Tracker) Dismiss() bool {
	if t.state == nil {
		return false
	}
	t.state = nil
	return true
}
