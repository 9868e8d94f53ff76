package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/victor-ca/marksense/internal/assist"
	"github.com/victor-ca/marksense/internal/document"
	"github.com/victor-ca/marksense/internal/engine/trigger"
)

// applyEntry replaces a correction's range with replacement and removes it
// from the registry, restoring the user's selection relative to the edit.
// Caller holds the lock.
func (e *Engine) applyEntry(id, replacement string) error {
	defer e.beginSelf()()
	if _, err := e.reg.ApplyByReplacement(e.doc, id, replacement); err != nil {
		return err
	}
	return nil
}

// resolveEntry finishes a correction's lifecycle after the user acted on
// it. Caller holds the lock.
func (e *Engine) resolveEntry(id, action string) {
	e.reg.Remove(id)
	e.metrics.RecordResolved(context.Background(), action)
	e.metrics.PendingCorrections.Add(context.Background(), -1)
	e.rebuildMarkers()
}

// AcceptCorrection resolves a correction in its favor: a manual entry has
// its top suggestion written into the document, an auto entry (already
// applied) is simply retired.
func (e *Engine) AcceptCorrection(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry := e.reg.Get(id)
	if entry == nil {
		return fmt.Errorf("engine: unknown correction %q", id)
	}
	if entry.Type == assist.CorrectionManual {
		if len(entry.Suggestions) == 0 {
			return fmt.Errorf("engine: correction %q has no suggestions", id)
		}
		if err := e.applyEntry(id, entry.Suggestions[0].Text); err != nil {
			return err
		}
	}
	e.resolveEntry(id, "accept")
	return nil
}

// PickSuggestion writes one specific suggestion into the document and
// retires the correction.
func (e *Engine) PickSuggestion(id, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry := e.reg.Get(id)
	if entry == nil {
		return fmt.Errorf("engine: unknown correction %q", id)
	}
	found := false
	for _, s := range entry.Suggestions {
		if s.Text == text {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("engine: correction %q has no suggestion %q", id, text)
	}
	if err := e.applyEntry(id, text); err != nil {
		return err
	}
	e.resolveEntry(id, "pick")
	return nil
}

// RevertCorrection undoes a correction: an auto entry has the original word
// written back, a manual entry (nothing was ever applied) is retired as-is.
func (e *Engine) RevertCorrection(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry := e.reg.Get(id)
	if entry == nil {
		return fmt.Errorf("engine: unknown correction %q", id)
	}
	if entry.Type == assist.CorrectionAuto {
		if err := e.applyEntry(id, entry.OriginalValue); err != nil {
			return err
		}
	}
	e.resolveEntry(id, "revert")
	return nil
}

// DismissCorrection retires a correction without touching the document.
// For an auto entry the applied text stays in place.
func (e *Engine) DismissCorrection(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.reg.Get(id) == nil {
		return fmt.Errorf("engine: unknown correction %q", id)
	}
	e.resolveEntry(id, "dismiss")
	return nil
}

// NeverCorrect adds the correction's original word to the user dictionary
// so it is not flagged again, then reverts the correction.
func (e *Engine) NeverCorrect(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry := e.reg.Get(id)
	if entry == nil {
		return fmt.Errorf("engine: unknown correction %q", id)
	}
	word := strings.ToLower(strings.TrimSpace(entry.OriginalValue))
	if word != "" {
		if err := e.dict.Add(ctx, word); err != nil {
			return fmt.Errorf("engine: add to dictionary: %w", err)
		}
		e.metrics.DictionaryAdds.Add(ctx, 1)
	}
	if entry.Type == assist.CorrectionAuto {
		if err := e.applyEntry(id, entry.OriginalValue); err != nil {
			return err
		}
	}
	e.resolveEntry(id, "never")
	return nil
}

// SetActiveCorrection highlights one correction, typically because the user
// hovered or focused it.
func (e *Engine) SetActiveCorrection(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.reg.SetActive(id) {
		return false
	}
	e.rebuildMarkers()
	return true
}

// ClearActiveCorrection removes the highlight.
func (e *Engine) ClearActiveCorrection() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.reg.ActiveID() == "" {
		return
	}
	e.reg.ClearActive()
	e.rebuildMarkers()
}

// AcceptPrediction writes the tracked ghost text plus a trailing space into
// the document at the prediction's cursor position and moves the cursor
// past it. The trailing space position is remembered so punctuation typed
// next swaps in front of it.
func (e *Engine) AcceptPrediction() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ghost, pos, ok := e.pred.Accept()
	if !ok {
		return fmt.Errorf("engine: no active prediction")
	}
	mut, err := e.selfReplace(document.Range{From: pos, To: pos}, ghost+" ")
	if err != nil {
		return fmt.Errorf("engine: insert prediction: %w", err)
	}
	end := mut.Map(pos, document.BiasRight)
	e.selfSetSelection(end, end)
	e.trailingSpacePos = end - 1
	e.rebuildMarkers()
	return nil
}

// DismissPrediction clears the ghost text without inserting anything.
func (e *Engine) DismissPrediction() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.pred.Dismiss() {
		return
	}
	e.coord.Cancel(trigger.KindPrediction)
	e.rebuildMarkers()
}

// HandleFocusLost is called when the editing surface loses focus: pending
// ghost text disappears and the highlighted correction is released. Pending
// corrections themselves survive, the user may come back to them.
func (e *Engine) HandleFocusLost() {
	e.mu.Lock()
	defer e.mu.Unlock()

	changed := e.pred.Dismiss()
	e.coord.Cancel(trigger.KindPrediction)
	if e.reg.ActiveID() != "" {
		e.reg.ClearActive()
		changed = true
	}
	if changed {
		e.rebuildMarkers()
	}
}
