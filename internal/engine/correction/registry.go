// Package correction maintains the live registry of pending correction
// entries and the currently active one.
//
// The registry is not internally locked: all access happens inside the
// engine's reducer, which already serialises every transition. Entries stay
// valid across edits because the engine remaps them through every mutation
// before any other logic runs.
package correction

import (
	"unicode"
	"unicode/utf8"

	"github.com/victor-ca/marksense/internal/assist"
	"github.com/victor-ca/marksense/internal/document"
)

// Entry is one pending correction. Invariant: From < To and, while the
// entry is live, the document text at [From, To) equals CurrentValue.
//
// Auto entries have already been applied (the document shows CurrentValue,
// which differs from OriginalValue); manual entries are proposals only
// (CurrentValue == OriginalValue).
type Entry struct {
	ID            string
	From          int
	To            int
	Type          assist.CorrectionType
	OriginalValue string
	CurrentValue  string
	Suggestions   []assist.Suggestion
}

// Range returns the entry's document span.
func (e *Entry) Range() document.Range {
	return document.Range{From: e.From, To: e.To}
}

// Registry holds pending corrections in insertion order plus the id of the
// entry currently selected for the assistance popup.
type Registry struct {
	entries  []*Entry
	activeID string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends e. No de-duplication is performed here; the grammar response
// handler's overlap check is the only guard.
func (r *Registry) Add(e *Entry) {
	r.entries = append(r.entries, e)
}

// Remove deletes the entry with the given id and reports whether it
// existed. The active id is cleared if it pointed at the removed entry.
func (r *Registry) Remove(id string) bool {
	for i, e := range r.entries {
		if e.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			if r.activeID == id {
				r.activeID = ""
			}
			return true
		}
	}
	return false
}

// Get returns the entry with the given id, or nil.
func (r *Registry) Get(id string) *Entry {
	for _, e := range r.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Entries returns the live entries in insertion order. The returned slice
// is the registry's own backing array; callers must not mutate it.
func (r *Registry) Entries() []*Entry {
	return r.entries
}

// Len returns the number of pending entries.
func (r *Registry) Len() int { return len(r.entries) }

// SetActive marks the entry with the given id as active and reports whether
// it resolved.
func (r *Registry) SetActive(id string) bool {
	if r.Get(id) == nil {
		return false
	}
	r.activeID = id
	return true
}

// ClearActive drops the active selection.
func (r *Registry) ClearActive() {
	r.activeID = ""
}

// ActiveID returns the id of the active entry, or "".
func (r *Registry) ActiveID() string { return r.activeID }

// Active returns the active entry, or nil. A stale active id (entry since
// removed) resolves to nil.
func (r *Registry) Active() *Entry {
	if r.activeID == "" {
		return nil
	}
	return r.Get(r.activeID)
}

// OverlapsAny reports whether [from, to) overlaps any live entry's range.
func (r *Registry) OverlapsAny(from, to int) bool {
	probe := document.Range{From: from, To: to}
	for _, e := range r.entries {
		if e.Range().Overlaps(probe) {
			return true
		}
	}
	return false
}

// Remap advances every entry's range through m, dropping entries whose
// range collapsed. Returns the number of entries dropped.
func (r *Registry) Remap(m document.Mutation) int {
	dropped := 0
	kept := r.entries[:0]
	for _, e := range r.entries {
		mapped, ok := document.MapRange(e.Range(), m)
		if !ok {
			dropped++
			if r.activeID == e.ID {
				r.activeID = ""
			}
			continue
		}
		e.From, e.To = mapped.From, mapped.To
		kept = append(kept, e)
	}
	r.entries = kept
	return dropped
}

// Revalidate drops entries whose live document text no longer equals their
// CurrentValue, and entries with a word character immediately adjacent to
// their range — the corrected token is still being typed. Returns the
// number of entries dropped.
//
// Entries are deliberately not dropped merely because an edit occurred near
// them; continued typing after a correction must not make it vanish.
func (r *Registry) Revalidate(doc document.Document) int {
	dropped := 0
	kept := r.entries[:0]
	docLen := doc.Len()

	for _, e := range r.entries {
		if !entryStillValid(doc, docLen, e) {
			dropped++
			if r.activeID == e.ID {
				r.activeID = ""
			}
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return dropped
}

// Reconcile remaps every entry through m and then revalidates against the
// live document, returning the total entries dropped. Calling it twice
// with no intervening mutation is a no-op.
func (r *Registry) Reconcile(doc document.Document, m document.Mutation) int {
	return r.Remap(m) + r.Revalidate(doc)
}

func entryStillValid(doc document.Document, docLen int, e *Entry) bool {
	if e.From < 0 || e.To > docLen || e.From >= e.To {
		return false
	}
	live, err := doc.Text(e.Range())
	if err != nil || live != e.CurrentValue {
		return false
	}
	// A word character touching either boundary means the token is still
	// being extended.
	if e.From > 0 {
		before, err := doc.Text(document.Range{From: e.From - 1, To: e.From})
		if err == nil && isWordChar(before) {
			return false
		}
	}
	if e.To < docLen {
		after, err := doc.Text(document.Range{From: e.To, To: e.To + 1})
		if err == nil && isWordChar(after) {
			return false
		}
	}
	return true
}

// ApplyByReplacement replaces the entry's document range with replacement,
// restores the caller's pre-existing selection (the replacement primitive
// collapses it to the edit's end), and removes the entry. It returns the
// mutation produced by the replacement, or nil when id does not resolve.
func (r *Registry) ApplyByReplacement(doc document.Document, id, replacement string) (document.Mutation, error) {
	e := r.Get(id)
	if e == nil {
		return nil, nil
	}

	anchor, head := doc.Selection()
	mut, err := doc.Replace(e.Range(), replacement)
	if err != nil {
		return nil, err
	}

	doc.SetSelection(
		mut.Map(anchor, document.BiasLeft),
		mut.Map(head, document.BiasLeft),
	)

	r.Remove(id)
	return mut, nil
}

func isWordChar(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
