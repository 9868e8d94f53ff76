// Package document defines the minimal capability set the correction engine
// requires from a host document, along with the position-mapping primitives
// used to carry recorded offsets through edits.
//
// A [Document] is a linear character space owned by the host editor. The
// engine never inspects document internals; it reads text by [Range],
// applies replacements, and observes edits through [Mutation] values
// delivered to registered listeners. [MemDoc] is a reference implementation
// used by the command-line harness and the test suites.
package document

// Bias controls which side of an edit boundary a mapped position sticks to.
//
// When text is inserted exactly at a position, [BiasLeft] keeps the position
// before the inserted text and [BiasRight] moves it after. Mapping a range's
// start with BiasLeft and its end with BiasRight makes boundary insertions
// extend the range instead of shrinking it.
type Bias int

const (
	BiasLeft Bias = iota
	BiasRight
)

// Range is a half-open interval [From, To) over the document's character
// space.
type Range struct {
	From int
	To   int
}

// Len returns the number of characters covered by r.
func (r Range) Len() int { return r.To - r.From }

// Contains reports whether pos lies inside r.
func (r Range) Contains(pos int) bool { return pos >= r.From && pos < r.To }

// Overlaps reports whether r and other share at least one position.
func (r Range) Overlaps(other Range) bool {
	return r.From < other.To && other.From < r.To
}

// Mutation is a single sequential edit over the document.
//
// Implementations must be immutable once delivered to listeners.
type Mutation interface {
	// Changed reports whether the mutation altered document content.
	// Selection-only updates return false.
	Changed() bool

	// Map advances pos through the edit, biased per b at the edit boundary.
	Map(pos int, b Bias) int

	// InsertedText returns the literal text inserted by the edit when the
	// edit was a pure insertion or replacement, and "" otherwise.
	InsertedText() string
}

// Subscription is a handle for a registered listener. Cancel detaches the
// listener; it is safe to call more than once.
type Subscription interface {
	Cancel()
}

// Document is the host-side capability set required by the engine.
type Document interface {
	// Text returns the current document text within r.
	Text(r Range) (string, error)

	// Len returns the current document length in characters.
	Len() int

	// Replace substitutes the text within r and returns the resulting
	// mutation. The host's selection collapses to the end of the edit
	// unless the caller restores it afterwards.
	Replace(r Range, text string, opts ...ReplaceOption) (Mutation, error)

	// Selection returns the current selection anchor and head.
	Selection() (anchor, head int)

	// SetSelection moves the selection without changing content.
	SetSelection(anchor, head int)

	// OnMutation registers fn to be invoked synchronously for every
	// mutation, content-changing or not.
	OnMutation(fn func(Mutation)) Subscription

	// OnSelectionChange registers fn to be invoked when the selection
	// moves without a content change.
	OnSelectionChange(fn func(anchor, head int)) Subscription

	// Alive reports whether the document session is still open.
	Alive() bool
}

// ReplaceOption adjusts how a replacement is recorded by the host.
type ReplaceOption func(*replaceConfig)

type replaceConfig struct {
	noUndo bool
}

// WithoutUndo marks the replacement as an externally-driven resync that must
// not enter the host's undo history.
func WithoutUndo() ReplaceOption {
	return func(c *replaceConfig) { c.noUndo = true }
}

// MapRange remaps r through m with the start biased left and the end biased
// right, so that text inserted at either boundary extends the range. The
// second return value is false when the mapped range has collapsed and the
// caller should drop whatever it tracked.
func MapRange(r Range, m Mutation) (Range, bool) {
	mapped := Range{
		From: m.Map(r.From, BiasLeft),
		To:   m.Map(r.To, BiasRight),
	}
	if mapped.From >= mapped.To {
		return Range{}, false
	}
	return mapped, true
}
