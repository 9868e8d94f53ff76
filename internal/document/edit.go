package document

// Edit is a single-span replacement mutation: the text within [from, to) was
// replaced by inserted. It is the mutation shape produced by
// [Document.Replace] and by direct typing in [MemDoc].
type Edit struct {
	from     int
	to       int
	inserted string
	changed  bool
	noUndo   bool
}

// NewEdit constructs an Edit describing the replacement of the span
// [from, to) (length given by replacedLen via to-from) with inserted text.
// changed should be false only for edits that left content identical.
func NewEdit(from, to int, inserted string, changed bool) *Edit {
	return &Edit{from: from, to: to, inserted: inserted, changed: changed}
}

// Changed implements [Mutation].
func (e *Edit) Changed() bool { return e.changed }

// InsertedText implements [Mutation].
func (e *Edit) InsertedText() string { return e.inserted }

// ExcludedFromUndo reports whether the edit was marked as an external resync
// that must not enter undo history.
func (e *Edit) ExcludedFromUndo() bool { return e.noUndo }

// Span returns the pre-edit range that was replaced.
func (e *Edit) Span() Range { return Range{From: e.from, To: e.to} }

// Map implements [Mutation]. Positions before the span are unchanged,
// positions after shift by the length delta, and positions inside the
// replaced span collapse to its left or right edge per b.
func (e *Edit) Map(pos int, b Bias) int {
	ins := len(e.inserted)
	del := e.to - e.from

	switch {
	case pos < e.from:
		return pos
	case pos == e.from:
		if b == BiasLeft {
			return pos
		}
		return e.from + ins
	case pos >= e.to:
		return pos + ins - del
	case b == BiasLeft:
		return e.from
	default:
		return e.from + ins
	}
}
