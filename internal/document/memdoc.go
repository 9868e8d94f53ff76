package document

import (
	"fmt"
	"sync"
)

// MemDoc is an in-memory [Document] backed by a plain string. It exists for
// the CLI harness and for tests; a production host adapts its own editor
// buffer to the [Document] interface instead.
//
// Listener callbacks run synchronously on the mutating goroutine, matching
// the engine's single-logical-thread model.
type MemDoc struct {
	mu        sync.Mutex
	text      string
	anchor    int
	head      int
	alive     bool
	nextSubID int

	mutationSubs  map[int]func(Mutation)
	selectionSubs map[int]func(anchor, head int)
}

var _ Document = (*MemDoc)(nil)

// NewMemDoc creates a live MemDoc with the given initial text and the
// selection collapsed at the end of it.
func NewMemDoc(text string) *MemDoc {
	return &MemDoc{
		text:          text,
		anchor:        len(text),
		head:          len(text),
		alive:         true,
		mutationSubs:  make(map[int]func(Mutation)),
		selectionSubs: make(map[int]func(anchor, head int)),
	}
}

// Text implements [Document].
func (d *MemDoc) Text(r Range) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r.From < 0 || r.To > len(d.text) || r.From > r.To {
		return "", fmt.Errorf("document: range [%d,%d) out of bounds (len %d)", r.From, r.To, len(d.text))
	}
	return d.text[r.From:r.To], nil
}

// Len implements [Document].
func (d *MemDoc) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.text)
}

// String returns the full document text.
func (d *MemDoc) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// Replace implements [Document]. The selection collapses to the end of the
// inserted text; callers that need to preserve it capture the selection
// before the call and restore a mapped copy afterwards.
func (d *MemDoc) Replace(r Range, text string, opts ...ReplaceOption) (Mutation, error) {
	var cfg replaceConfig
	for _, o := range opts {
		o(&cfg)
	}

	d.mu.Lock()
	if !d.alive {
		d.mu.Unlock()
		return nil, fmt.Errorf("document: replace on closed document")
	}
	if r.From < 0 || r.To > len(d.text) || r.From > r.To {
		d.mu.Unlock()
		return nil, fmt.Errorf("document: range [%d,%d) out of bounds (len %d)", r.From, r.To, len(d.text))
	}

	old := d.text[r.From:r.To]
	edit := &Edit{
		from:     r.From,
		to:       r.To,
		inserted: text,
		changed:  old != text,
		noUndo:   cfg.noUndo,
	}

	d.text = d.text[:r.From] + text + d.text[r.To:]
	end := r.From + len(text)
	d.anchor, d.head = end, end

	subs := d.snapshotMutationSubs()
	d.mu.Unlock()

	for _, fn := range subs {
		fn(edit)
	}
	return edit, nil
}

// Insert appends text at pos; convenience wrapper over Replace used by the
// harness to simulate typing.
func (d *MemDoc) Insert(pos int, text string) (Mutation, error) {
	return d.Replace(Range{From: pos, To: pos}, text)
}

// Selection implements [Document].
func (d *MemDoc) Selection() (anchor, head int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.anchor, d.head
}

// SetSelection implements [Document]. Moving the selection notifies the
// selection listeners but not the mutation listeners.
func (d *MemDoc) SetSelection(anchor, head int) {
	d.mu.Lock()
	anchor = clamp(anchor, 0, len(d.text))
	head = clamp(head, 0, len(d.text))
	moved := anchor != d.anchor || head != d.head
	d.anchor, d.head = anchor, head
	var subs []func(int, int)
	if moved {
		subs = make([]func(int, int), 0, len(d.selectionSubs))
		for _, fn := range d.selectionSubs {
			subs = append(subs, fn)
		}
	}
	d.mu.Unlock()

	for _, fn := range subs {
		fn(anchor, head)
	}
}

// OnMutation implements [Document].
func (d *MemDoc) OnMutation(fn func(Mutation)) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextSubID
	d.nextSubID++
	d.mutationSubs[id] = fn
	return &memSub{cancel: func() { d.removeMutationSub(id) }}
}

// OnSelectionChange implements [Document].
func (d *MemDoc) OnSelectionChange(fn func(anchor, head int)) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextSubID
	d.nextSubID++
	d.selectionSubs[id] = fn
	return &memSub{cancel: func() { d.removeSelectionSub(id) }}
}

// Alive implements [Document].
func (d *MemDoc) Alive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.alive
}

// Close ends the document session. Further Replace calls fail and all
// listeners are detached.
func (d *MemDoc) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alive = false
	d.mutationSubs = make(map[int]func(Mutation))
	d.selectionSubs = make(map[int]func(anchor, head int))
}

func (d *MemDoc) snapshotMutationSubs() []func(Mutation) {
	subs := make([]func(Mutation), 0, len(d.mutationSubs))
	for _, fn := range d.mutationSubs {
		subs = append(subs, fn)
	}
	return subs
}

func (d *MemDoc) removeMutationSub(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.mutationSubs, id)
}

func (d *MemDoc) removeSelectionSub(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.selectionSubs, id)
}

type memSub struct {
	once   sync.Once
	cancel func()
}

func (s *memSub) Cancel() {
	s.once.Do(s.cancel)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
