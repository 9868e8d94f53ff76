// Package engine coordinates asynchronous writing assistance over a mutable
// document: debounced word corrections, grammar checks, and inline
// sentence predictions, reconciled against every edit so stale results
// never reach the surface.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/victor-ca/marksense/internal/assist"
	"github.com/victor-ca/marksense/internal/dictionary"
	"github.com/victor-ca/marksense/internal/document"
	"github.com/victor-ca/marksense/internal/engine/correction"
	"github.com/victor-ca/marksense/internal/engine/marker"
	"github.com/victor-ca/marksense/internal/engine/prediction"
	"github.com/victor-ca/marksense/internal/engine/trigger"
	"github.com/victor-ca/marksense/internal/observe"
)

// Punctuation that, when typed, marks the word before it as finished. Any
// whitespace rune (space, tab, newline) counts as a boundary too.
const wordBoundaryChars = ".,;:!?-)]}>"

// Characters that end a sentence and make its text eligible for a grammar
// pass.
const sentenceEnders = ".!?"

// Assistant is the remote correction/completion backend. [assist.Client]
// implements it; tests substitute a mock.
type Assistant interface {
	CorrectFinalWord(ctx context.Context, text string) (*assist.WordCorrection, error)
	CheckGrammar(ctx context.Context, sentence, fullText string) ([]assist.GrammarMatch, error)
	CompleteSentence(ctx context.Context, text string) (*assist.Completion, error)
}

// Option configures an [Engine].
type Option func(*Engine)

// WithLogger sets the engine's logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics sets the engine's metrics. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithCoordinatorOptions forwards options to the trigger coordinator, most
// usefully [trigger.WithDelay] to shorten debounce windows in tests.
func WithCoordinatorOptions(opts ...trigger.Option) Option {
	return func(e *Engine) { e.coordOpts = append(e.coordOpts, opts...) }
}

// WithRenderFunc registers a callback invoked with the fresh marker set
// after every state change that affects what the surface should draw. The
// callback runs with engine internals locked and must not call back into
// the engine or the document.
func WithRenderFunc(fn func(marker.Set)) Option {
	return func(e *Engine) { e.render = fn }
}

// Snapshot is a point-in-time copy of the engine's visible state.
type Snapshot struct {
	Corrections        []correction.Entry
	ActiveCorrectionID string
	Prediction         *prediction.State
	TrailingSpacePos   int
}

// Engine is the orchestration state machine. All state transitions happen
// under one mutex; document listener callbacks, trigger callbacks, and user
// action methods all funnel through it.
type Engine struct {
	mu     sync.Mutex
	closed bool

	// reducerGID is the id of the goroutine currently driving a transition
	// (zero when none). Document callbacks fire synchronously on the
	// goroutine performing the edit, so an engine-initiated edit re-enters
	// the listeners on the goroutine that already holds mu; comparing
	// against the caller's own id distinguishes that case without touching
	// the mutex. Written only while holding mu, read atomically anywhere.
	reducerGID atomic.Uint64

	doc     document.Document
	assist  Assistant
	dict    dictionary.Store
	log     *slog.Logger
	metrics *observe.Metrics

	reg     *correction.Registry
	pred    *prediction.Tracker
	markers *marker.Builder
	coord   *trigger.Coordinator

	// trailingSpacePos is the document position of the space appended by
	// the last accepted prediction, or -1. Typing punctuation at that
	// position swaps the space and the punctuation mark.
	trailingSpacePos int

	markerSet marker.Set
	render    func(marker.Set)

	subs      []document.Subscription
	coordOpts []trigger.Option
	nextID    uint64
}

// New wires an Engine to a document. The engine subscribes to document
// mutations and selection changes immediately; Close detaches it.
func New(ctx context.Context, doc document.Document, assistant Assistant, dict dictionary.Store, opts ...Option) (*Engine, error) {
	if doc == nil {
		return nil, fmt.Errorf("engine: nil document")
	}
	if assistant == nil {
		return nil, fmt.Errorf("engine: nil assistant")
	}
	if dict == nil {
		return nil, fmt.Errorf("engine: nil dictionary")
	}

	e := &Engine{
		doc:              doc,
		assist:           assistant,
		dict:             dict,
		log:              slog.Default(),
		reg:              correction.NewRegistry(),
		pred:             prediction.NewTracker(),
		markers:          marker.NewBuilder(),
		trailingSpacePos: -1,
	}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	e.coord = trigger.New(ctx, e.coordOpts...)

	e.subs = append(e.subs,
		doc.OnMutation(e.onMutation),
		doc.OnSelectionChange(e.onSelectionChange),
	)
	return e, nil
}

// Close cancels all pending and in-flight requests, detaches the engine
// from the document, and releases cached markers. Idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	subs := e.subs
	e.subs = nil
	e.markers.Release()
	e.mu.Unlock()

	e.coord.Close()
	for _, s := range subs {
		s.Cancel()
	}
}

// Snapshot copies the engine's visible state for inspection.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		ActiveCorrectionID: e.reg.ActiveID(),
		TrailingSpacePos:   e.trailingSpacePos,
	}
	for _, entry := range e.reg.Entries() {
		snap.Corrections = append(snap.Corrections, *entry)
	}
	snap.Prediction = e.pred.State()
	return snap
}

// Markers returns the most recently built marker set.
func (e *Engine) Markers() marker.Set {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.markerSet
}

// SetDebounce adjusts a trigger's debounce window at runtime, typically
// after a config reload.
func (e *Engine) SetDebounce(kind trigger.Kind, d time.Duration) {
	e.coord.SetDelay(kind, d)
}

// beginSelf marks the calling goroutine as the one driving the current
// transition, so document callbacks it provokes are folded in re-entrantly
// instead of deadlocking on mu. Caller holds the lock; the returned func
// restores the previous owner.
func (e *Engine) beginSelf() func() {
	prev := e.reducerGID.Load()
	e.reducerGID.Store(goroutineID())
	return func() { e.reducerGID.Store(prev) }
}

// reentrant reports whether the calling goroutine is already inside a
// transition. Only the goroutine that stored its own id can ever see a
// match, so a true result implies this goroutine holds mu.
func (e *Engine) reentrant() bool {
	gid := goroutineID()
	return gid != 0 && e.reducerGID.Load() == gid
}

// onMutation is the document mutation listener. Document callbacks are
// dispatched synchronously on the mutating goroutine, so engine-initiated
// edits (applying a correction, accepting a prediction, the trailing-space
// swap) arrive re-entrantly while the engine already holds its lock.
func (e *Engine) onMutation(m document.Mutation) {
	if !m.Changed() {
		return
	}
	if e.reentrant() {
		e.reduceMutation(m, true)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	defer e.beginSelf()()
	e.reduceMutation(m, false)
}

// onSelectionChange clears the active correction when the cursor leaves its
// range. Selection moves caused by the engine's own edits arrive
// re-entrantly and are ignored.
func (e *Engine) onSelectionChange(anchor, head int) {
	if e.reentrant() {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	active := e.reg.Active()
	if active == nil {
		return
	}
	if head < active.From || head > active.To {
		e.reg.ClearActive()
		e.rebuildMarkers()
	}
}

// reduceMutation folds one document mutation into engine state. Order
// matters: positions are remapped first so every later step sees
// coordinates in the new document, then the trailing-space swap gets a
// chance to rewrite the edit, then the prediction either advances or
// clears, then surviving corrections are revalidated against the live
// text, and finally (for user edits only) new assistant work is scheduled.
func (e *Engine) reduceMutation(m document.Mutation, selfEdit bool) {
	dropped := e.reg.Remap(m)
	e.pred.Remap(m)

	merged := false
	if !selfEdit {
		merged = e.mergeTrailingSpacePunct(m)
		e.trailingSpacePos = -1
	}

	if !selfEdit && !merged {
		switch e.pred.AdvanceOrClear(m.InsertedText()) {
		case prediction.OutcomeConsumed, prediction.OutcomeCleared:
			e.coord.Cancel(trigger.KindPrediction)
		}
	}

	dropped += e.reg.Revalidate(e.doc)
	if dropped > 0 {
		bg := context.Background()
		e.metrics.RecordDrops(bg, "correction", observe.DropMismatch, int64(dropped))
		e.metrics.PendingCorrections.Add(bg, -int64(dropped))
	}

	if !selfEdit && !merged {
		e.scheduleTriggers(m)
	}
	e.rebuildMarkers()
}

// mergeTrailingSpacePunct handles punctuation typed directly after an
// accepted prediction's trailing space: "word ." becomes "word. " so the
// user keeps typing without fixing spacing. Returns true when it rewrote
// the edit.
func (e *Engine) mergeTrailingSpacePunct(m document.Mutation) bool {
	if e.trailingSpacePos < 0 {
		return false
	}
	ins := m.InsertedText()
	if len(ins) != 1 || !strings.ContainsAny(ins, sentenceEnders+",;:") {
		return false
	}

	// The space sits just before the typed character after remapping.
	pos := m.Map(e.trailingSpacePos, document.BiasLeft)
	live, err := e.doc.Text(document.Range{From: pos, To: pos + 2})
	if err != nil || live != " "+ins {
		return false
	}
	if _, err := e.doc.Replace(document.Range{From: pos, To: pos + 2}, ins+" ", document.WithoutUndo()); err != nil {
		e.log.Warn("trailing space merge failed", "error", err)
		return false
	}
	return true
}

// scheduleTriggers decides which assistant pipelines a user edit arms.
func (e *Engine) scheduleTriggers(m document.Mutation) {
	ins := m.InsertedText()

	if ins != "" && endsWithWordBoundary(ins) {
		e.coord.Schedule(trigger.KindWord, e.fireWordCorrection)
	}
	if strings.ContainsAny(ins, sentenceEnders) || e.currentBlockPunctuated() {
		e.coord.Schedule(trigger.KindGrammar, e.fireGrammarCheck)
	}
	if !e.pred.Active() {
		e.coord.Schedule(trigger.KindPrediction, e.firePrediction)
	}
}

// rebuildMarkers recomputes the marker set and notifies the render
// callback. Caller holds the lock.
func (e *Engine) rebuildMarkers() {
	e.markerSet = e.markers.Build(e.reg.Entries(), e.pred.State(), e.doc.Len())
	if e.render != nil {
		e.render(e.markerSet)
	}
}

// currentBlock returns the line containing the selection head. Caller holds
// the lock.
func (e *Engine) currentBlock() (document.Range, string, bool) {
	return e.blockAt(e.selectionHead())
}

// blockAt returns the line containing pos. Caller holds the lock.
func (e *Engine) blockAt(pos int) (document.Range, string, bool) {
	full, err := e.doc.Text(document.Range{From: 0, To: e.doc.Len()})
	if err != nil {
		return document.Range{}, "", false
	}
	if pos < 0 || pos > len(full) {
		return document.Range{}, "", false
	}

	start := strings.LastIndexByte(full[:pos], '\n') + 1
	end := strings.IndexByte(full[pos:], '\n')
	if end < 0 {
		end = len(full)
	} else {
		end += pos
	}
	return document.Range{From: start, To: end}, full[start:end], true
}

// currentBlockPunctuated reports whether the cursor's line already contains
// a sentence ender, which keeps grammar passes firing on mid-sentence edits
// to completed sentences.
func (e *Engine) currentBlockPunctuated() bool {
	_, text, ok := e.currentBlock()
	return ok && strings.ContainsAny(text, sentenceEnders)
}

func (e *Engine) selectionHead() int {
	_, head := e.doc.Selection()
	return head
}

func (e *Engine) newEntryID() string {
	e.nextID++
	return fmt.Sprintf("mk-%d", e.nextID)
}

func endsWithWordBoundary(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(r) || strings.ContainsRune(wordBoundaryChars, r)
}

// goroutineID parses the calling goroutine's id out of its stack header.
// The runtime offers no direct accessor; the "goroutine N [state]:" header
// format is stable.
func goroutineID() uint64 {
	var buf [32]byte
	n := runtime.Stack(buf[:], false)
	s := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	id, _ := strconv.ParseUint(s, 10, 64)
	return id
}
