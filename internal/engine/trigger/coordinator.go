// Package trigger manages the debounced, cancellable dispatch of assistant
// requests.
//
// Each request kind (word correction, grammar check, prediction) has an
// independent debounce timer and at most one request in flight. Scheduling
// cancels and reschedules the pending timer — only the most recent
// scheduling inside the debounce window survives — and firing aborts any
// in-flight request of the same kind before issuing the new one. Every fire
// is stamped with a monotonically increasing per-kind sequence number so
// response handlers can discard superseded results regardless of arrival
// order.
package trigger

import (
	"context"
	"sync"
	"time"
)

// Kind identifies one of the three independent request pipelines.
type Kind string

const (
	KindWord       Kind = "word"
	KindGrammar    Kind = "grammar"
	KindPrediction Kind = "prediction"
)

const (
	defaultWordDelay       = 150 * time.Millisecond
	defaultGrammarDelay    = 800 * time.Millisecond
	defaultPredictionDelay = 50 * time.Millisecond
)

// Option configures a [Coordinator].
type Option func(*Coordinator)

// WithDelay overrides the debounce delay for one kind.
func WithDelay(kind Kind, d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.delays[kind] = d
		}
	}
}

// Coordinator owns the timers, abort contexts, and sequence counters for
// all three request kinds. Safe for concurrent use; the request callbacks
// run on timer goroutines.
type Coordinator struct {
	mu       sync.Mutex
	base     context.Context
	stopBase context.CancelFunc
	closed   bool

	delays   map[Kind]time.Duration
	timers   map[Kind]*time.Timer
	inflight map[Kind]context.CancelFunc
	seq      map[Kind]uint64
}

// New creates a Coordinator whose requests descend from ctx: cancelling ctx
// (or calling [Coordinator.Close]) aborts everything outstanding.
func New(ctx context.Context, opts ...Option) *Coordinator {
	base, stop := context.WithCancel(ctx)
	c := &Coordinator{
		base:     base,
		stopBase: stop,
		delays: map[Kind]time.Duration{
			KindWord:       defaultWordDelay,
			KindGrammar:    defaultGrammarDelay,
			KindPrediction: defaultPredictionDelay,
		},
		timers:   make(map[Kind]*time.Timer),
		inflight: make(map[Kind]context.CancelFunc),
		seq:      make(map[Kind]uint64),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Schedule arms (or re-arms) the debounce timer for kind. When the timer
// fires, any in-flight request of the same kind is aborted, a fresh request
// context and sequence number are issued, and fn runs on the timer
// goroutine. fn must check ctx before and after its network call and must
// verify its seq is still the latest before applying results.
func (c *Coordinator) Schedule(kind Kind, fn func(ctx context.Context, seq uint64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if t, ok := c.timers[kind]; ok {
		t.Stop()
	}
	c.timers[kind] = time.AfterFunc(c.delays[kind], func() {
		ctx, seq, ok := c.fire(kind)
		if !ok {
			return
		}
		fn(ctx, seq)
	})
}

// fire issues the request context and sequence number for a timer that has
// elapsed, aborting the kind's previous in-flight request.
func (c *Coordinator) fire(kind Kind) (context.Context, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, 0, false
	}

	delete(c.timers, kind)
	if cancel, ok := c.inflight[kind]; ok {
		cancel()
	}

	c.seq[kind]++
	ctx, cancel := context.WithCancel(c.base)
	c.inflight[kind] = cancel
	return ctx, c.seq[kind], true
}

// SetDelay changes the debounce delay for kind at runtime. Already-armed
// timers keep their old delay; the next Schedule uses the new one.
func (c *Coordinator) SetDelay(kind Kind, d time.Duration) {
	if d < 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delays[kind] = d
}

// Latest returns the most recently issued sequence number for kind. A
// response whose seq differs must be discarded.
func (c *Coordinator) Latest(kind Kind) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq[kind]
}

// Finish releases the in-flight slot for kind when seq is still current.
// Call it when a request completes, whatever the outcome.
func (c *Coordinator) Finish(kind Kind, seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq[kind] != seq {
		return
	}
	if cancel, ok := c.inflight[kind]; ok {
		cancel()
		delete(c.inflight, kind)
	}
}

// Cancel stops the pending timer and aborts the in-flight request for kind.
func (c *Coordinator) Cancel(kind Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[kind]; ok {
		t.Stop()
		delete(c.timers, kind)
	}
	if cancel, ok := c.inflight[kind]; ok {
		cancel()
		delete(c.inflight, kind)
	}
}

// Close cancels every timer and in-flight request and rejects further
// scheduling. Idempotent.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for kind, t := range c.timers {
		t.Stop()
		delete(c.timers, kind)
	}
	for kind, cancel := range c.inflight {
		cancel()
		delete(c.inflight, kind)
	}
	c.stopBase()
}
