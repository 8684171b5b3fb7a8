// Package reactive provides fine-grained reactive primitives: signals,
// memos, effects, batching and untracked reads.
//
// Dependencies are discovered by running a computation, not declared. Every
// run first drops the sources recorded on the previous run and then records
// each signal read while it executes. Writes schedule every subscriber; inside
// a Batch the re-runs are deferred to one flush and coalesced.
//
// A Runtime is the explicit graph context. It is not safe for concurrent use:
// the owner serializes access (the sync engine holds a mutex around every
// read, write and effect run).
//
// Flush order is by height: a memo's readers sit above the memo, so a derived
// value settles before anything that reads it, whatever order they were
// created in.
//
// There is no cycle detection. A computation that writes a signal it also
// reads must reach a fixed point or it will loop.
package reactive

import "sort"

// source is a signal's subscriber set, seen from a computation.
type source interface {
	unsubscribe(c *computation)
}

// computation is the shared body of effects and memos.
type computation struct {
	id       uint64
	height   int
	rt       *Runtime
	fn       func()
	sources  []source
	disposed bool
}

func (c *computation) run() {
	if c.disposed {
		return
	}
	for _, s := range c.sources {
		s.unsubscribe(c)
	}
	c.sources = c.sources[:0]

	prev := c.rt.current
	c.rt.current = c
	defer func() { c.rt.current = prev }()
	c.fn()
}

// Runtime owns one reactive graph.
type Runtime struct {
	current    *computation
	batchDepth int
	queue      []*computation
	queued     map[*computation]struct{}
	nextID     uint64
}

// NewRuntime creates an empty reactive graph.
func NewRuntime() *Runtime {
	return &Runtime{queued: make(map[*computation]struct{})}
}

func (rt *Runtime) schedule(c *computation) {
	if _, ok := rt.queued[c]; ok {
		return
	}
	rt.queued[c] = struct{}{}
	rt.queue = append(rt.queue, c)
}

// Batch runs fn and defers every computation re-run it triggers to a single
// flush when the outermost Batch returns. A computation scheduled several
// times within the batch runs once.
func (rt *Runtime) Batch(fn func()) {
	rt.batchDepth++
	defer func() {
		if rt.batchDepth == 1 {
			rt.flush()
		}
		rt.batchDepth--
	}()
	fn()
}

// before reports whether c runs ahead of d in a flush: lower height first,
// then older.
func (c *computation) before(d *computation) bool {
	if c.height != d.height {
		return c.height < d.height
	}
	return c.id < d.id
}

// flush drains the queue lowest computation first, so memos settle before
// the computations that read them.
func (rt *Runtime) flush() {
	for len(rt.queue) > 0 {
		next := 0
		for i, c := range rt.queue {
			if c.before(rt.queue[next]) {
				next = i
			}
		}
		c := rt.queue[next]
		rt.queue = append(rt.queue[:next], rt.queue[next+1:]...)
		delete(rt.queued, c)
		c.run()
	}
}

// Untrack runs fn without recording any signal reads as dependencies.
func (rt *Runtime) Untrack(fn func()) {
	prev := rt.current
	rt.current = nil
	defer func() { rt.current = prev }()
	fn()
}

// Untrack runs fn without dependency tracking and returns its result.
func Untrack[T any](rt *Runtime, fn func() T) T {
	var v T
	rt.Untrack(func() { v = fn() })
	return v
}

// Tracking reports whether a computation is currently recording reads.
func (rt *Runtime) Tracking() bool {
	return rt.current != nil
}

// Signal is a single reactive cell.
type Signal[T any] struct {
	rt     *Runtime
	value  T
	subs   map[*computation]struct{}
	equals func(a, b T) bool
	// owner is the memo computation that writes this signal, if any.
	owner *computation
}

// NewSignal creates a signal holding initial.
func NewSignal[T any](rt *Runtime, initial T) *Signal[T] {
	return &Signal[T]{rt: rt, value: initial, subs: make(map[*computation]struct{})}
}

// CreateSignal returns the read accessor and write mutator of a new signal.
func CreateSignal[T any](rt *Runtime, initial T) (func() T, func(T)) {
	s := NewSignal(rt, initial)
	return s.Get, s.Set
}

// Get returns the value and subscribes the running computation, if any.
func (s *Signal[T]) Get() T {
	if c := s.rt.current; c != nil {
		if _, ok := s.subs[c]; !ok {
			s.subs[c] = struct{}{}
			c.sources = append(c.sources, s)
		}
		if s.owner != nil && c.height <= s.owner.height {
			c.height = s.owner.height + 1
		}
	}
	return s.value
}

// Peek returns the value without subscribing.
func (s *Signal[T]) Peek() T {
	return s.value
}

// WithEquals makes Set skip notification when eq reports the new value equal
// to the current one.
func (s *Signal[T]) WithEquals(eq func(a, b T) bool) *Signal[T] {
	s.equals = eq
	return s
}

// Set stores v and runs every subscriber before returning, unless a Batch is
// open, in which case the runs happen when it closes.
func (s *Signal[T]) Set(v T) {
	if s.equals != nil && s.equals(s.value, v) {
		return
	}
	s.value = v
	subs := s.snapshot()
	if len(subs) == 0 {
		return
	}
	s.rt.Batch(func() {
		for _, c := range subs {
			s.rt.schedule(c)
		}
	})
}

// Update replaces the value with fn(current). The current value is read
// untracked.
func (s *Signal[T]) Update(fn func(T) T) {
	s.Set(fn(s.value))
}

func (s *Signal[T]) unsubscribe(c *computation) {
	delete(s.subs, c)
}

// snapshot copies the subscriber set in creation order, so re-subscription
// during notification cannot disturb the iteration.
func (s *Signal[T]) snapshot() []*computation {
	if len(s.subs) == 0 {
		return nil
	}
	out := make([]*computation, 0, len(s.subs))
	for c := range s.subs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Effect is a computation re-run whenever a signal it read last time changes.
type Effect struct {
	c *computation
}

// NewEffect registers fn and runs it once immediately.
func NewEffect(rt *Runtime, fn func()) *Effect {
	rt.nextID++
	c := &computation{id: rt.nextID, rt: rt, fn: fn}
	c.run()
	return &Effect{c: c}
}

// Dispose unsubscribes the effect from all sources; it never runs again.
func (e *Effect) Dispose() {
	if e.c.disposed {
		return
	}
	e.c.disposed = true
	for _, s := range e.c.sources {
		s.unsubscribe(e.c)
	}
	e.c.sources = nil
}

// Memo is a read-only derived signal.
type Memo[T any] struct {
	value  *Signal[T]
	effect *Effect
}

// NewMemo creates a derived signal whose value is fn's latest result.
func NewMemo[T any](rt *Runtime, fn func() T) *Memo[T] {
	var zero T
	m := &Memo[T]{value: NewSignal(rt, zero)}
	m.effect = NewEffect(rt, func() { m.value.Set(fn()) })
	m.value.owner = m.effect.c
	return m
}

// Get returns the memoized value and subscribes the running computation.
func (m *Memo[T]) Get() T {
	return m.value.Get()
}

// Peek returns the memoized value without subscribing.
func (m *Memo[T]) Peek() T {
	return m.value.Peek()
}

// Dispose stops recomputing the memo.
func (m *Memo[T]) Dispose() {
	m.effect.Dispose()
}

// WithEquals makes the memo skip notifying readers when a recomputation
// yields a value eq reports equal to the previous one.
func (m *Memo[T]) WithEquals(eq func(a, b T) bool) *Memo[T] {
	m.value.WithEquals(eq)
	return m
}
