// Package tracker wraps a value so that every mutation made through a
// scoped write handle is detected by equality comparison and broadcast to
// listeners as (old, new) change events. The mutator never signals a
// change itself: ending the handle compares the value against the snapshot
// taken when the handle was opened and publishes one event if they differ.
package tracker

import (
	"errors"
	"sync"

	"github.com/tracked-go/tracked/broadcast"
)

// ErrHandleActive is returned by Begin while another write handle is
// outstanding. Holding two live handles on one tracker is a programming
// error, not a condition to retry around.
var ErrHandleActive = errors.New("tracker: write handle already active")

// EqualFunc compares two values for equality.
type EqualFunc[T any] func(a, b T) bool

// CloneFunc duplicates a value.
type CloneFunc[T any] func(T) T

// EqualComparable compares comparable values with ==.
func EqualComparable[T comparable](a, b T) bool {
	return a == b
}

// Change is the event emitted when a write handle commits a value that
// differs from its snapshot.
type Change[T any] struct {
	Old T
	New T
}

// Tracker owns a value and the producer side of its change stream. Reads
// are always safe; writes go through a write handle obtained from Begin,
// or through the Mutate wrapper which manages the handle scope.
type Tracker[T any] struct {
	mu     sync.Mutex
	value  T
	equal  EqualFunc[T]
	clone  CloneFunc[T]
	active bool
	bc     *broadcast.Broadcaster[Change[T]]
}

// New wraps initial, comparing with == and duplicating by value copy.
func New[T comparable](initial T) *Tracker[T] {
	return NewFunc(initial, EqualComparable[T])
}

// NewFunc wraps initial with a custom equality. A nil equal disables
// suppression: every completed write handle reports a change. Equality is
// expected to be reflexive; a type with NaN-style non-reflexive fields
// will always appear changed.
func NewFunc[T any](initial T, equal EqualFunc[T]) *Tracker[T] {
	return &Tracker[T]{
		value: initial,
		equal: equal,
		bc:    broadcast.New[Change[T]](),
	}
}

// SetCloneFunc configures how the value is duplicated for snapshots,
// commits and reads. Types carrying maps, slices or pointers need a deep
// copy here; without one the snapshot aliases the live value and mutations
// through the shared reference go undetected.
func (t *Tracker[T]) SetCloneFunc(fn CloneFunc[T]) {
	t.mu.Lock()
	t.clone = fn
	t.mu.Unlock()
}

// Get returns the current value. It never emits events and is safe to
// call concurrently, including while a write handle is open (the handle's
// uncommitted writes are not visible). With a clone func set the returned
// value is a private copy.
func (t *Tracker[T]) Get() T {
	t.mu.Lock()
	v := t.cloneLocked(t.value)
	t.mu.Unlock()
	return v
}

// Begin opens a write handle on the tracked value, snapshotting it for
// the change comparison at End. At most one handle may be open at a time;
// a second Begin returns ErrHandleActive until End releases the first.
func (t *Tracker[T]) Begin() (*WriteHandle[T], error) {
	t.mu.Lock()
	if t.active {
		t.mu.Unlock()
		return nil, ErrHandleActive
	}
	t.active = true
	h := &WriteHandle[T]{
		t:        t,
		snapshot: t.cloneLocked(t.value),
		working:  t.cloneLocked(t.value),
	}
	t.mu.Unlock()
	return h, nil
}

// Mutate runs fn inside a write handle scope. The handle ends on every
// exit path, panics included, so change detection runs exactly once even
// when fn leaves the value half-mutated.
func (t *Tracker[T]) Mutate(fn func(*T)) error {
	h, err := t.Begin()
	if err != nil {
		return err
	}
	defer h.End()
	fn(h.Value())
	return nil
}

// Set assigns v through a write handle scope, emitting one change event
// when v differs from the current value and nothing otherwise.
func (t *Tracker[T]) Set(v T) error {
	return t.Mutate(func(p *T) { *p = v })
}

// Listen registers a subscriber starting from now; past events are never
// replayed. The subscription's channel closes after Close.
func (t *Tracker[T]) Listen() *broadcast.Subscription[Change[T]] {
	return t.bc.Subscribe()
}

// OnChange invokes fn with the old and new value after each change. The
// returned cancel stops delivery.
func (t *Tracker[T]) OnChange(fn func(oldValue, newValue T)) (cancel func()) {
	return t.OnChangeWith(nil, fn)
}

// OnChangeWith is OnChange with callbacks routed through scheduler. A nil
// scheduler invokes fn directly on the delivery goroutine.
func (t *Tracker[T]) OnChangeWith(scheduler broadcast.Scheduler, fn func(oldValue, newValue T)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	return t.bc.ListenWith(scheduler, func(ev Change[T]) {
		fn(ev.Old, ev.New)
	})
}

// Close closes the producer side of the change stream: every subscription
// drains its queued events and ends. Later mutations still apply to the
// value but emit nothing. Close is idempotent.
func (t *Tracker[T]) Close() {
	t.bc.Close()
}

func (t *Tracker[T]) cloneLocked(v T) T {
	if t.clone != nil {
		return t.clone(v)
	}
	return v
}

func (t *Tracker[T]) changedLocked(old, now T) bool {
	if t.equal == nil {
		return true
	}
	return !t.equal(old, now)
}
