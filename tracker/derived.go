package tracker

import "github.com/tracked-go/tracked/broadcast"

// Derived is a read-only value recomputed from a source tracker after
// every source change. Recomputed results pass through the same equality
// gate as direct mutations, so a recomputation that lands on an equal
// value emits nothing.
type Derived[U any] struct {
	inner  *Tracker[U]
	cancel func()
}

// Derive builds a derived value over src. compute runs once for the
// initial value and again after each source change, on the delivery
// goroutine. A nil equal reports every recomputation as a change.
func Derive[T, U any](src *Tracker[T], equal EqualFunc[U], compute func(T) U) *Derived[U] {
	d := &Derived[U]{
		inner: NewFunc(compute(src.Get()), equal),
	}
	d.cancel = src.OnChange(func(_, newValue T) {
		// Source deliveries are sequential, so the inner handle can
		// never be contended.
		_ = d.inner.Set(compute(newValue))
	})
	return d
}

// DeriveComparable is Derive with == equality on the derived value.
func DeriveComparable[T any, U comparable](src *Tracker[T], compute func(T) U) *Derived[U] {
	return Derive(src, EqualComparable[U], compute)
}

// Get returns the current derived value.
func (d *Derived[U]) Get() U {
	return d.inner.Get()
}

// Listen registers a subscriber for derived change events.
func (d *Derived[U]) Listen() *broadcast.Subscription[Change[U]] {
	return d.inner.Listen()
}

// OnChange invokes fn after each derived change. The returned cancel
// stops delivery.
func (d *Derived[U]) OnChange(fn func(oldValue, newValue U)) (cancel func()) {
	return d.inner.OnChange(fn)
}

// OnChangeWith is OnChange with callbacks routed through scheduler.
func (d *Derived[U]) OnChangeWith(scheduler broadcast.Scheduler, fn func(oldValue, newValue U)) (cancel func()) {
	return d.inner.OnChangeWith(scheduler, fn)
}

// Close detaches from the source and ends the derived change stream. The
// source tracker is unaffected. Close is idempotent.
func (d *Derived[U]) Close() {
	d.cancel()
	d.inner.Close()
}
