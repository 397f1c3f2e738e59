// Package broadcast provides a single-producer, multi-subscriber event
// stream with a non-blocking publish path and channel-close end-of-stream
// semantics.
package broadcast

import "sync"

// Broadcaster fans events out to any number of subscribers. Publish never
// waits on a consumer: each subscriber owns a pending queue that grows as
// needed and is drained by the subscription's own goroutine.
type Broadcaster[E any] struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription[E]
	nextID uint64
	closed bool
}

// New creates an open broadcaster with no subscribers.
func New[E any]() *Broadcaster[E] {
	return &Broadcaster[E]{}
}

// Subscribe registers a subscriber starting from the present: events
// published before Subscribe returns are never delivered to it.
// Subscribing to a closed broadcaster yields an already-ended subscription.
func (b *Broadcaster[E]) Subscribe() *Subscription[E] {
	sub := newSubscription[E]()
	b.mu.Lock()
	if b.closed {
		sub.markClosed()
	} else {
		if b.subs == nil {
			b.subs = make(map[uint64]*Subscription[E])
		}
		sub.b = b
		sub.id = b.nextID
		b.nextID++
		b.subs[sub.id] = sub
	}
	b.mu.Unlock()
	go sub.pump()
	return sub
}

// Publish queues ev for every current subscriber and returns immediately.
// Each subscriber sees events in publish order. Publishing on a closed
// broadcaster is a no-op.
func (b *Broadcaster[E]) Publish(ev E) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	for _, sub := range b.subs {
		sub.enqueue(ev)
	}
	b.mu.Unlock()
}

// Close ends the stream. Every subscription drains its pending events and
// then its Events channel closes. Close is idempotent.
func (b *Broadcaster[E]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		sub.markClosed()
	}
}

// Active returns the number of registered subscribers.
func (b *Broadcaster[E]) Active() int {
	b.mu.Lock()
	n := len(b.subs)
	b.mu.Unlock()
	return n
}

func (b *Broadcaster[E]) remove(id uint64) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

// Listen consumes a subscription on a background goroutine and invokes fn
// for every event, in order. The returned cancel stops delivery.
func (b *Broadcaster[E]) Listen(fn func(E)) (cancel func()) {
	return b.ListenWith(nil, fn)
}

// ListenWith is Listen with callbacks routed through scheduler. A nil
// scheduler invokes fn directly on the delivery goroutine.
func (b *Broadcaster[E]) ListenWith(scheduler Scheduler, fn func(E)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	sub := b.Subscribe()
	go func() {
		for ev := range sub.Events() {
			if scheduler == nil {
				fn(ev)
				continue
			}
			scheduler.Schedule(func() { fn(ev) })
		}
	}()
	return sub.Stop
}
