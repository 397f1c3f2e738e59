package broadcast

import "sync"

// Subscription is one subscriber's view of a broadcaster: a lazy, ordered
// sequence of events delivered on Events. The channel closes when the
// broadcaster closes (after draining queued events) or when Stop is called.
type Subscription[E any] struct {
	b  *Broadcaster[E]
	id uint64

	mu      sync.Mutex
	pending []E
	closed  bool

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	out      chan E
}

func newSubscription[E any]() *Subscription[E] {
	return &Subscription[E]{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		out:  make(chan E, 1),
	}
}

// Events returns the delivery channel. Closure means the stream ended; it
// is never an error condition.
func (s *Subscription[E]) Events() <-chan E {
	return s.out
}

// Stop detaches the subscription immediately: undelivered events are
// dropped and the Events channel closes. Safe to call more than once.
func (s *Subscription[E]) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		if s.b != nil {
			s.b.remove(s.id)
		}
	})
}

func (s *Subscription[E]) enqueue(ev E) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = append(s.pending, ev)
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription[E]) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription[E]) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pump moves events from the pending queue to the out channel. It is the
// only writer to out and closes it on exit.
func (s *Subscription[E]) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		closed := s.closed
		s.mu.Unlock()

		for _, ev := range batch {
			select {
			case s.out <- ev:
			case <-s.stop:
				return
			}
		}
		if closed {
			return
		}
		select {
		case <-s.wake:
		case <-s.stop:
			return
		}
	}
}
