package broadcast

import "sync"

// Subscriptions collects cancel callbacks so a group of listeners can be
// torn down together.
type Subscriptions struct {
	mu      sync.Mutex
	cancels []func()
}

// Add registers a cancel callback.
func (s *Subscriptions) Add(cancel func()) {
	if s == nil || cancel == nil {
		return
	}
	s.mu.Lock()
	s.cancels = append(s.cancels, cancel)
	s.mu.Unlock()
}

// Clear runs and forgets every registered cancel.
func (s *Subscriptions) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}
