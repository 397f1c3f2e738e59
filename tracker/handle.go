package tracker

// WriteHandle grants exclusive mutable access to a tracker's value for a
// bounded scope. Opening it snapshots the value; End commits the mutated
// copy, compares it against the snapshot with the tracker's equality and
// publishes one Change if they differ. Prefer Tracker.Mutate, which
// guarantees the End call on every exit path.
type WriteHandle[T any] struct {
	t        *Tracker[T]
	snapshot T
	working  T
	done     bool
}

// Value returns a pointer to the value under mutation. The pointee is
// private to the handle until End commits it.
func (h *WriteHandle[T]) Value() *T {
	return &h.working
}

// Get returns the handle's current, uncommitted value.
func (h *WriteHandle[T]) Get() T {
	return h.working
}

// Set assigns v as the handle's value.
func (h *WriteHandle[T]) Set(v T) {
	h.working = v
}

// End commits the working value, releases exclusivity and emits one
// (snapshot, committed) event when the two differ. A reverted write, where
// the value was mutated and put back, emits nothing: only the final state
// counts. End is idempotent; calls after the first are no-ops.
func (h *WriteHandle[T]) End() {
	t := h.t
	t.mu.Lock()
	if h.done {
		t.mu.Unlock()
		return
	}
	h.done = true
	old, now := h.snapshot, h.working
	t.value = t.cloneLocked(now)
	t.active = false
	if t.changedLocked(old, now) {
		// Published under t.mu so delivery order matches commit order.
		t.bc.Publish(Change[T]{Old: old, New: now})
	}
	t.mu.Unlock()
}
