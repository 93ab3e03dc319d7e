package room

import "sort"

// Barrier waits for exactly one submission from each expected player.
// It tracks who has submitted rather than counting down, so duplicate or
// unexpected submissions are rejected instead of corrupting the count.
type Barrier struct {
	pending   map[string]struct{}
	submitted map[string]struct{}
	released  bool
}

// NewBarrier opens a barrier expecting one submission from each id.
func NewBarrier(expected []string) *Barrier {
	b := &Barrier{
		pending:   make(map[string]struct{}, len(expected)),
		submitted: make(map[string]struct{}, len(expected)),
	}
	for _, id := range expected {
		b.pending[id] = struct{}{}
	}
	return b
}

// Submit records id's submission.
func (b *Barrier) Submit(id string) error {
	if b.released {
		return ErrBarrierClosed
	}
	if _, ok := b.submitted[id]; ok {
		return ErrAlreadySubmitted
	}
	if _, ok := b.pending[id]; !ok {
		return ErrNotExpected
	}
	delete(b.pending, id)
	b.submitted[id] = struct{}{}
	return nil
}

// Drop stops waiting for id. A player who already submitted keeps their
// submission.
func (b *Barrier) Drop(id string) {
	delete(b.pending, id)
}

// Rename moves id's slot, pending or submitted, to newID.
func (b *Barrier) Rename(oldID, newID string) {
	if _, ok := b.pending[oldID]; ok {
		delete(b.pending, oldID)
		b.pending[newID] = struct{}{}
	}
	if _, ok := b.submitted[oldID]; ok {
		delete(b.submitted, oldID)
		b.submitted[newID] = struct{}{}
	}
}

// Remaining returns how many submissions are still outstanding.
func (b *Barrier) Remaining() int {
	return len(b.pending)
}

// Done reports whether nobody is outstanding.
func (b *Barrier) Done() bool {
	return len(b.pending) == 0
}

// Release reports true exactly once: the first time it is called after the
// barrier is done. Later submissions fail with ErrBarrierClosed.
func (b *Barrier) Release() bool {
	if b.released || !b.Done() {
		return false
	}
	b.released = true
	return true
}

// Expects reports whether id still has to submit.
func (b *Barrier) Expects(id string) bool {
	_, ok := b.pending[id]
	return ok
}

// Submitted returns the ids that have submitted, sorted.
func (b *Barrier) Submitted() []string {
	ids := make([]string, 0, len(b.submitted))
	for id := range b.submitted {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
