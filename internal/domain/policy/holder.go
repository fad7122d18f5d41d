package policy

import (
	"context"
	"sync"
)

// Committer persists a policy.
type Committer interface {
	Save(ctx context.Context, p Policy) error
}

// EventKind distinguishes the outcome of a save.
type EventKind string

const (
	EventApplied  EventKind = "applied"
	EventReverted EventKind = "reverted"
)

// Event describes what a save did to the in-process policy. A Reverted event
// means the local value was restored after the commit failed.
type Event struct {
	Kind     EventKind
	Previous Policy
	Current  Policy
	Err      error
}

// Holder keeps the process-wide policy. Readers get a snapshot; saves are
// serialised and applied in two phases: locally first, then committed.
type Holder struct {
	saveMu  sync.Mutex
	mu      sync.RWMutex
	current Policy
}

// NewHolder creates a holder seeded with the policy loaded at startup.
func NewHolder(p Policy) *Holder {
	return &Holder{current: p.Normalized()}
}

// Get returns a snapshot of the current policy.
// PRE: none
// POST: The returned value shares no memory with the holder
func (h *Holder) Get(_ context.Context) (Policy, error) {
	return h.Snapshot(), nil
}

// Snapshot returns a copy of the current policy.
func (h *Holder) Snapshot() Policy {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.Clone()
}

// Save validates next, applies it locally and commits it through store. If
// the commit fails the previous policy is restored and a Reverted event is
// returned together with the commit error.
// PRE: store is not nil
// POST: On success the holder and the store agree on next; on failure both keep the old value
func (h *Holder) Save(ctx context.Context, next Policy, store Committer) (Event, error) {
	next = next.Normalized()
	if err := next.Validate(); err != nil {
		return Event{}, err
	}

	h.saveMu.Lock()
	defer h.saveMu.Unlock()

	h.mu.Lock()
	previous := h.current
	h.current = next
	h.mu.Unlock()

	if err := store.Save(ctx, next); err != nil {
		h.mu.Lock()
		h.current = previous
		h.mu.Unlock()
		return Event{Kind: EventReverted, Previous: previous.Clone(), Current: previous.Clone(), Err: err}, err
	}
	return Event{Kind: EventApplied, Previous: previous.Clone(), Current: next.Clone()}, nil
}
