package audit

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo keeps events in process. Used by tests and by the API when no
// database is configured.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(_ context.Context, e Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

// Events returns every event in append order.
func (r *MemoryRepo) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ForControl returns the events of one control in append order.
func (r *MemoryRepo) ForControl(controlID string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.ControlID == controlID {
			out = append(out, e)
		}
	}
	return out
}

// ListEvents returns events created in [from, to), in append order. An
// empty kind matches every action kind.
func (r *MemoryRepo) ListEvents(_ context.Context, from, to time.Time, kind string) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0)
	for _, e := range r.events {
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		if kind != "" && e.ActionKind != kind {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
