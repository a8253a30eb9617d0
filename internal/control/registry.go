package control

import "sync"

// Registry holds the controls of one service instance, keyed by control id.
type Registry struct {
	mu        sync.RWMutex
	controls  map[string]*Control
	listeners []Listener
}

func NewRegistry() *Registry {
	return &Registry{controls: make(map[string]*Control)}
}

// Subscribe registers l for every control change in the registry.
func (r *Registry) Subscribe(l Listener) {
	if l == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()
}

// Get returns the control for id, creating it idle with label if it does
// not exist yet.
func (r *Registry) Get(id, label string) *Control {
	r.mu.RLock()
	c, ok := r.controls[id]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.controls[id]; ok {
		return c
	}
	c = New(id, label)
	c.notify = r.broadcast
	r.controls[id] = c
	return c
}

// Lookup returns the control for id if it was created.
func (r *Registry) Lookup(id string) (*Control, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.controls[id]
	return c, ok
}

// Views returns a snapshot of every control.
func (r *Registry) Views() []View {
	r.mu.RLock()
	cs := make([]*Control, 0, len(r.controls))
	for _, c := range r.controls {
		cs = append(cs, c)
	}
	r.mu.RUnlock()

	out := make([]View, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.View())
	}
	return out
}

func (r *Registry) broadcast(v View) {
	r.mu.RLock()
	ls := make([]Listener, len(r.listeners))
	copy(ls, r.listeners)
	r.mu.RUnlock()

	for _, l := range ls {
		l.ControlChanged(v)
	}
}
