package control

import (
	"errors"
	"sync"
)

var (
	// ErrBusy is returned when a control is clicked while it is not accepting input.
	ErrBusy = errors.New("control: busy")
)

// Control is a single interactive element mediating one user-triggered
// remote action. Its State is the single source of truth for whether a new
// click is accepted.
type Control struct {
	mu sync.Mutex

	id         string
	state      State
	params     map[string]string
	generation uint64
	revision   uint64

	notify func(View)
}

// New returns an idle control with the given label.
func New(id, label string) *Control {
	return &Control{
		id:    id,
		state: State{Phase: PhaseIdle, Label: label},
	}
}

func (c *Control) ID() string { return c.id }

// View returns a snapshot of the control.
func (c *Control) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Accepting reports whether the control would accept a click right now.
func (c *Control) Accepting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Phase.Accepting()
}

// Begin moves an idle or failed control to busy and returns the attempt
// that must settle it. The background shown before the click is captured
// so a failure can restore it exactly.
func (c *Control) Begin(busyLabel, busyBackground string) (*Attempt, error) {
	c.mu.Lock()
	if !c.state.Phase.Accepting() {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	a := &Attempt{
		control:    c,
		generation: c.generation,
		prior:      c.state.Background,
	}
	c.state = State{Phase: PhaseBusy, Label: busyLabel, Disabled: true, Background: busyBackground}
	v := c.changedLocked()
	c.mu.Unlock()

	c.emit(v)
	return a, nil
}

// Rebuild overwrites the control with a fresh idle rendering bound to
// params. Attempts started before the rebuild can no longer change it.
func (c *Control) Rebuild(label string, params map[string]string) View {
	c.mu.Lock()
	c.generation++
	c.params = copyParams(params)
	c.state = State{Phase: PhaseIdle, Label: label}
	v := c.changedLocked()
	c.mu.Unlock()

	c.emit(v)
	return v
}

// Bind sets params without touching the state. It is used when a control
// is first rendered.
func (c *Control) Bind(params map[string]string) {
	c.mu.Lock()
	c.params = copyParams(params)
	c.mu.Unlock()
}

func (c *Control) viewLocked() View {
	return View{
		ID:         c.id,
		Generation: c.generation,
		Revision:   c.revision,
		State:      c.state,
		Params:     copyParams(c.params),
	}
}

func (c *Control) changedLocked() View {
	c.revision++
	return c.viewLocked()
}

func (c *Control) emit(v View) {
	if c.notify != nil {
		c.notify(v)
	}
}

// Attempt is one in-flight action on a control. It settles exactly once;
// later settle calls are no-ops that return false.
type Attempt struct {
	control    *Control
	generation uint64
	prior      string
	settled    bool
}

// Fail moves the control to the error phase with retryLabel, re-enables it
// and restores the background captured by Begin.
func (a *Attempt) Fail(retryLabel string) bool {
	return a.settle(State{Phase: PhaseError, Label: retryLabel, Background: a.prior})
}

// Succeed moves the control to the succeeded phase. The control stays
// disabled and shows label permanently.
func (a *Attempt) Succeed(label, background string) bool {
	return a.settle(State{Phase: PhaseSucceeded, Label: label, Disabled: true, Background: background})
}

// Restore moves the control back to idle with label and the captured
// background.
func (a *Attempt) Restore(label string) bool {
	return a.settle(State{Phase: PhaseIdle, Label: label, Background: a.prior})
}

// Settled reports whether the attempt already produced its terminal transition.
func (a *Attempt) Settled() bool {
	c := a.control
	c.mu.Lock()
	defer c.mu.Unlock()
	return a.settled
}

// Control returns the control the attempt belongs to.
func (a *Attempt) Control() *Control { return a.control }

func (a *Attempt) settle(next State) bool {
	c := a.control
	c.mu.Lock()
	if a.settled {
		c.mu.Unlock()
		return false
	}
	a.settled = true
	if c.generation != a.generation || c.state.Phase != PhaseBusy {
		// Rebuilt while in flight: the attempt renders into a control that
		// no longer exists.
		c.mu.Unlock()
		return false
	}
	c.state = next
	v := c.changedLocked()
	c.mu.Unlock()

	c.emit(v)
	return true
}
