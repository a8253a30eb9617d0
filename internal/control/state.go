package control

// Phase is the finite state of an action control.
type Phase string

const (
	// PhaseIdle accepts a click and shows the default label.
	PhaseIdle Phase = "idle"
	// PhaseBusy means exactly one remote action is outstanding; clicks are ignored.
	PhaseBusy Phase = "busy"
	// PhaseError looks like idle but records that the previous attempt failed.
	PhaseError Phase = "error"
	// PhaseSucceeded is the call-trigger success display. It stays disabled
	// until the control is rebuilt.
	PhaseSucceeded Phase = "succeeded"
)

// Accepting reports whether a control in this phase accepts a new click.
func (p Phase) Accepting() bool {
	return p == PhaseIdle || p == PhaseError
}

// State is what the dashboard renders for one control.
type State struct {
	Phase      Phase  `json:"phase"`
	Label      string `json:"label"`
	Disabled   bool   `json:"disabled"`
	Background string `json:"background,omitempty"`
}

// View is the typed view-model of a control. Params are the bound
// parameters the dashboard needs to re-render the control and wire its
// click back to this service.
type View struct {
	ID         string            `json:"id"`
	Generation uint64            `json:"generation"`
	Revision   uint64            `json:"revision"`
	State      State             `json:"state"`
	Params     map[string]string `json:"params,omitempty"`
}

// Listener is notified after every state change of a control.
// Implementations must not call back into the control synchronously
// expecting the lock to be free; notifications are delivered after unlock.
type Listener interface {
	ControlChanged(v View)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(v View)

func (f ListenerFunc) ControlChanged(v View) { f(v) }

func copyParams(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
