package panel

import (
	"errors"

	"admin-actions/internal/action"
	"admin-actions/internal/control"
)

// NoticeKind classifies the message shown to the user after a click.
type NoticeKind string

const (
	NoticeNone       NoticeKind = ""
	NoticeInfo       NoticeKind = "info"
	NoticeValidation NoticeKind = "validation"
	NoticeBusy       NoticeKind = "busy"
	NoticeConflict   NoticeKind = "conflict"
	NoticeRemote     NoticeKind = "remote"
	NoticeUnexpected NoticeKind = "unexpected"
)

// Failed reports whether the notice describes a failed attempt.
func (k NoticeKind) Failed() bool {
	return k != NoticeNone && k != NoticeInfo
}

// Result is what a panel operation hands back to the dashboard: the control
// as it is after the click, and the notice to show (empty for none).
type Result struct {
	Control control.View `json:"control"`
	Notice  string       `json:"notice"`
	Kind    NoticeKind   `json:"kind,omitempty"`
}

func busyResult(c *control.Control) Result {
	return Result{Control: c.View(), Kind: NoticeBusy}
}

func validationResult(c *control.Control, err error) Result {
	msg := err.Error()
	var ve *action.ValidationError
	if errors.As(err, &ve) {
		msg = ve.Message
	}
	r := Result{Notice: msg, Kind: NoticeValidation}
	if c != nil {
		r.Control = c.View()
	}
	return r
}
