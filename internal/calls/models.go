package calls

// Binding is the click-to-call context of one admin record (a post): the
// parameters its call control is bound to. The telephony provider owns the
// call itself. The status refresher re-binds all of them when it rebuilds
// the control.
type Binding struct {
	SubmissionType string `json:"submission_type"`
	PostID         string `json:"post_id"`
	From           string `json:"from"`
	To             string `json:"to"`
	CallerID       string `json:"caller_id"`

	// ProgressURL is the progress-check endpoint used by the single-flight guard.
	ProgressURL string `json:"call_in_progress_api,omitempty"`
	// TriggerURL is the call initiation endpoint.
	TriggerURL string `json:"exotel_call_endpoint,omitempty"`
	// StatusURL is polled by the status refresher.
	StatusURL string `json:"status_endpoint,omitempty"`
}

// Params flattens the binding for a control view.
func (b Binding) Params() map[string]string {
	p := map[string]string{
		"submission_type": b.SubmissionType,
		"post_id":         b.PostID,
		"from":            b.From,
		"to":              b.To,
		"caller_id":       b.CallerID,
	}
	if b.ProgressURL != "" {
		p["call_in_progress_api"] = b.ProgressURL
	}
	if b.TriggerURL != "" {
		p["exotel_call_endpoint"] = b.TriggerURL
	}
	if b.StatusURL != "" {
		p["status_endpoint"] = b.StatusURL
	}
	return p
}

// CallStatus is the provider's reported status for the last call.
// Values are displayed verbatim; only StatusInProgress has meaning here.
type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in-progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusBusy       CallStatus = "busy"
	CallStatusNoAnswer   CallStatus = "no-answer"
	CallStatusCanceled   CallStatus = "canceled"
)

const (
	// FieldLastCallStatus is the reserved status-poll field carrying the
	// live progress state of the last call.
	FieldLastCallStatus = "exotel_last_call_status"

	// StatusInProgress is the sentinel value of FieldLastCallStatus while a
	// call is still running.
	StatusInProgress = "IN_PROGRESS"
)

// IsInProgress reports whether the reserved progress field value means the
// call control must stay as it is.
func IsInProgress(v string) bool { return v == StatusInProgress }
