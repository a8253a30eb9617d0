package audit

import (
	"encoding/json"
	"time"
)

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - control_id and type are required.
// - actor and ip capture are best-effort; do not block panel actions on audit failures.

type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	// ControlID identifies the dashboard control that issued the action.
	ControlID string `json:"control_id" db:"control_id"`
	// ActionKind is call, send-link, resend-link or cancel-link.
	ActionKind string `json:"action_kind" db:"action_kind"`
	// TargetID is the post or property the action was about.
	TargetID string `json:"target_id,omitempty" db:"target_id"`

	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`
	IPAddress   string `json:"ip_address,omitempty" db:"ip_address"`

	Outcome Outcome `json:"outcome" db:"outcome"`
	// Message is the text shown to the user (status, confirmation or error).
	Message string `json:"message,omitempty" db:"message"`

	DurationMS int64 `json:"duration_ms" db:"duration_ms"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypePanelAction EventType = "panel_action"
)

type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeFailed Outcome = "failed"
)

// Details is the structured part of a panel action event, kept in Metadata.
// Label is what the control showed after settling; for a placed call it is
// the provider's call status.
type Details struct {
	NoticeKind string `json:"notice_kind,omitempty"`
	Phase      string `json:"phase,omitempty"`
	Label      string `json:"label,omitempty"`
}

func (d Details) Encode() string {
	b, err := json.Marshal(d)
	if err != nil {
		return ""
	}
	return string(b)
}

// Details decodes Metadata. Events without metadata yield zero Details.
func (e Event) Details() (Details, error) {
	var d Details
	if e.Metadata == "" {
		return d, nil
	}
	err := json.Unmarshal([]byte(e.Metadata), &d)
	return d, err
}
