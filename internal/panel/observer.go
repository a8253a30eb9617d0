package panel

import (
	"context"
	"time"

	"admin-actions/internal/action"
	"admin-actions/internal/audit"
	"admin-actions/internal/auth"
	"admin-actions/internal/control"
	"admin-actions/internal/events"
	"admin-actions/internal/metrics"
	"admin-actions/pkg/logger"
)

// Settlement describes one attempt after its terminal transition.
type Settlement struct {
	ControlID  string        `json:"control_id"`
	Kind       action.Kind   `json:"kind"`
	TargetID   string        `json:"target_id,omitempty"`
	Phase      control.Phase `json:"phase"`
	Label      string        `json:"label"`
	Notice     string        `json:"notice,omitempty"`
	NoticeKind NoticeKind    `json:"notice_kind,omitempty"`
	Duration   time.Duration `json:"-"`
}

func (s Settlement) OK() bool { return !s.NoticeKind.Failed() }

// Observer is told about every settled attempt. Observers run on the
// request goroutine after the control has settled; their failures never
// change the result.
type Observer interface {
	Settled(ctx context.Context, s Settlement)
}

// Observers fans a settlement out to each observer in order.
type Observers []Observer

func (obs Observers) Settled(ctx context.Context, s Settlement) {
	for _, o := range obs {
		if o != nil {
			o.Settled(ctx, s)
		}
	}
}

// AuditObserver appends each settlement to the audit log with the actor
// found in ctx.
type AuditObserver struct {
	Service *audit.Service
}

func (o AuditObserver) Settled(ctx context.Context, s Settlement) {
	userID, _ := auth.UserID(ctx)
	role, _ := auth.Role(ctx)
	outcome := audit.OutcomeOK
	if !s.OK() {
		outcome = audit.OutcomeFailed
	}
	err := o.Service.LogAction(ctx, audit.Event{
		ControlID:   s.ControlID,
		ActionKind:  string(s.Kind),
		TargetID:    s.TargetID,
		ActorUserID: userID,
		ActorRole:   role,
		Outcome:     outcome,
		Message:     s.Notice,
		DurationMS:  s.Duration.Milliseconds(),
		Metadata: audit.Details{
			NoticeKind: string(s.NoticeKind),
			Phase:      string(s.Phase),
			Label:      s.Label,
		}.Encode(),
	})
	if err != nil {
		logger.From(ctx).Warn("audit append failed", "control_id", s.ControlID, "err", err)
	}
}

// MetricsObserver records outcome counters and durations.
type MetricsObserver struct {
	Metrics *metrics.Metrics
}

func (o MetricsObserver) Settled(_ context.Context, s Settlement) {
	o.Metrics.ObserveAction(string(s.Kind), s.OK(), s.NoticeKind == NoticeConflict, s.Duration)
}

const EventActionSettled = "panel.action.settled"

type settledEvent struct {
	Settlement
	DurationMS int64  `json:"duration_ms"`
	ActorID    string `json:"actor_id,omitempty"`
}

// EventsObserver publishes settlements keyed by control id.
type EventsObserver struct {
	Publisher events.Publisher
}

func (o EventsObserver) Settled(ctx context.Context, s Settlement) {
	actor, _ := auth.UserID(ctx)
	err := o.Publisher.Publish(ctx, s.ControlID, events.Envelope{
		EventType:    EventActionSettled,
		EventVersion: "1",
		AggregateID:  s.ControlID,
		Data:         settledEvent{Settlement: s, DurationMS: s.Duration.Milliseconds(), ActorID: actor},
	})
	if err != nil {
		logger.From(ctx).Warn("event publish failed", "control_id", s.ControlID, "err", err)
	}
}
