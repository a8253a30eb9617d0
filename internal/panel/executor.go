package panel

import (
	"context"
	"runtime/debug"
	"time"

	"admin-actions/internal/action"
	"admin-actions/internal/control"
	"admin-actions/pkg/logger"
)

// KindRefresh labels status refresh attempts in settlements.
const KindRefresh action.Kind = "refresh"

type attemptRun struct {
	attempt *control.Attempt
	kind    action.Kind
	target  string
	// abort is the terminal transition used when fn returns without
	// settling the attempt or panics.
	abort func(*control.Attempt)
}

func failWith(label string) func(*control.Attempt) {
	return func(a *control.Attempt) { a.Fail(label) }
}

func restoreTo(label string) func(*control.Attempt) {
	return func(a *control.Attempt) { a.Restore(label) }
}

// execute runs fn for a started attempt. Remote work is detached from
// the caller's cancellation: once issued it runs to completion.
func execute(ctx context.Context, obs Observer, now func() time.Time, r attemptRun, fn func(context.Context) Result) (res Result) {
	if now == nil {
		now = time.Now
	}
	start := now()
	ctx = context.WithoutCancel(ctx)
	id := r.attempt.Control().ID()

	defer func() {
		if p := recover(); p != nil {
			logger.From(ctx).Error("panel action panicked",
				"control_id", id,
				"kind", string(r.kind),
				"panic", p,
				"stack", string(debug.Stack()),
			)
			res = Result{Notice: MsgUnexpected, Kind: NoticeUnexpected}
		}
		if !r.attempt.Settled() {
			r.abort(r.attempt)
		}
		res.Control = r.attempt.Control().View()

		if obs != nil {
			obs.Settled(ctx, Settlement{
				ControlID:  id,
				Kind:       r.kind,
				TargetID:   r.target,
				Phase:      res.Control.State.Phase,
				Label:      res.Control.State.Label,
				Notice:     res.Notice,
				NoticeKind: res.Kind,
				Duration:   now().Sub(start),
			})
		}
	}()

	return fn(ctx)
}
