package panel

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"admin-actions/internal/action"
	"admin-actions/internal/backend"
	"admin-actions/internal/calls"
	"admin-actions/internal/control"
	"admin-actions/pkg/logger"
)

// CallBackend is the part of the backend client the call panel needs.
type CallBackend interface {
	ProgressChecker
	TriggerCall(ctx context.Context, triggerURL string, p action.CallParams) (backend.CallResult, error)
	PollStatus(ctx context.Context, statusURL string) (backend.Snapshot, error)
}

// Endpoints are the URLs used when a binding leaves one empty. A
// "{post_id}" placeholder is replaced with the escaped post id.
type Endpoints struct {
	ProgressURL string
	TriggerURL  string
	StatusURL   string
}

const postIDPlaceholder = "{post_id}"

// CallPanel drives the click-to-call control and its status refresher.
type CallPanel struct {
	Controls *control.Registry
	Backend  CallBackend
	// Lease is optional; without it only the backend progress check guards
	// against overlapping calls.
	Lease     Lease
	Fields    *Fields
	Endpoints Endpoints
	Observer  Observer
	Now       func() time.Time
}

// RefreshResult is the outcome of one status refresh.
type RefreshResult struct {
	Result
	Call    control.View      `json:"call"`
	Fields  map[string]string `json:"fields,omitempty"`
	Rebuilt bool              `json:"rebuilt"`
}

// CallControl returns the call control of postID, creating it idle.
func (p *CallPanel) CallControl(postID string) *control.Control {
	return p.Controls.Get(CallControlID(postID), LabelCall)
}

func (p *CallPanel) bind(b calls.Binding) calls.Binding {
	b.PostID = strings.TrimSpace(b.PostID)
	expand := func(tmpl string) string {
		return strings.ReplaceAll(tmpl, postIDPlaceholder, url.PathEscape(b.PostID))
	}
	if b.ProgressURL == "" {
		b.ProgressURL = expand(p.Endpoints.ProgressURL)
	}
	if b.TriggerURL == "" {
		b.TriggerURL = expand(p.Endpoints.TriggerURL)
	}
	if b.StatusURL == "" {
		b.StatusURL = expand(p.Endpoints.StatusURL)
	}
	return b
}

// Trigger handles a click on the call control of b.PostID.
func (p *CallPanel) Trigger(ctx context.Context, b calls.Binding) Result {
	b = p.bind(b)
	if b.PostID == "" {
		return validationResult(nil, errPostIDRequired)
	}
	ctl := p.CallControl(b.PostID)
	if !ctl.Accepting() {
		return busyResult(ctl)
	}
	if b.ProgressURL == "" || b.TriggerURL == "" {
		return validationResult(ctl, &action.ValidationError{Field: "endpoint", Message: "call endpoints are not configured"})
	}

	a, err := ctl.Begin(LabelCalling, BackgroundBusy)
	if err != nil {
		return busyResult(ctl)
	}
	// Params belong to the attempt that won Begin.
	ctl.Bind(b.Params())

	req, err := action.NewCallRequest(action.CallParams{
		SubmissionType: b.SubmissionType,
		PostID:         b.PostID,
		From:           b.From,
		To:             b.To,
		CallerID:       b.CallerID,
	})
	if err != nil {
		a.Fail(LabelRetryCall)
		return validationResult(ctl, err)
	}

	run := attemptRun{attempt: a, kind: req.Kind(), target: req.TargetID(), abort: failWith(LabelRetryCall)}
	return execute(ctx, p.Observer, p.Now, run, func(ctx context.Context) Result {
		log := logger.From(ctx).With("post_id", req.TargetID())

		guard := Guard{Checker: p.Backend, Lease: p.Lease}
		release, err := guard.Enter(ctx, "call:"+req.TargetID(), b.ProgressURL)
		if errors.Is(err, ErrConflict) {
			log.Info("call refused, another call in progress")
			a.Fail(LabelRetryCall)
			return Result{Notice: MsgCallConflict, Kind: NoticeConflict}
		}
		if err != nil {
			log.Warn("call progress check failed", "err", err)
			a.Fail(LabelRetryCall)
			return Result{Notice: backend.UserMessage(err), Kind: NoticeRemote}
		}
		defer release()

		out := p.invoke(ctx, b.TriggerURL, req)
		if !out.OK() {
			log.Warn("call trigger failed", "message", out.Message())
			a.Fail(LabelRetryCall)
			return Result{Notice: out.Message(), Kind: NoticeRemote}
		}
		a.Succeed(out.Display(), BackgroundSuccess)
		return Result{}
	})
}

var errPostIDRequired = &action.ValidationError{Field: "post_id", Message: "post id is required"}

func (p *CallPanel) invoke(ctx context.Context, triggerURL string, req action.Request) action.Outcome {
	res, err := p.Backend.TriggerCall(ctx, triggerURL, req.Call())
	if err != nil {
		return action.Failed(backend.UserMessage(err))
	}
	return action.Ok(res.Status)
}

// Refresh polls the status of b.PostID once, replaces the displayed
// fields and re-arms the call control when the last call is no longer in
// progress. The refresh control always ends idle.
func (p *CallPanel) Refresh(ctx context.Context, b calls.Binding) RefreshResult {
	b = p.bind(b)
	if b.PostID == "" {
		return RefreshResult{Result: validationResult(nil, errPostIDRequired)}
	}
	ctl := p.Controls.Get(RefreshControlID(b.PostID), LabelRefresh)
	a, err := ctl.Begin(LabelRefreshing, "")
	if err != nil {
		return RefreshResult{Result: busyResult(ctl), Call: p.CallControl(b.PostID).View()}
	}

	var out RefreshResult
	run := attemptRun{attempt: a, kind: KindRefresh, target: b.PostID, abort: restoreTo(LabelRefresh)}
	out.Result = execute(ctx, p.Observer, p.Now, run, func(ctx context.Context) Result {
		snap, err := p.Backend.PollStatus(ctx, b.StatusURL)
		if err != nil {
			logger.From(ctx).Warn("status refresh failed", "post_id", b.PostID, "err", err)
			return Result{Notice: MsgRefreshFailed, Kind: NoticeRemote}
		}
		if p.Fields != nil {
			out.Fields = p.Fields.Replace(b.PostID, snap)
		} else {
			out.Fields = copyFields(snap)
		}

		if v, ok := snap[calls.FieldLastCallStatus]; ok && !calls.IsInProgress(v) {
			p.CallControl(b.PostID).Rebuild(LabelCall, b.Params())
			out.Rebuilt = true
		}
		return Result{}
	})
	out.Call = p.CallControl(b.PostID).View()
	return out
}
