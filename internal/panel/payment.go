package panel

import (
	"context"
	"time"

	"admin-actions/internal/action"
	"admin-actions/internal/backend"
	"admin-actions/internal/control"
	"admin-actions/pkg/logger"
)

// LinkBackend is the part of the backend client the payment panel needs.
type LinkBackend interface {
	SendPaymentLink(ctx context.Context, p action.LinkParams) error
	ResendPaymentLink(ctx context.Context, linkID string) error
	CancelPaymentLink(ctx context.Context, linkID string) error
}

// PaymentPanel drives the send, resend and cancel payment-link controls.
type PaymentPanel struct {
	Controls *control.Registry
	Backend  LinkBackend
	Observer Observer
	Now      func() time.Time
}

// Send reads phone and amount as entered at click time.
func (p *PaymentPanel) Send(ctx context.Context, propertyID, phoneNumber string, amount float64) Result {
	ctl := p.Controls.Get(SendLinkControlID(propertyID), LabelSendLink)
	if !ctl.Accepting() {
		return busyResult(ctl)
	}
	req, err := action.NewSendLinkRequest(propertyID, phoneNumber, amount)
	if err != nil {
		return validationResult(ctl, err)
	}
	return p.perform(ctx, ctl, req, LabelSending, LabelSendLink, func(ctx context.Context) error {
		return p.Backend.SendPaymentLink(ctx, req.Link())
	})
}

func (p *PaymentPanel) Resend(ctx context.Context, propertyID, linkID string) Result {
	ctl := p.Controls.Get(ResendLinkControlID(linkID), LabelResendLink)
	if !ctl.Accepting() {
		return busyResult(ctl)
	}
	req, err := action.NewResendLinkRequest(propertyID, linkID)
	if err != nil {
		return validationResult(ctl, err)
	}
	return p.perform(ctx, ctl, req, LabelResending, LabelResendLink, func(ctx context.Context) error {
		return p.Backend.ResendPaymentLink(ctx, req.Link().LinkID)
	})
}

func (p *PaymentPanel) Cancel(ctx context.Context, propertyID, linkID string) Result {
	ctl := p.Controls.Get(CancelLinkControlID(linkID), LabelCancelLink)
	if !ctl.Accepting() {
		return busyResult(ctl)
	}
	req, err := action.NewCancelLinkRequest(propertyID, linkID)
	if err != nil {
		return validationResult(ctl, err)
	}
	return p.perform(ctx, ctl, req, LabelCancelling, LabelCancelLink, func(ctx context.Context) error {
		return p.Backend.CancelPaymentLink(ctx, req.Link().LinkID)
	})
}

// perform runs one payment-link call. Success and failure both leave the
// control clickable with label; only the notice differs.
func (p *PaymentPanel) perform(ctx context.Context, ctl *control.Control, req action.Request, busyLabel, label string, call func(context.Context) error) Result {
	a, err := ctl.Begin(busyLabel, BackgroundBusy)
	if err != nil {
		return busyResult(ctl)
	}
	run := attemptRun{attempt: a, kind: req.Kind(), target: req.TargetID(), abort: failWith(label)}
	return execute(ctx, p.Observer, p.Now, run, func(ctx context.Context) Result {
		out := invokeLink(ctx, req, call)
		if !out.OK() {
			logger.From(ctx).Warn("payment link action failed",
				"kind", string(req.Kind()),
				"property_id", req.TargetID(),
				"message", out.Message(),
			)
			a.Fail(label)
			return Result{Notice: out.Message(), Kind: NoticeRemote}
		}
		a.Restore(label)
		return Result{Notice: out.Display(), Kind: NoticeInfo}
	})
}

func invokeLink(ctx context.Context, req action.Request, call func(context.Context) error) action.Outcome {
	if err := call(ctx); err != nil {
		return action.Failed(ContactBackend(backend.UserMessage(err)))
	}
	return action.Ok(action.Confirmation(req.Kind()))
}
