package panel

import (
	"context"
	"testing"

	"admin-actions/internal/action"
	"admin-actions/internal/backend"
	"admin-actions/internal/control"

	"github.com/google/go-cmp/cmp"
)

func newPaymentPanel(be *fakeBackend) (*PaymentPanel, *recordingObserver) {
	obs := &recordingObserver{}
	return &PaymentPanel{Controls: control.NewRegistry(), Backend: be, Observer: obs}, obs
}

func TestSend_ConfirmsAndRestoresLabel(t *testing.T) {
	be := &fakeBackend{}
	p, obs := newPaymentPanel(be)

	res := p.Send(context.Background(), "42", "1234567890", 500)

	if res.Notice != "Payment link sent." || res.Kind != NoticeInfo {
		t.Fatalf("unexpected notice: %+v", res)
	}
	want := control.State{Phase: control.PhaseIdle, Label: LabelSendLink}
	if diff := cmp.Diff(want, res.Control.State); diff != "" {
		t.Fatalf("unexpected state (-want +got):\n%s", diff)
	}
	wantSent := []action.LinkParams{{PropertyID: "42", PhoneNumber: "1234567890", Amount: 500}}
	if diff := cmp.Diff(wantSent, be.sent); diff != "" {
		t.Fatalf("unexpected send params (-want +got):\n%s", diff)
	}
	s := obs.all()
	if len(s) != 1 || !s[0].OK() || s[0].Kind != action.KindSendLink || s[0].TargetID != "42" {
		t.Fatalf("unexpected settlements: %+v", s)
	}
}

func TestSend_InvalidPhoneLeavesControlUntouched(t *testing.T) {
	be := &fakeBackend{}
	p, obs := newPaymentPanel(be)

	res := p.Send(context.Background(), "42", "12345", 500)

	if res.Kind != NoticeValidation || res.Notice != action.MsgInvalidPhone {
		t.Fatalf("unexpected notice: %+v", res)
	}
	if len(be.linkCalls) != 0 {
		t.Fatalf("expected no backend call, got %v", be.linkCalls)
	}
	if res.Control.Revision != 0 || res.Control.State.Phase != control.PhaseIdle {
		t.Fatalf("control must be untouched, got %+v", res.Control)
	}
	if len(obs.all()) != 0 {
		t.Fatalf("validation failures are not attempts")
	}
}

func TestSend_AmountBelowOneIsRejected(t *testing.T) {
	be := &fakeBackend{}
	p, _ := newPaymentPanel(be)

	for _, amount := range []float64{0, 0.5, -10} {
		res := p.Send(context.Background(), "42", "1234567890", amount)
		if res.Notice != action.MsgInvalidAmount {
			t.Fatalf("amount %v: unexpected notice %q", amount, res.Notice)
		}
	}
	if len(be.linkCalls) != 0 {
		t.Fatalf("expected no backend call, got %v", be.linkCalls)
	}
}

func TestContactBackend_KeepsServerTextVerbatim(t *testing.T) {
	cases := map[string]string{
		"Payment link expired.": "Payment link expired. contact Backend team.",
		"  padded\n":            "  padded\n contact Backend team.",
		"<b>Already paid</b>\n": "<b>Already paid</b>\n contact Backend team.",
	}
	for in, want := range cases {
		if got := ContactBackend(in); got != want {
			t.Fatalf("ContactBackend(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResend_FailureKeepsLabelAndAddsContactNote(t *testing.T) {
	be := &fakeBackend{linkErr: &backend.HTTPError{StatusCode: 400, Body: "Payment link expired."}}
	p, _ := newPaymentPanel(be)

	res := p.Resend(context.Background(), "42", "pl_9")

	if res.Kind != NoticeRemote || res.Notice != "Payment link expired. contact Backend team." {
		t.Fatalf("unexpected notice: %+v", res)
	}
	want := control.State{Phase: control.PhaseError, Label: LabelResendLink}
	if diff := cmp.Diff(want, res.Control.State); diff != "" {
		t.Fatalf("unexpected state (-want +got):\n%s", diff)
	}
	if res.Control.ID != ResendLinkControlID("pl_9") {
		t.Fatalf("unexpected control id %q", res.Control.ID)
	}
	if diff := cmp.Diff([]string{"resend:pl_9"}, be.linkCalls); diff != "" {
		t.Fatalf("unexpected calls (-want +got):\n%s", diff)
	}

	be.linkErr = nil
	again := p.Resend(context.Background(), "42", "pl_9")
	if again.Notice != "Payment link resent." || again.Control.State.Phase != control.PhaseIdle {
		t.Fatalf("retry after failure: %+v", again)
	}
}

func TestCancel_Confirms(t *testing.T) {
	be := &fakeBackend{}
	p, _ := newPaymentPanel(be)

	res := p.Cancel(context.Background(), "42", "pl_3")
	if res.Notice != "Payment link cancelled." || res.Control.State.Label != LabelCancelLink {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Control.State.Disabled {
		t.Fatalf("control must be re-enabled")
	}
}

func TestCancel_RequiresLinkID(t *testing.T) {
	be := &fakeBackend{}
	p, _ := newPaymentPanel(be)

	res := p.Cancel(context.Background(), "42", "")
	if res.Kind != NoticeValidation {
		t.Fatalf("expected validation, got %+v", res)
	}
	if len(be.linkCalls) != 0 {
		t.Fatalf("expected no backend call")
	}
}

func TestSend_IgnoredWhileBusy(t *testing.T) {
	be := &fakeBackend{}
	p, _ := newPaymentPanel(be)

	ctl := p.Controls.Get(SendLinkControlID("42"), LabelSendLink)
	if _, err := ctl.Begin(LabelSending, BackgroundBusy); err != nil {
		t.Fatalf("begin: %v", err)
	}

	res := p.Send(context.Background(), "42", "12345", 500)
	if res.Kind != NoticeBusy {
		t.Fatalf("expected busy, got %+v", res)
	}
	if res.Control.State.Label != LabelSending {
		t.Fatalf("busy control changed: %+v", res.Control.State)
	}
}
