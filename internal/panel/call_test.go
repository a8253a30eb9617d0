package panel

import (
	"context"
	"errors"
	"testing"
	"time"

	"admin-actions/internal/backend"
	"admin-actions/internal/calls"
	"admin-actions/internal/control"

	"github.com/google/go-cmp/cmp"
)

func newCallPanel(be *fakeBackend) (*CallPanel, *recordingObserver) {
	obs := &recordingObserver{}
	return &CallPanel{
		Controls: control.NewRegistry(),
		Backend:  be,
		Fields:   NewFields(nil),
		Endpoints: Endpoints{
			ProgressURL: "/calls/in-progress/",
			TriggerURL:  "/calls/trigger/",
			StatusURL:   "/calls/status/",
		},
		Observer: obs,
	}, obs
}

func binding() calls.Binding {
	return calls.Binding{
		SubmissionType: "7",
		PostID:         "42",
		From:           "9876543210",
		To:             "9123456789",
		CallerID:       "08047112233",
	}
}

func TestTrigger_ShowsProviderStatusAndStaysDisabled(t *testing.T) {
	be := &fakeBackend{status: "completed"}
	p, obs := newCallPanel(be)

	res := p.Trigger(context.Background(), binding())

	if res.Kind != NoticeNone || res.Notice != "" {
		t.Fatalf("unexpected notice: %+v", res)
	}
	want := control.State{Phase: control.PhaseSucceeded, Label: "completed", Disabled: true, Background: "green"}
	if diff := cmp.Diff(want, res.Control.State); diff != "" {
		t.Fatalf("unexpected state (-want +got):\n%s", diff)
	}
	if be.progressCalls != 1 || be.triggerCalls != 1 {
		t.Fatalf("expected one progress check and one trigger, got %d/%d", be.progressCalls, be.triggerCalls)
	}
	if be.triggered[0].PostID != "42" || be.triggered[0].CallerID != "08047112233" {
		t.Fatalf("unexpected trigger params: %+v", be.triggered[0])
	}
	if n := len(obs.all()); n != 1 {
		t.Fatalf("expected one settlement, got %d", n)
	}

	again := p.Trigger(context.Background(), binding())
	if again.Kind != NoticeBusy {
		t.Fatalf("succeeded control must ignore clicks, got %+v", again)
	}
	if be.triggerCalls != 1 {
		t.Fatalf("expected no second trigger, got %d", be.triggerCalls)
	}
}

func TestTrigger_ConflictNeverCallsInvoker(t *testing.T) {
	be := &fakeBackend{inProgress: true, status: "completed"}
	p, _ := newCallPanel(be)

	res := p.Trigger(context.Background(), binding())

	if be.triggerCalls != 0 {
		t.Fatalf("trigger must not be called on conflict, got %d calls", be.triggerCalls)
	}
	if res.Kind != NoticeConflict || res.Notice != MsgCallConflict {
		t.Fatalf("unexpected notice: %+v", res)
	}
	want := control.State{Phase: control.PhaseError, Label: LabelRetryCall}
	if diff := cmp.Diff(want, res.Control.State); diff != "" {
		t.Fatalf("unexpected state (-want +got):\n%s", diff)
	}
}

func TestTrigger_RetryAfterConflict(t *testing.T) {
	be := &fakeBackend{inProgress: true, status: "ringing"}
	p, _ := newCallPanel(be)
	_ = p.Trigger(context.Background(), binding())

	be.inProgress = false
	res := p.Trigger(context.Background(), binding())
	if res.Control.State.Label != "ringing" || res.Control.State.Phase != control.PhaseSucceeded {
		t.Fatalf("unexpected state after retry: %+v", res.Control.State)
	}
}

func TestTrigger_ProgressCheckFailureSurfacesServerText(t *testing.T) {
	be := &fakeBackend{progressErr: &backend.HTTPError{StatusCode: 500, Body: "progress api down"}}
	p, _ := newCallPanel(be)

	res := p.Trigger(context.Background(), binding())

	if res.Kind != NoticeRemote || res.Notice != "progress api down" {
		t.Fatalf("unexpected notice: %+v", res)
	}
	if be.triggerCalls != 0 {
		t.Fatalf("trigger must not run when the guard fails")
	}
	if res.Control.State.Disabled || res.Control.State.Label != LabelRetryCall {
		t.Fatalf("expected re-enabled retry control, got %+v", res.Control.State)
	}
}

func TestTrigger_InvokerFailureRestoresBackground(t *testing.T) {
	be := &fakeBackend{triggerErr: &backend.HTTPError{StatusCode: 400, Body: "Invalid caller id"}}
	p, _ := newCallPanel(be)

	res := p.Trigger(context.Background(), binding())

	want := control.State{Phase: control.PhaseError, Label: LabelRetryCall, Background: ""}
	if diff := cmp.Diff(want, res.Control.State); diff != "" {
		t.Fatalf("unexpected state (-want +got):\n%s", diff)
	}
	if res.Notice != "Invalid caller id" {
		t.Fatalf("expected server text verbatim, got %q", res.Notice)
	}
}

func TestTrigger_HeldLeaseIsConflict(t *testing.T) {
	be := &fakeBackend{status: "completed"}
	p, _ := newCallPanel(be)
	p.Lease = &fakeLease{held: true}

	res := p.Trigger(context.Background(), binding())

	if res.Kind != NoticeConflict {
		t.Fatalf("expected conflict, got %+v", res)
	}
	if be.progressCalls != 0 || be.triggerCalls != 0 {
		t.Fatalf("expected no backend calls, got %d/%d", be.progressCalls, be.triggerCalls)
	}
}

func TestTrigger_ReleasesLease(t *testing.T) {
	be := &fakeBackend{status: "completed"}
	lease := &fakeLease{}
	p, _ := newCallPanel(be)
	p.Lease = lease

	_ = p.Trigger(context.Background(), binding())

	if lease.acquired != 1 || lease.released != 1 {
		t.Fatalf("expected lease acquired and released once, got %d/%d", lease.acquired, lease.released)
	}
}

func TestTrigger_PanicFailsControl(t *testing.T) {
	be := &fakeBackend{panicTrigger: true}
	p, obs := newCallPanel(be)

	res := p.Trigger(context.Background(), binding())

	if res.Kind != NoticeUnexpected || res.Notice != MsgUnexpected {
		t.Fatalf("unexpected notice: %+v", res)
	}
	if res.Control.State.Phase != control.PhaseError || res.Control.State.Disabled {
		t.Fatalf("expected clickable error control, got %+v", res.Control.State)
	}
	if s := obs.all(); len(s) != 1 || s[0].OK() {
		t.Fatalf("expected one failed settlement, got %+v", s)
	}
}

func TestTrigger_NotCancelledByCaller(t *testing.T) {
	be := &fakeBackend{status: "queued"}
	p, _ := newCallPanel(be)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := p.Trigger(ctx, binding())

	if res.Control.State.Label != "queued" {
		t.Fatalf("expected the call to complete, got %+v", res.Control.State)
	}
	if be.ctxErrs[0] != nil {
		t.Fatalf("remote call saw a cancelled context: %v", be.ctxErrs[0])
	}
}

func TestTrigger_ClickWhileBusyIsIgnored(t *testing.T) {
	be := &fakeBackend{status: "completed", block: make(chan struct{}), started: make(chan struct{})}
	p, _ := newCallPanel(be)

	done := make(chan Result, 1)
	go func() { done <- p.Trigger(context.Background(), binding()) }()

	select {
	case <-be.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("trigger never started")
	}

	other := binding()
	other.CallerID = "08000000000"
	busy := p.Trigger(context.Background(), other)
	if busy.Kind != NoticeBusy || busy.Control.State.Label != LabelCalling {
		t.Fatalf("expected busy result, got %+v", busy)
	}
	if got := busy.Control.Params["caller_id"]; got != "08047112233" {
		t.Fatalf("busy click rebound the control: caller_id=%q", got)
	}

	close(be.block)
	first := <-done
	if first.Control.State.Label != "completed" {
		t.Fatalf("unexpected first result: %+v", first.Control.State)
	}
	if be.triggerCalls != 1 {
		t.Fatalf("expected exactly one trigger, got %d", be.triggerCalls)
	}
}

func TestTrigger_RequiresPostID(t *testing.T) {
	be := &fakeBackend{}
	p, _ := newCallPanel(be)

	b := binding()
	b.PostID = " "
	res := p.Trigger(context.Background(), b)
	if res.Kind != NoticeValidation {
		t.Fatalf("expected validation, got %+v", res)
	}
	if be.progressCalls != 0 {
		t.Fatalf("expected no backend call")
	}
}

func TestRefresh_RebuildsCallControlWhenNotInProgress(t *testing.T) {
	be := &fakeBackend{
		status: "completed",
		snapshot: backend.Snapshot{
			calls.FieldLastCallStatus: "COMPLETED",
			"exotel_call_duration":    "42",
		},
	}
	p, _ := newCallPanel(be)
	_ = p.Trigger(context.Background(), binding())

	res := p.Refresh(context.Background(), binding())

	if !res.Rebuilt {
		t.Fatalf("expected rebuild")
	}
	want := control.State{Phase: control.PhaseIdle, Label: LabelCall}
	if diff := cmp.Diff(want, res.Call.State); diff != "" {
		t.Fatalf("unexpected call state (-want +got):\n%s", diff)
	}
	if res.Call.Params["post_id"] != "42" || res.Call.Params["exotel_call_endpoint"] != "/calls/trigger/" {
		t.Fatalf("rebuild must re-bind params, got %v", res.Call.Params)
	}
	if res.Call.Generation != 1 {
		t.Fatalf("expected generation 1, got %d", res.Call.Generation)
	}
	if got, _ := p.Fields.Get("42"); got["exotel_call_duration"] != "42" {
		t.Fatalf("fields not stored: %v", got)
	}
	if !p.CallControl("42").Accepting() {
		t.Fatalf("rebuilt control must accept clicks")
	}
}

func TestRefresh_InProgressKeepsCallControl(t *testing.T) {
	be := &fakeBackend{
		status:   "in-progress",
		snapshot: backend.Snapshot{calls.FieldLastCallStatus: calls.StatusInProgress},
	}
	p, _ := newCallPanel(be)
	_ = p.Trigger(context.Background(), binding())

	res := p.Refresh(context.Background(), binding())

	if res.Rebuilt {
		t.Fatalf("must not rebuild while in progress")
	}
	if res.Call.State.Phase != control.PhaseSucceeded || res.Call.State.Label != "in-progress" {
		t.Fatalf("call control changed: %+v", res.Call.State)
	}
}

func TestRefresh_WithoutReservedFieldDoesNotRebuild(t *testing.T) {
	be := &fakeBackend{snapshot: backend.Snapshot{"exotel_call_duration": "3"}}
	p, _ := newCallPanel(be)

	res := p.Refresh(context.Background(), binding())
	if res.Rebuilt {
		t.Fatalf("unexpected rebuild")
	}
}

func TestRefresh_FailureKeepsFieldsAndRestoresControl(t *testing.T) {
	be := &fakeBackend{snapshot: backend.Snapshot{"exotel_call_duration": "10"}}
	p, _ := newCallPanel(be)
	_ = p.Refresh(context.Background(), binding())

	be.pollErr = errors.New("connection refused")
	res := p.Refresh(context.Background(), binding())

	if res.Notice != MsgRefreshFailed || res.Kind != NoticeRemote {
		t.Fatalf("unexpected notice: %+v", res.Result)
	}
	want := control.State{Phase: control.PhaseIdle, Label: LabelRefresh}
	if diff := cmp.Diff(want, res.Control.State); diff != "" {
		t.Fatalf("unexpected refresh state (-want +got):\n%s", diff)
	}
	if got, _ := p.Fields.Get("42"); got["exotel_call_duration"] != "10" {
		t.Fatalf("fields overwritten on failure: %v", got)
	}
}

func TestRefresh_RestoresControlOnSuccessAndPanic(t *testing.T) {
	be := &fakeBackend{snapshot: backend.Snapshot{}}
	p, _ := newCallPanel(be)

	ok := p.Refresh(context.Background(), binding())
	if ok.Control.State.Label != LabelRefresh || ok.Control.State.Disabled {
		t.Fatalf("refresh control not restored: %+v", ok.Control.State)
	}

	be.panicPoll = true
	bad := p.Refresh(context.Background(), binding())
	if bad.Kind != NoticeUnexpected {
		t.Fatalf("expected unexpected notice, got %+v", bad.Result)
	}
	if bad.Control.State.Label != LabelRefresh || bad.Control.State.Disabled {
		t.Fatalf("refresh control not restored after panic: %+v", bad.Control.State)
	}
}

func TestRefresh_StaleAttemptCannotOverwriteRebuild(t *testing.T) {
	be := &fakeBackend{
		status:   "completed",
		block:    make(chan struct{}),
		started:  make(chan struct{}),
		snapshot: backend.Snapshot{calls.FieldLastCallStatus: "COMPLETED"},
	}
	p, _ := newCallPanel(be)

	done := make(chan Result, 1)
	go func() { done <- p.Trigger(context.Background(), binding()) }()
	<-be.started

	res := p.Refresh(context.Background(), binding())
	if !res.Rebuilt {
		t.Fatalf("expected rebuild")
	}

	close(be.block)
	<-done

	got := p.CallControl("42").View().State
	want := control.State{Phase: control.PhaseIdle, Label: LabelCall}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("stale attempt changed rebuilt control (-want +got):\n%s", diff)
	}
}

func TestTrigger_ExpandsEndpointTemplates(t *testing.T) {
	be := &fakeBackend{status: "queued"}
	p, _ := newCallPanel(be)
	p.Endpoints.StatusURL = "/api/posts/{post_id}/call-status/"

	_ = p.Trigger(context.Background(), binding())

	got := p.CallControl("42").View().Params["status_endpoint"]
	if got != "/api/posts/42/call-status/" {
		t.Fatalf("unexpected status endpoint %q", got)
	}
}
