package panel

import (
	"context"
	"sync"

	"admin-actions/internal/action"
	"admin-actions/internal/backend"
)

type fakeBackend struct {
	mu sync.Mutex

	inProgress  bool
	progressErr error

	status     string
	triggerErr error
	// block, when set, holds TriggerCall until it is closed.
	block        chan struct{}
	started      chan struct{}
	panicTrigger bool

	snapshot  backend.Snapshot
	pollErr   error
	panicPoll bool

	linkErr error

	progressCalls int
	triggerCalls  int
	pollCalls     int
	triggered     []action.CallParams
	linkCalls     []string
	sent          []action.LinkParams
	ctxErrs       []error
}

func (f *fakeBackend) CallInProgress(ctx context.Context, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progressCalls++
	return f.inProgress, f.progressErr
}

func (f *fakeBackend) TriggerCall(ctx context.Context, _ string, p action.CallParams) (backend.CallResult, error) {
	f.mu.Lock()
	f.triggerCalls++
	f.triggered = append(f.triggered, p)
	block, started, panics := f.block, f.started, f.panicTrigger
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if block != nil {
		<-block
	}
	if panics {
		panic("trigger exploded")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.triggerErr != nil {
		return backend.CallResult{}, f.triggerErr
	}
	return backend.CallResult{Status: f.status}, nil
}

func (f *fakeBackend) PollStatus(ctx context.Context, _ string) (backend.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollCalls++
	if f.panicPoll {
		panic("poll exploded")
	}
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	return f.snapshot, nil
}

func (f *fakeBackend) SendPaymentLink(_ context.Context, p action.LinkParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linkCalls = append(f.linkCalls, "send")
	f.sent = append(f.sent, p)
	return f.linkErr
}

func (f *fakeBackend) ResendPaymentLink(_ context.Context, linkID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linkCalls = append(f.linkCalls, "resend:"+linkID)
	return f.linkErr
}

func (f *fakeBackend) CancelPaymentLink(_ context.Context, linkID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linkCalls = append(f.linkCalls, "cancel:"+linkID)
	return f.linkErr
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []Settlement
}

func (r *recordingObserver) Settled(_ context.Context, s Settlement) {
	r.mu.Lock()
	r.seen = append(r.seen, s)
	r.mu.Unlock()
}

func (r *recordingObserver) all() []Settlement {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Settlement, len(r.seen))
	copy(out, r.seen)
	return out
}

type fakeLease struct {
	held     bool
	err      error
	acquired int
	released int
}

func (l *fakeLease) Acquire(context.Context, string) (func(), bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	l.acquired++
	return func() { l.released++ }, true, nil
}
