package panel

import (
	"context"
	"errors"

	"admin-actions/pkg/logger"
)

// ErrConflict means an equivalent action is already running.
var ErrConflict = errors.New("panel: equivalent action in progress")

// ProgressChecker asks the backend whether a call is running.
type ProgressChecker interface {
	CallInProgress(ctx context.Context, progressURL string) (bool, error)
}

// Lease is an exclusive, expiring claim on a key shared by every replica.
// Acquire returns ok=false when somebody else holds the key.
type Lease interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

// Guard refuses to start an action that would overlap with itself. The
// backend progress check is authoritative; the lease only narrows the
// window between two replicas passing the check at the same time.
type Guard struct {
	Checker ProgressChecker
	Lease   Lease
}

// InProgress reports the backend's view of the call for progressURL.
func (g Guard) InProgress(ctx context.Context, progressURL string) (bool, error) {
	return g.Checker.CallInProgress(ctx, progressURL)
}

// Enter claims key and runs the progress check. On success the returned
// release func must be called after the remote action finished.
// It returns ErrConflict when the action must not run, or the progress
// check error.
func (g Guard) Enter(ctx context.Context, key, progressURL string) (func(), error) {
	release := func() {}
	if g.Lease != nil {
		r, ok, err := g.Lease.Acquire(ctx, key)
		switch {
		case err != nil:
			// Lease store down: fall back to the progress check alone.
			logger.From(ctx).Warn("in-flight lease unavailable", "key", key, "err", err)
		case !ok:
			return nil, ErrConflict
		default:
			release = r
		}
	}

	busy, err := g.InProgress(ctx, progressURL)
	if err != nil {
		release()
		return nil, err
	}
	if busy {
		release()
		return nil, ErrConflict
	}
	return release, nil
}
