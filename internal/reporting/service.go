package reporting

import (
	"context"
	"errors"
	"strings"
	"time"

	"admin-actions/internal/action"
	"admin-actions/internal/audit"
	"admin-actions/internal/calls"
	"admin-actions/internal/panel"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository reads the append-only audit log. Both audit repositories
// implement it.
type Repository interface {
	ListEvents(ctx context.Context, from, to time.Time, kind string) ([]audit.Event, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) list(ctx context.Context, r TimeRange, kind string) ([]audit.Event, error) {
	if !r.valid() {
		return nil, ErrInvalidRequest
	}
	if s.repo == nil {
		return nil, errors.New("reporting: repository not configured")
	}
	return s.repo.ListEvents(ctx, r.From, r.To, kind)
}

func (s *Service) ActionsSummary(ctx context.Context, req ActionsSummaryRequest) (ActionsSummary, error) {
	rows, err := s.list(ctx, req.Range, req.Kind)
	if err != nil {
		return ActionsSummary{}, err
	}

	out := ActionsSummary{Kind: req.Kind, ByKind: map[string]int{}}
	for _, e := range rows {
		out.Total++
		out.ByKind[e.ActionKind]++
		out.TotalDurationMS += e.DurationMS
		if e.Outcome == audit.OutcomeOK {
			out.Succeeded++
			continue
		}
		out.Failed++
		// Events written without details still count as failures.
		d, _ := e.Details()
		switch panel.NoticeKind(d.NoticeKind) {
		case panel.NoticeConflict:
			out.Conflicts++
		case panel.NoticeRemote:
			out.Remote++
		case panel.NoticeUnexpected:
			out.Unexpected++
		}
	}
	if out.Total > 0 {
		out.AverageDurationMS = out.TotalDurationMS / int64(out.Total)
	}
	return out, nil
}

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	rows, err := s.list(ctx, req.Range, string(action.KindCall))
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{PostID: req.PostID}
	for _, e := range rows {
		if req.PostID != "" && e.TargetID != req.PostID {
			continue
		}
		out.Attempts++
		d, _ := e.Details()
		if e.Outcome != audit.OutcomeOK {
			if panel.NoticeKind(d.NoticeKind) == panel.NoticeConflict {
				out.Refused++
			} else {
				out.Errored++
			}
			continue
		}
		out.Placed++
		switch calls.CallStatus(strings.ToLower(strings.TrimSpace(d.Label))) {
		case calls.CallStatusCompleted:
			out.CompletedCalls++
		case calls.CallStatusFailed:
			out.FailedCalls++
		case calls.CallStatusNoAnswer:
			out.NoAnswerCalls++
		case calls.CallStatusBusy:
			out.BusyCalls++
		case calls.CallStatusCanceled:
			out.CanceledCalls++
		case calls.CallStatusInProgress, calls.CallStatusRinging:
			out.InProgressCalls++
		case calls.CallStatusQueued:
			out.QueuedCalls++
		default:
			out.OtherStatus++
		}
	}
	if out.Attempts > 0 {
		out.PlacementRate = float64(out.Placed) / float64(out.Attempts)
	}
	return out, nil
}
