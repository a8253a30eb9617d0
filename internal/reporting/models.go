package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r TimeRange) valid() bool {
	return !r.From.IsZero() && !r.To.IsZero() && r.To.After(r.From)
}

// ActionsSummaryRequest requests aggregated panel action outcomes.
// An empty Kind covers every action kind.

type ActionsSummaryRequest struct {
	Range TimeRange `json:"range"`
	Kind  string    `json:"kind,omitempty"`
}

type ActionsSummary struct {
	Kind string `json:"kind,omitempty"`

	Total      int `json:"total"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Conflicts  int `json:"conflicts"`
	Remote     int `json:"remote_failures"`
	Unexpected int `json:"unexpected_failures"`

	ByKind map[string]int `json:"by_kind"`

	TotalDurationMS   int64 `json:"total_duration_ms"`
	AverageDurationMS int64 `json:"average_duration_ms"`
}

// CallsSummaryRequest requests aggregated call trigger metrics, optionally
// for a single post.

type CallsSummaryRequest struct {
	Range  TimeRange `json:"range"`
	PostID string    `json:"post_id,omitempty"`
}

// CallsSummary counts call triggers by what the provider reported when the
// call was placed. Refused counts clicks turned away because another call
// was running.
type CallsSummary struct {
	PostID string `json:"post_id,omitempty"`

	Attempts int `json:"attempts"`
	Placed   int `json:"placed"`
	Refused  int `json:"refused"`
	Errored  int `json:"errored"`

	CompletedCalls  int `json:"completed_calls"`
	FailedCalls     int `json:"failed_calls"`
	NoAnswerCalls   int `json:"no_answer_calls"`
	BusyCalls       int `json:"busy_calls"`
	CanceledCalls   int `json:"canceled_calls"`
	InProgressCalls int `json:"in_progress_calls"`
	QueuedCalls     int `json:"queued_calls"`
	OtherStatus     int `json:"other_status"`

	PlacementRate float64 `json:"placement_rate"`
}
