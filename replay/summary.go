package replay

import (
	"time"

	"github.com/google/uuid"

	"github.com/xraph/redrive/id"
)

// Summary reports the outcome of one replay invocation. Once the
// invocation returns, SuccessfulReplays + FailedReplays == TotalEvents.
// Errors holds one description per failed record plus any cleanup
// warnings, so it may be longer than FailedReplays.
type Summary struct {
	TotalEvents         int         `json:"total_events"`
	SuccessfulReplays   int         `json:"successful_replays"`
	FailedReplays       int         `json:"failed_replays"`
	ProcessedAggregates []uuid.UUID `json:"processed_aggregates"`
	Errors              []string    `json:"errors"`
}

func newSummary(aggs ...uuid.UUID) *Summary {
	return &Summary{
		ProcessedAggregates: append([]uuid.UUID{}, aggs...),
		Errors:              []string{},
	}
}

func (s *Summary) merge(o *Summary) {
	s.TotalEvents += o.TotalEvents
	s.SuccessfulReplays += o.SuccessfulReplays
	s.FailedReplays += o.FailedReplays
	s.ProcessedAggregates = append(s.ProcessedAggregates, o.ProcessedAggregates...)
	s.Errors = append(s.Errors, o.Errors...)
}

// Consistent reports whether every attempted record was counted exactly
// once as a success or a failure.
func (s *Summary) Consistent() bool {
	return s.SuccessfulReplays+s.FailedReplays == s.TotalEvents
}

// Kind names the replay entry point.
type Kind string

const (
	KindOne Kind = "one"
	KindAll Kind = "all"
)

// Run describes one replay invocation. It is handed to lifecycle hooks.
type Run struct {
	ID          id.ReplayID
	Kind        Kind
	AggregateID *uuid.UUID
	StartedAt   time.Time
}
