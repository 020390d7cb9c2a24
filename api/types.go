package api

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/xraph/redrive/dlq"
)

// ListDeadLettersRequest filters the dead letter listing.
type ListDeadLettersRequest struct {
	Limit       int    `query:"limit" json:"limit,omitempty"`
	Offset      int    `query:"offset" json:"offset,omitempty"`
	AggregateID string `query:"aggregate_id" json:"aggregate_id,omitempty"`
}

// Filter validates the bound query and converts it to a store filter.
// A zero limit selects the default page size.
func (r *ListDeadLettersRequest) Filter() (dlq.Filter, error) {
	if r.Limit < 0 {
		return dlq.Filter{}, fmt.Errorf("invalid limit %d", r.Limit)
	}
	if r.Offset < 0 {
		return dlq.Filter{}, fmt.Errorf("invalid offset %d", r.Offset)
	}
	f := dlq.Filter{Limit: defaultLimit(r.Limit), Offset: r.Offset}
	if r.AggregateID != "" {
		agg, err := uuid.Parse(r.AggregateID)
		if err != nil {
			return dlq.Filter{}, fmt.Errorf("invalid aggregate id %q", r.AggregateID)
		}
		f.AggregateID = &agg
	}
	return f, nil
}

// CountResponse is the body of the count endpoint.
type CountResponse struct {
	Count int64 `json:"count"`
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func defaultLimit(n int) int {
	switch {
	case n <= 0:
		return defaultPageSize
	case n > maxPageSize:
		return maxPageSize
	default:
		return n
	}
}
