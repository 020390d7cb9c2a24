package api_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/xraph/redrive/api"
)

func TestListDeadLettersRequest_Filter(t *testing.T) {
	agg := uuid.New()
	tests := []struct {
		name       string
		req        api.ListDeadLettersRequest
		wantErr    bool
		wantLimit  int
		wantOffset int
		wantAgg    bool
	}{
		{name: "defaults", req: api.ListDeadLettersRequest{}, wantLimit: 50},
		{name: "paged", req: api.ListDeadLettersRequest{Limit: 10, Offset: 20}, wantLimit: 10, wantOffset: 20},
		{name: "capped", req: api.ListDeadLettersRequest{Limit: 10_000}, wantLimit: 500},
		{name: "aggregate", req: api.ListDeadLettersRequest{AggregateID: agg.String()}, wantLimit: 50, wantAgg: true},
		{name: "negative limit", req: api.ListDeadLettersRequest{Limit: -1}, wantErr: true},
		{name: "negative offset", req: api.ListDeadLettersRequest{Offset: -1}, wantErr: true},
		{name: "bad aggregate", req: api.ListDeadLettersRequest{AggregateID: "nope"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := tt.req.Filter()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got filter %+v", f)
				}
				return
			}
			if err != nil {
				t.Fatalf("Filter: %v", err)
			}
			if f.Limit != tt.wantLimit || f.Offset != tt.wantOffset {
				t.Errorf("limit/offset = %d/%d, want %d/%d", f.Limit, f.Offset, tt.wantLimit, tt.wantOffset)
			}
			if tt.wantAgg != (f.AggregateID != nil) || (tt.wantAgg && *f.AggregateID != agg) {
				t.Errorf("aggregate = %v", f.AggregateID)
			}
		})
	}
}
