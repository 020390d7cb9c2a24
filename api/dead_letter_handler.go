package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/xraph/forge"

	"github.com/xraph/redrive/admin"
	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/id"
	"github.com/xraph/redrive/replay"
)

func (a *API) replayOne(ctx forge.Context) error {
	rid := requestID(ctx)

	raw := ctx.Param("aggregateId")
	agg, err := uuid.Parse(raw)
	if err != nil {
		return writeProblem(ctx, NewProblem(http.StatusBadRequest, fmt.Sprintf("invalid aggregate id %q", raw)))
	}

	sum, err := a.eng.Admin().Handle(ctx.Context(), admin.ReplayOneDeadLetter{AggregateID: agg})
	return a.writeSummary(ctx, rid, sum, err)
}

func (a *API) replayAll(ctx forge.Context) error {
	rid := requestID(ctx)
	sum, err := a.eng.Admin().Handle(ctx.Context(), admin.ReplayAllDeadLetters{})
	return a.writeSummary(ctx, rid, sum, err)
}

// writeSummary answers 200 with the summary, including partial
// failures, and a problem when nothing could be attempted.
func (a *API) writeSummary(ctx forge.Context, rid string, sum *replay.Summary, err error) error {
	if err != nil {
		p := problemFor(err)
		if p.Status >= http.StatusInternalServerError {
			a.eng.Redriver().Logger().Error("replay request failed",
				slog.String("request_id", rid),
				slog.String("error", err.Error()),
			)
		}
		return writeProblem(ctx, p)
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (a *API) listDeadLetters(ctx forge.Context, req *ListDeadLettersRequest) ([]*dlq.Record, error) {
	requestID(ctx)

	f, err := req.Filter()
	if err != nil {
		return nil, writeProblem(ctx, NewProblem(http.StatusBadRequest, err.Error()))
	}

	records, err := a.eng.Store().GetDeadLetters(ctx.Context(), f)
	if err != nil {
		return nil, writeProblem(ctx, problemFor(err))
	}
	return records, ctx.JSON(http.StatusOK, records)
}

func (a *API) countDeadLetters(ctx forge.Context) error {
	requestID(ctx)

	n, err := a.eng.Store().CountDeadLetters(ctx.Context())
	if err != nil {
		return writeProblem(ctx, problemFor(err))
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: n})
}

func (a *API) getDeadLetter(ctx forge.Context) error {
	requestID(ctx)

	recordID, err := id.ParseDeadLetterID(ctx.Param("recordId"))
	if err != nil {
		return writeProblem(ctx, NewProblem(http.StatusBadRequest, fmt.Sprintf("invalid dead letter id: %v", err)))
	}

	rec, err := a.eng.Store().GetDeadLetter(ctx.Context(), recordID)
	if err != nil {
		return writeProblem(ctx, problemFor(err))
	}
	return ctx.JSON(http.StatusOK, rec)
}
