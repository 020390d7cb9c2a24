// Package api exposes the redrive admin surface over HTTP with a Forge
// router. Replay endpoints return the replay summary; failures are RFC
// 7807 problem details.
package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/engine"
	"github.com/xraph/redrive/replay"
)

// API wires all Forge-style HTTP handlers together for redrive.
type API struct {
	eng    *engine.Engine
	router forge.Router
}

// New creates an API from a redrive Engine.
func New(eng *engine.Engine, router forge.Router) *API {
	return &API{eng: eng, router: router}
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	if a.router == nil {
		a.router = forge.NewRouter()
	}
	a.RegisterRoutes(a.router)
	return a.router.Handler()
}

// RegisterRoutes registers all redrive API routes into the given Forge
// router with full OpenAPI metadata.
func (a *API) RegisterRoutes(router forge.Router) {
	a.registerReplayRoutes(router)
	a.registerDeadLetterRoutes(router)
}

// registerReplayRoutes registers the replay triggers.
func (a *API) registerReplayRoutes(router forge.Router) {
	g := router.Group("/admin", forge.WithGroupTags("replay"))

	_ = g.PATCH("/dead-letters/replay/:aggregateId", a.replayOne,
		forge.WithSummary("Replay aggregate dead letters"),
		forge.WithDescription("Replays every dead letter of one aggregate into the projector. Records that fail stay archived and are reported in the summary."),
		forge.WithOperationID("replayDeadLetters"),
		forge.WithResponseSchema(http.StatusOK, "Replay summary", &replay.Summary{}),
		forge.WithResponseSchema(http.StatusBadRequest, "Invalid aggregate id", &Problem{}),
		forge.WithResponseSchema(http.StatusNotFound, "No dead letters for the aggregate", &Problem{}),
		forge.WithResponseSchema(http.StatusInternalServerError, "Dead letter store error", &Problem{}),
	)

	_ = g.POST("/dead-letters/replay-all", a.replayAll,
		forge.WithSummary("Replay all dead letters"),
		forge.WithDescription("Replays every dead letter with an aggregate id, grouped by aggregate."),
		forge.WithOperationID("replayAllDeadLetters"),
		forge.WithResponseSchema(http.StatusOK, "Replay summary", &replay.Summary{}),
		forge.WithResponseSchema(http.StatusNotFound, "No dead letters", &Problem{}),
		forge.WithResponseSchema(http.StatusInternalServerError, "Dead letter store error", &Problem{}),
	)
}

// registerDeadLetterRoutes registers read-only inspection routes.
func (a *API) registerDeadLetterRoutes(router forge.Router) {
	g := router.Group("/admin", forge.WithGroupTags("dead-letters"))

	_ = g.GET("/dead-letters", a.listDeadLetters,
		forge.WithSummary("List dead letters"),
		forge.WithDescription("Returns archived dead letters, oldest failure first."),
		forge.WithOperationID("listDeadLetters"),
		forge.WithRequestSchema(ListDeadLettersRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Dead letters", []*dlq.Record{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/dead-letters/count", a.countDeadLetters,
		forge.WithSummary("Dead letter count"),
		forge.WithDescription("Returns the total number of archived dead letters."),
		forge.WithOperationID("countDeadLetters"),
		forge.WithResponseSchema(http.StatusOK, "Dead letter count", CountResponse{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/dead-letters/:recordId", a.getDeadLetter,
		forge.WithSummary("Get dead letter"),
		forge.WithDescription("Returns one archived dead letter."),
		forge.WithOperationID("getDeadLetter"),
		forge.WithResponseSchema(http.StatusOK, "Dead letter", &dlq.Record{}),
		forge.WithErrorResponses(),
	)
}
