package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/xraph/forge"

	"github.com/xraph/redrive"
)

const (
	// HeaderRequestID carries the request id on every response.
	HeaderRequestID = "X-Request-Id"

	// ContentTypeProblem is the RFC 7807 media type.
	ContentTypeProblem = "application/problem+json"
)

// Problem is an RFC 7807 problem details body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// NewProblem builds a problem for an HTTP status.
func NewProblem(status int, detail string) *Problem {
	return &Problem{
		Type:   "https://httpstatuses.io/" + strconv.Itoa(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

// requestID echoes the caller's X-Request-Id or mints a UUIDv7 and sets
// it on the response.
func requestID(ctx forge.Context) string {
	rid := ctx.Header(HeaderRequestID)
	if rid == "" {
		if v7, err := uuid.NewV7(); err == nil {
			rid = v7.String()
		} else {
			rid = uuid.NewString()
		}
	}
	ctx.Response().Header().Set(HeaderRequestID, rid)
	return rid
}

// writeProblem writes p with the problem media type.
func writeProblem(ctx forge.Context, p *Problem) error {
	p.Instance = ctx.Request().URL.Path
	w := ctx.Response()
	w.Header().Set("Content-Type", ContentTypeProblem)
	w.WriteHeader(p.Status)
	return json.NewEncoder(w).Encode(p)
}

// problemFor maps replay and store errors to problems.
func problemFor(err error) *Problem {
	switch {
	case errors.Is(err, redrive.ErrNoDeadLetters):
		return NewProblem(http.StatusNotFound, "No dead letter events found")
	case errors.Is(err, redrive.ErrDeadLetterNotFound):
		return NewProblem(http.StatusNotFound, "Dead letter not found")
	default:
		return NewProblem(http.StatusInternalServerError, fmt.Sprintf("Dead Letter Store error: %v", err))
	}
}
