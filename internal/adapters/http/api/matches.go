package api

import (
	"context"
	"net/http"

	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/internal/domain/types"
)

// MatchDependencies defines the interface for match ingestion.
type MatchDependencies interface {
	AddMatches(ctx context.Context, batch []model.Match) (int, error)
	Size() (matches, participants int)
}

// MatchesHandler handles match ingestion requests.
type MatchesHandler struct {
	deps MatchDependencies
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchDependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

// HandlePostMatches handles POST /matches requests. The body is a JSON
// array of completed matches, accepted or rejected as a whole.
func (h *MatchesHandler) HandlePostMatches(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_matches"
	var req []types.Match
	if err := decodeBody(r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req) == 0 {
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}

	batch := make([]model.Match, len(req))
	for i, m := range req {
		batch[i] = m.Model()
	}
	n, err := h.deps.AddMatches(r.Context(), batch)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	matches, participants := h.deps.Size()
	writeJSON(w, http.StatusOK, types.IngestResult{
		Accepted:     n,
		Matches:      matches,
		Participants: participants,
	})
}
