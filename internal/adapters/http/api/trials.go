package api

import (
	"context"
	"net/http"

	"github.com/okian/spread/internal/domain/model"
)

// TrialDependencies defines the interface for trial reads.
type TrialDependencies interface {
	Trials(ctx context.Context, stage string, limit int) ([]model.Trial, error)
}

// TrialsHandler handles trial listing requests.
type TrialsHandler struct {
	deps     TrialDependencies
	maxLimit int
}

// NewTrialsHandler creates a new trials handler.
func NewTrialsHandler(deps TrialDependencies, maxLimit int) *TrialsHandler {
	return &TrialsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetTrials handles GET /trials?stage=S&limit=N requests, listing the
// last run's trials of stage S best first.
func (h *TrialsHandler) HandleGetTrials(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_trials"
	stage := r.URL.Query().Get("stage")
	if stage == "" {
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}
	n, err := parseLimit(r, defaultListLimit, h.maxLimit)
	if err != nil {
		writeError(w, NewKind(op, err))
		return
	}
	trials, err := h.deps.Trials(r.Context(), stage, n)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toTrials(trials))
}
