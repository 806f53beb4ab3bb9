package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/internal/domain/predict"
	"github.com/okian/spread/internal/domain/types"
)

// PredictDependencies defines the interface for forecasts.
type PredictDependencies interface {
	Predict(ctx context.Context, entries []model.ScheduleEntry) ([]predict.Result, error)
}

// PredictHandler handles forecast requests.
type PredictHandler struct {
	deps PredictDependencies
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps PredictDependencies) *PredictHandler {
	return &PredictHandler{deps: deps}
}

// HandlePredict handles POST /predict requests. Every entry gets one
// element in the response, in request order; entries without enough
// history carry an error instead of a margin.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	var req []types.Entry
	if err := decodeBody(r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req) == 0 {
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}

	entries := make([]model.ScheduleEntry, len(req))
	for i, e := range req {
		entries[i] = e.Model()
	}
	results, err := h.deps.Predict(r.Context(), entries)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}

	out := make([]types.Forecast, len(results))
	for i, res := range results {
		out[i] = toForecast(res)
	}
	writeJSON(w, http.StatusOK, out)
}

func toForecast(res predict.Result) types.Forecast {
	f := types.Forecast{Entry: types.FromEntry(res.Entry)}
	if res.Err != nil {
		f.Error = res.Err.Error()
		var missing *predict.MissingPriorDataError
		if errors.As(res.Err, &missing) {
			f.Participant = missing.Participant
		}
		return f
	}
	fc := res.Forecast
	f.Margin = &fc.Margin
	f.HomeWinProb = &fc.HomeWinProb
	f.HomeRating = &fc.HomeRating
	f.AwayRating = &fc.AwayRating
	return f
}
