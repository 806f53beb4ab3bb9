package api

import (
	"context"
	"net/http"

	"github.com/okian/spread/internal/domain/predict"
)

// TrainDependencies defines the interface for training and model reads.
type TrainDependencies interface {
	Train(ctx context.Context) (*predict.FittedModel, error)
	Model() (*predict.FittedModel, error)
}

// TrainHandler handles training requests.
type TrainHandler struct {
	deps TrainDependencies
}

// NewTrainHandler creates a new train handler.
func NewTrainHandler(deps TrainDependencies) *TrainHandler {
	return &TrainHandler{deps: deps}
}

// HandleTrain handles POST /train requests. Training runs in the request;
// a concurrent run answers 409.
func (h *TrainHandler) HandleTrain(w http.ResponseWriter, r *http.Request) {
	const op = "api.train"
	fm, err := h.deps.Train(r.Context())
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toSummary(fm))
}

// HandleGetModel handles GET /model requests.
func (h *TrainHandler) HandleGetModel(w http.ResponseWriter, _ *http.Request) {
	const op = "api.get_model"
	fm, err := h.deps.Model()
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toSummary(fm))
}
