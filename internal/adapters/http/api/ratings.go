package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/spread/internal/domain/predict"
	"github.com/okian/spread/internal/domain/rating"
	"github.com/okian/spread/internal/domain/types"
)

// RatingDependencies defines the interface for rating reads.
type RatingDependencies interface {
	Ratings(ctx context.Context, limit int) ([]predict.Standing, error)
	Rating(ctx context.Context, participant string) (predict.Standing, int, []rating.Point, error)
}

// RatingsHandler handles rating leaderboard requests.
type RatingsHandler struct {
	deps     RatingDependencies
	maxLimit int
}

// NewRatingsHandler creates a new ratings handler.
func NewRatingsHandler(deps RatingDependencies, maxLimit int) *RatingsHandler {
	return &RatingsHandler{deps: deps, maxLimit: maxLimit}
}

// participantRating is the GET /ratings/{participant} response.
type participantRating struct {
	types.Standing
	Trajectory []types.RatingPoint `json:"trajectory"`
}

// HandleGetRatings handles GET /ratings?limit=N requests.
func (h *RatingsHandler) HandleGetRatings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ratings"
	n, err := parseLimit(r, h.maxLimit, h.maxLimit)
	if err != nil {
		writeError(w, NewKind(op, err))
		return
	}
	standings, err := h.deps.Ratings(r.Context(), n)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	out := make([]types.Standing, len(standings))
	for i, s := range standings {
		out[i] = toStanding(i+1, s)
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetRating handles GET /ratings/{participant} requests.
func (h *RatingsHandler) HandleGetRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rating"
	participant := strings.TrimSpace(r.PathValue("participant"))
	if participant == "" {
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}
	st, rank, points, err := h.deps.Rating(r.Context(), participant)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, participantRating{
		Standing:   toStanding(rank, st),
		Trajectory: toPoints(points),
	})
}
