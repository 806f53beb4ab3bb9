// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	service "github.com/okian/spread/internal/app"
	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/internal/domain/predict"
	"github.com/okian/spread/internal/domain/rating"
	"github.com/okian/spread/internal/domain/types"
)

// Request size and list limits.
const (
	maxBodyBytes     = 32 << 20
	defaultListLimit = 10
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	MatchDependencies
	TrainDependencies
	PredictDependencies
	RatingDependencies
	TrialDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	matchesHandler *MatchesHandler
	trainHandler   *TrainHandler
	predictHandler *PredictHandler
	ratingsHandler *RatingsHandler
	trialsHandler  *TrialsHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// limit query parameter of list endpoints.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		matchesHandler: NewMatchesHandler(deps),
		trainHandler:   NewTrainHandler(deps),
		predictHandler: NewPredictHandler(deps),
		ratingsHandler: NewRatingsHandler(deps, maxLimit),
		trialsHandler:  NewTrialsHandler(deps, maxLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /matches", MetricsMiddleware(s.matchesHandler.HandlePostMatches, "matches"))
	mux.HandleFunc("POST /train", MetricsMiddleware(s.trainHandler.HandleTrain, "train"))
	mux.HandleFunc("GET /model", MetricsMiddleware(s.trainHandler.HandleGetModel, "model"))
	mux.HandleFunc("POST /predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict"))
	mux.HandleFunc("GET /ratings", MetricsMiddleware(s.ratingsHandler.HandleGetRatings, "ratings"))
	mux.HandleFunc("GET /ratings/{participant}", MetricsMiddleware(s.ratingsHandler.HandleGetRating, "rating"))
	mux.HandleFunc("GET /trials", MetricsMiddleware(s.trialsHandler.HandleGetTrials, "trials"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError classifies err and writes it as a types.ErrorResponse.
func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	resp := types.ErrorResponse{Code: code, Error: err.Error()}
	var dup *service.DuplicateMatchError
	if errors.As(err, &dup) {
		for _, k := range dup.Keys {
			resp.Keys = append(resp.Keys, k.String())
		}
	}
	writeJSON(w, status, resp)
}

// decodeBody reads a JSON body into v, rejecting trailing data and
// unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after body")
	}
	return nil
}

// parseLimit reads the limit query parameter; missing means def.
func parseLimit(r *http.Request, def, maxLimit int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		if maxLimit > 0 && def > maxLimit {
			return maxLimit, nil
		}
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, ErrBadRequest
	}
	if maxLimit > 0 && n > maxLimit {
		return 0, ErrLimitExceeded
	}
	return n, nil
}

func toStanding(rank int, s predict.Standing) types.Standing {
	return types.Standing{
		Rank:        rank,
		Participant: s.Participant,
		Season:      s.Season,
		Rating:      s.Rating,
		Matches:     s.Matches,
	}
}

func toPoints(points []rating.Point) []types.RatingPoint {
	out := make([]types.RatingPoint, len(points))
	for i, p := range points {
		out[i] = types.RatingPoint{Seq: p.Seq, Season: p.Season, Rating: p.Rating}
	}
	return out
}

func toTrials(trials []model.Trial) []types.Trial {
	out := make([]types.Trial, len(trials))
	for i, t := range trials {
		out[i] = types.Trial{
			Rank:   i + 1,
			Seq:    t.Seq,
			Params: t.Params,
			Loss:   t.Loss,
			Score:  t.Score,
			Error:  t.Err,
		}
	}
	return out
}

func toSummary(fm *predict.FittedModel) types.ModelSummary {
	return types.ModelSummary{
		ID:              fm.ID,
		RunID:           fm.RunID,
		TrainedAt:       fm.TrainedAt,
		RatingParams:    fm.RatingParams.Model(),
		RatingAccuracy:  fm.RatingAccuracy,
		Regressor:       fm.Regressor,
		RegressorParams: fm.RegressorParams,
		CVRMSE:          fm.CVRMSE,
		Columns:         fm.Columns,
		Rows:            fm.Rows,
		Excluded:        fm.Excluded,
		Warnings:        fm.Warnings,
	}
}
