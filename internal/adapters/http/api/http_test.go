package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/okian/spread/internal/adapters/http/api"
	service "github.com/okian/spread/internal/app"
	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/internal/domain/predict"
	"github.com/okian/spread/internal/domain/rating"
	"github.com/okian/spread/internal/domain/regressor"
	"github.com/okian/spread/internal/domain/search"
	"github.com/okian/spread/internal/domain/types"
	"github.com/okian/spread/internal/leaguesim"
	. "github.com/smartystreets/goconvey/convey"
)

func testLeague(t *testing.T) *leaguesim.League {
	t.Helper()
	l, err := leaguesim.Generate(leaguesim.LeagueConfig{
		Teams: 6, Seasons: 1, Rounds: 16, Upcoming: 1,
		HomeEdge: 3, Spread: 6, Noise: 8, Seed: 2,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return l
}

func newMux(t *testing.T) (*http.ServeMux, *service.Service) {
	t.Helper()
	svc := service.New(
		service.WithWorkerCount(2),
		service.WithFolds(3, false),
		service.WithSamples(4),
		service.WithPlan(search.Plan{
			Grid: search.RatingGrid{
				UpdateRates:       []float64{20},
				HomeAdvantages:    []float64{0, 50},
				SeasonRegressions: []float64{0.4},
			},
			FormWindow: 3,
			Stats:      []string{"pts", "reb"},
			Regressor:  regressor.NameRidge,
		}),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(svc.Stop)

	mux := http.NewServeMux()
	api.NewServer(svc, svc, 100).Register(context.Background(), mux)
	return mux, svc
}

func do(mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func matchesBody(ms []model.Match) []types.Match {
	out := make([]types.Match, len(ms))
	for i, m := range ms {
		out[i] = types.FromMatch(m)
	}
	return out
}

func entriesBody(es []model.ScheduleEntry) []types.Entry {
	out := make([]types.Entry, len(es))
	for i, e := range es {
		out[i] = types.FromEntry(e)
	}
	return out
}

func decodeError(w *httptest.ResponseRecorder) types.ErrorResponse {
	var e types.ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	return e
}

func TestServerLifecycle(t *testing.T) {
	league := testLeague(t)
	mux, _ := newMux(t)

	Convey("Given a running API server with an empty ledger", t, func() {
		Convey("Then the health endpoint serves metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then forecasting without a model is a conflict", func() {
			w := do(mux, http.MethodPost, "/predict", entriesBody(league.Upcoming))
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(decodeError(w).Code, ShouldEqual, "no_model")
		})

		Convey("Then trials without a run are not found", func() {
			w := do(mux, http.MethodGet, "/trials?stage=rating", nil)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w).Code, ShouldEqual, "no_run")
		})

		Convey("Then training an empty ledger is unprocessable", func() {
			w := do(mux, http.MethodPost, "/train", nil)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(decodeError(w).Code, ShouldEqual, "insufficient_history")
		})
	})

	posted := do(mux, http.MethodPost, "/matches", matchesBody(league.Matches))

	Convey("Given the league's matches are posted", t, func() {
		w := posted
		So(w.Code, ShouldEqual, http.StatusOK)

		var res types.IngestResult
		So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)

		Convey("Then every match is accepted", func() {
			So(res.Accepted, ShouldEqual, len(league.Matches))
			So(res.Matches, ShouldEqual, len(league.Matches))
			So(res.Participants, ShouldEqual, 6)
		})

		Convey("When the same matches are posted again", func() {
			w := do(mux, http.MethodPost, "/matches", matchesBody(league.Matches[:3]))

			Convey("Then the batch is rejected as duplicate with its keys", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				e := decodeError(w)
				So(e.Code, ShouldEqual, "duplicate_match")
				So(len(e.Keys), ShouldEqual, 3)
				So(e.Keys[0], ShouldEqual, league.Matches[0].Key().String())
			})
		})

		Convey("When the body is malformed", func() {
			for _, body := range []string{"{", `{"season":"x"}`, "[]", `[{"bogus":1}]`} {
				w := do(mux, http.MethodPost, "/matches", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "bad_request")
			}
		})

		Convey("When a match fails validation", func() {
			bad := league.Matches[0]
			bad.MatchID = "self"
			bad.Away = bad.Home
			w := do(mux, http.MethodPost, "/matches", matchesBody([]model.Match{bad}))

			Convey("Then it is a data integrity error", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "data_integrity")
			})
		})

		Convey("When a route is called with the wrong method", func() {
			w := do(mux, http.MethodGet, "/matches", nil)
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})

	trained := do(mux, http.MethodPost, "/train", nil)

	Convey("Given a trained model", t, func() {
		w := trained
		So(w.Code, ShouldEqual, http.StatusOK)

		var summary types.ModelSummary
		So(json.Unmarshal(w.Body.Bytes(), &summary), ShouldBeNil)

		Convey("Then the summary describes the winners", func() {
			So(summary.ID, ShouldNotBeEmpty)
			So(summary.Regressor, ShouldEqual, regressor.NameRidge)
			So(summary.RatingParams, ShouldContainKey, rating.ParamUpdateRate)
			So(summary.CVRMSE, ShouldBeGreaterThan, 0)
			So(summary.Rows, ShouldBeGreaterThan, 0)
			So(len(summary.Columns), ShouldBeGreaterThan, 0)
		})

		Convey("Then GET /model returns the same model", func() {
			w := do(mux, http.MethodGet, "/model", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			var again types.ModelSummary
			So(json.Unmarshal(w.Body.Bytes(), &again), ShouldBeNil)
			So(again.ID, ShouldEqual, summary.ID)
		})

		Convey("When forecasting the upcoming round", func() {
			w := do(mux, http.MethodPost, "/predict", entriesBody(league.Upcoming))
			So(w.Code, ShouldEqual, http.StatusOK)
			var out []types.Forecast
			So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)

			Convey("Then every fixture is forecast in order", func() {
				So(len(out), ShouldEqual, len(league.Upcoming))
				for i, f := range out {
					So(f.MatchID, ShouldEqual, league.Upcoming[i].MatchID)
					So(f.Error, ShouldBeEmpty)
					So(f.Margin, ShouldNotBeNil)
					So(*f.HomeWinProb, ShouldBeBetween, 0, 1)
				}
			})
		})

		Convey("When a fixture involves an unknown team", func() {
			e := league.Upcoming[0]
			e.MatchID = "new"
			e.Away = "ZZZ"
			w := do(mux, http.MethodPost, "/predict", entriesBody([]model.ScheduleEntry{e}))

			Convey("Then its element carries the error and the participant", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out []types.Forecast
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(len(out), ShouldEqual, 1)
				So(out[0].Margin, ShouldBeNil)
				So(out[0].Error, ShouldNotBeEmpty)
				So(out[0].Participant, ShouldEqual, "ZZZ")
			})
		})

		Convey("When forecasting an already played match", func() {
			played := league.Matches[0]
			e := model.ScheduleEntry{Season: played.Season, MatchID: played.MatchID, Date: played.Date, Home: played.Home, Away: played.Away}
			w := do(mux, http.MethodPost, "/predict", entriesBody([]model.ScheduleEntry{e}))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Code, ShouldEqual, "data_integrity")
		})

		Convey("When listing ratings", func() {
			w := do(mux, http.MethodGet, "/ratings?limit=3", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			var st []types.Standing
			So(json.Unmarshal(w.Body.Bytes(), &st), ShouldBeNil)

			Convey("Then the best three come ranked", func() {
				So(len(st), ShouldEqual, 3)
				So(sort.SliceIsSorted(st, func(i, j int) bool { return st[i].Rating > st[j].Rating }), ShouldBeTrue)
				for i, s := range st {
					So(s.Rank, ShouldEqual, i+1)
				}
			})

			Convey("Then all six come back without a limit", func() {
				w := do(mux, http.MethodGet, "/ratings", nil)
				var all []types.Standing
				So(json.Unmarshal(w.Body.Bytes(), &all), ShouldBeNil)
				So(len(all), ShouldEqual, 6)
			})

			Convey("Then bad limits are rejected", func() {
				So(decodeError(do(mux, http.MethodGet, "/ratings?limit=0", nil)).Code, ShouldEqual, "bad_request")
				So(decodeError(do(mux, http.MethodGet, "/ratings?limit=x", nil)).Code, ShouldEqual, "bad_request")
				So(decodeError(do(mux, http.MethodGet, "/ratings?limit=101", nil)).Code, ShouldEqual, "limit_exceeded")
			})
		})

		Convey("When reading one team", func() {
			w := do(mux, http.MethodGet, "/ratings/T01", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			var body struct {
				types.Standing
				Trajectory []types.RatingPoint `json:"trajectory"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)

			Convey("Then it has a rank and one point per match", func() {
				So(body.Participant, ShouldEqual, "T01")
				So(body.Rank, ShouldBeBetweenOrEqual, 1, 6)
				So(body.Matches, ShouldEqual, 16)
				So(len(body.Trajectory), ShouldEqual, 16)
				So(body.Trajectory[15].Rating, ShouldEqual, body.Rating)
			})

			Convey("Then an unknown team is not found", func() {
				w := do(mux, http.MethodGet, "/ratings/ZZZ", nil)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When listing trials", func() {
			w := do(mux, http.MethodGet, "/trials?stage=rating&limit=5", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			var trials []types.Trial
			So(json.Unmarshal(w.Body.Bytes(), &trials), ShouldBeNil)

			Convey("Then the grid's trials come best first", func() {
				So(len(trials), ShouldEqual, 2)
				So(trials[0].Rank, ShouldEqual, 1)
				So(trials[0].Loss, ShouldBeLessThanOrEqualTo, trials[1].Loss)
				So(trials[0].Params, ShouldContainKey, rating.ParamHomeAdvantage)
			})

			Convey("Then regressor trials are listed too", func() {
				w := do(mux, http.MethodGet, "/trials?stage=regressor", nil)
				var reg []types.Trial
				So(json.Unmarshal(w.Body.Bytes(), &reg), ShouldBeNil)
				So(len(reg), ShouldEqual, 4)
			})

			Convey("Then an unknown or missing stage is a bad request", func() {
				So(do(mux, http.MethodGet, "/trials?stage=bogus", nil).Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodGet, "/trials", nil).Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("Then stats report the ledger and the model", func() {
			w := do(mux, http.MethodGet, "/stats", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["matches"], ShouldEqual, float64(len(league.Matches)))
			So(stats["modelId"], ShouldEqual, summary.ID)
		})
	})
}

// stubDeps answers every call with err.
type stubDeps struct {
	err error
}

func (s stubDeps) AddMatches(context.Context, []model.Match) (int, error) { return 0, s.err }
func (s stubDeps) Size() (int, int) { return 0, 0 }
func (s stubDeps) Train(context.Context) (*predict.FittedModel, error) { return nil, s.err }
func (s stubDeps) Model() (*predict.FittedModel, error) { return nil, s.err }
func (s stubDeps) Predict(context.Context, []model.ScheduleEntry) ([]predict.Result, error) {
	return nil, s.err
}
func (s stubDeps) Ratings(context.Context, int) ([]predict.Standing, error) { return nil, s.err }
func (s stubDeps) Rating(context.Context, string) (predict.Standing, int, []rating.Point, error) {
	return predict.Standing{}, 0, nil, s.err
}
func (s stubDeps) Trials(context.Context, string, int) ([]model.Trial, error) { return nil, s.err }
func (s stubDeps) GetStats() map[string]interface{} { return nil }

func TestErrorMapping(t *testing.T) {
	Convey("Given handlers whose dependencies fail", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{service.ErrTrainingInProgress, http.StatusConflict, "training_in_progress"},
			{fmt.Errorf("train: %w", model.ErrInsufficientHistory), http.StatusUnprocessableEntity, "insufficient_history"},
			{fmt.Errorf("grid: %w", model.ErrConfiguration), http.StatusUnprocessableEntity, "invalid_configuration"},
			{search.ErrNoCandidate, http.StatusUnprocessableEntity, "search_exhausted"},
			{service.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
			{context.DeadlineExceeded, http.StatusServiceUnavailable, "cancelled"},
			{errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
		}
		for _, tc := range cases {
			Convey("Then "+tc.code+" maps to its status", func() {
				mux := http.NewServeMux()
				deps := stubDeps{err: tc.err}
				api.NewServer(deps, deps, 10).Register(context.Background(), mux)

				w := do(mux, http.MethodPost, "/train", nil)
				So(w.Code, ShouldEqual, tc.status)
				e := decodeError(w)
				So(e.Code, ShouldEqual, tc.code)
				So(e.Error, ShouldContainSubstring, "api.train")
			})
		}
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given an API error", t, func() {
		inner := errors.New("boom")
		err := api.WrapKind("api.op", api.ErrBadRequest, inner)

		Convey("Then it matches both its kind and its cause", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, inner), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")
		})

		Convey("Then a bare kind prints without a cause", func() {
			So(api.NewKind("api.op", api.ErrLimitExceeded).Error(), ShouldEqual, "api.op: limit exceeded")
		})
	})
}
