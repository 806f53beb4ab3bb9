package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	service "github.com/okian/spread/internal/app"
	"github.com/okian/spread/internal/adapters/repository"
	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/internal/domain/predict"
	"github.com/okian/spread/internal/domain/regressor"
	"github.com/okian/spread/internal/domain/search"
	"github.com/okian/spread/internal/leaguesim"
	. "github.com/smartystreets/goconvey/convey"
)

func smallLeague(t *testing.T) *leaguesim.League {
	t.Helper()
	l, err := leaguesim.Generate(leaguesim.LeagueConfig{
		Teams: 6, Seasons: 2, Rounds: 12, Upcoming: 1,
		HomeEdge: 3, Spread: 6, Noise: 8, Seed: 5,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return l
}

func smallService(opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithWorkerCount(2),
		service.WithFolds(3, true),
		service.WithSamples(3),
		service.WithSeed(9),
		service.WithPlan(search.Plan{
			Grid: search.RatingGrid{
				UpdateRates:       []float64{15, 25},
				HomeAdvantages:    []float64{50},
				SeasonRegressions: []float64{0.3},
			},
			FormWindow: 3,
			Stats:      []string{"pts", "ast"},
			Regressor:  regressor.NameRidge,
		}),
	}
	return service.New(append(base, opts...)...)
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service that has not started", t, func() {
		svc := smallService()
		ctx := context.Background()

		Convey("Then ingestion and training are refused", func() {
			_, err := svc.AddMatches(ctx, nil)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Train(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Then stats report it as stopped", func() {
			So(svc.GetStats()["started"], ShouldBeFalse)
			m, p := svc.Size()
			So(m, ShouldEqual, 0)
			So(p, ShouldEqual, 0)
		})

		Convey("When it starts", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("Then the ledger is empty", func() {
				So(svc.Ledger().Len(), ShouldEqual, 0)
				So(svc.GetStats()["matches"], ShouldEqual, 0)
			})
		})

		Convey("When the trial store cannot be opened", func() {
			bad := smallService(service.WithTrialStore("redis", ""))
			So(bad.Start(ctx), ShouldNotBeNil)
		})
	})
}

func TestServiceIngest(t *testing.T) {
	league := smallLeague(t)

	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := smallService()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When batches arrive out of order", func() {
			half := len(league.Matches) / 2
			n, err := svc.AddMatches(ctx, league.Matches[half:])
			So(err, ShouldBeNil)
			So(n, ShouldEqual, len(league.Matches)-half)
			_, err = svc.AddMatches(ctx, league.Matches[:half])
			So(err, ShouldBeNil)

			Convey("Then the ledger holds them in canonical order", func() {
				got := svc.Ledger().Matches()
				So(len(got), ShouldEqual, len(league.Matches))
				for i := range got {
					So(got[i].Key(), ShouldResemble, league.Matches[i].Key())
				}
				m, p := svc.Size()
				So(m, ShouldEqual, len(league.Matches))
				So(p, ShouldEqual, 6)
			})

			Convey("Then a repeated batch is rejected whole with its keys", func() {
				batch := []model.Match{league.Matches[0], league.Matches[1]}
				batch[1].MatchID = "fresh"
				batch[1].Date = batch[1].Date.AddDate(0, 0, 1)
				_, err := svc.AddMatches(ctx, batch)
				var dup *service.DuplicateMatchError
				So(errors.As(err, &dup), ShouldBeTrue)
				So(errors.Is(err, model.ErrDataIntegrity), ShouldBeTrue)
				So(dup.Keys, ShouldResemble, []model.MatchKey{league.Matches[0].Key()})
				So(svc.Ledger().Len(), ShouldEqual, len(league.Matches))

				Convey("And the fresh match alone is still accepted", func() {
					_, err := svc.AddMatches(ctx, batch[1:])
					So(err, ShouldBeNil)
				})
			})

			Convey("Then a rematch on a participant's match day is refused at ingest", func() {
				last := league.Matches[len(league.Matches)-1]
				rematch := last
				rematch.MatchID = "rematch"
				rematch.Home, rematch.Away = last.Away, last.Home
				_, err := svc.AddMatches(ctx, []model.Match{rematch})
				So(errors.Is(err, model.ErrDataIntegrity), ShouldBeTrue)
				var dup *service.DuplicateMatchError
				So(errors.As(err, &dup), ShouldBeFalse)
				So(svc.Ledger().Len(), ShouldEqual, len(league.Matches))

				Convey("And the key stays free for a valid date", func() {
					rematch.Date = last.Date.AddDate(0, 0, 1)
					_, err := svc.AddMatches(ctx, []model.Match{rematch})
					So(err, ShouldBeNil)
				})
			})
		})

		Convey("When a batch repeats a key inside itself", func() {
			_, err := svc.AddMatches(ctx, []model.Match{league.Matches[0], league.Matches[0]})

			Convey("Then it is a data integrity error and nothing is recorded", func() {
				So(errors.Is(err, model.ErrDataIntegrity), ShouldBeTrue)
				var dup *service.DuplicateMatchError
				So(errors.As(err, &dup), ShouldBeFalse)
				_, err = svc.AddMatches(ctx, league.Matches[:1])
				So(err, ShouldBeNil)
			})
		})

		Convey("When a match is malformed", func() {
			bad := league.Matches[0]
			bad.HomeScore = -1
			_, err := svc.AddMatches(ctx, []model.Match{bad})
			So(errors.Is(err, model.ErrDataIntegrity), ShouldBeTrue)
			So(svc.Ledger().Len(), ShouldEqual, 0)
		})
	})
}

func TestServiceTrainAndRead(t *testing.T) {
	league := smallLeague(t)

	Convey("Given a service with a two-season ledger", t, func() {
		ctx := context.Background()
		svc := smallService(service.WithTrialStore(repository.KindSQLite, filepath.Join(t.TempDir(), "trials.db")))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		_, err := svc.AddMatches(ctx, league.Matches)
		So(err, ShouldBeNil)

		Convey("Then reads before training report no model", func() {
			_, err := svc.Model()
			So(errors.Is(err, predict.ErrNoModel), ShouldBeTrue)
			_, err = svc.Ratings(ctx, 3)
			So(errors.Is(err, predict.ErrNoModel), ShouldBeTrue)
			_, err = svc.Predict(ctx, league.Upcoming)
			So(errors.Is(err, predict.ErrNoModel), ShouldBeTrue)
			_, err = svc.Trials(ctx, search.StageRating, 3)
			So(errors.Is(err, service.ErrNoRun), ShouldBeTrue)
		})

		Convey("When it trains", func() {
			fm, err := svc.Train(ctx)
			So(err, ShouldBeNil)

			Convey("Then the model is installed", func() {
				got, err := svc.Model()
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, fm.ID)
				So(fm.Stats, ShouldResemble, []string{"pts", "ast"})
				So(svc.GetStats()["trainings"], ShouldEqual, 1)
				So(svc.GetStats()["modelId"], ShouldEqual, fm.ID)
			})

			Convey("Then the upcoming round is forecast", func() {
				res, err := svc.Predict(ctx, league.Upcoming)
				So(err, ShouldBeNil)
				So(len(res), ShouldEqual, len(league.Upcoming))
				for _, r := range res {
					So(r.Err, ShouldBeNil)
					So(r.Forecast.HomeWinProb, ShouldBeBetween, 0, 1)
				}
			})

			Convey("Then ratings are limited and ranked", func() {
				st, err := svc.Ratings(ctx, 4)
				So(err, ShouldBeNil)
				So(len(st), ShouldEqual, 4)
				for i := 1; i < len(st); i++ {
					So(st[i].Rating, ShouldBeLessThanOrEqualTo, st[i-1].Rating)
				}

				all, err := svc.Ratings(ctx, 0)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 6)
			})

			Convey("Then one participant's rank matches the leaderboard", func() {
				all, _ := svc.Ratings(ctx, 0)
				st, rank, points, err := svc.Rating(ctx, all[2].Participant)
				So(err, ShouldBeNil)
				So(rank, ShouldEqual, 3)
				So(st, ShouldResemble, all[2])
				So(len(points), ShouldEqual, 24)
				So(points[0].Season, ShouldEqual, "2020")
				So(points[23].Season, ShouldEqual, "2021")

				_, _, _, err = svc.Rating(ctx, "nobody")
				So(errors.Is(err, service.ErrUnknownParticipant), ShouldBeTrue)
			})

			Convey("Then both stages' trials are readable from the store", func() {
				rt, err := svc.Trials(ctx, search.StageRating, 10)
				So(err, ShouldBeNil)
				So(len(rt), ShouldEqual, 2)
				So(rt[0].RunID, ShouldEqual, fm.RunID)
				So(rt[0].Loss, ShouldBeLessThanOrEqualTo, rt[1].Loss)

				gt, err := svc.Trials(ctx, search.StageRegressor, 10)
				So(err, ShouldBeNil)
				So(len(gt), ShouldEqual, 3)
			})

			Convey("Then an unknown stage or a bad limit is rejected", func() {
				_, err := svc.Trials(ctx, "bogus", 3)
				So(errors.Is(err, service.ErrUnknownStage), ShouldBeTrue)
				_, err = svc.Trials(ctx, search.StageRating, 0)
				So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
			})

			Convey("Then training again gives a new run with the same winners", func() {
				again, err := svc.Train(ctx)
				So(err, ShouldBeNil)
				So(again.RunID, ShouldNotEqual, fm.RunID)
				So(again.RatingParams, ShouldResemble, fm.RatingParams)
				So(again.RegressorParams, ShouldResemble, fm.RegressorParams)
				So(svc.GetStats()["trainings"], ShouldEqual, 2)
			})
		})

		Convey("When training is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := svc.Train(cctx)

			Convey("Then the error is the cancellation and no model is installed", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				_, err := svc.Model()
				So(errors.Is(err, predict.ErrNoModel), ShouldBeTrue)
			})
		})
	})
}
