package leaguesim_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/spread/internal/adapters/http/api"
	service "github.com/okian/spread/internal/app"
	"github.com/okian/spread/internal/domain/ledger"
	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/internal/domain/regressor"
	"github.com/okian/spread/internal/domain/search"
	"github.com/okian/spread/internal/leaguesim"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerate(t *testing.T) {
	Convey("Given a league configuration", t, func() {
		cfg := leaguesim.DefaultLeague()
		cfg.Teams = 7
		cfg.Rounds = 10

		l, err := leaguesim.Generate(cfg)
		So(err, ShouldBeNil)

		Convey("Then an odd team count is rounded up", func() {
			So(len(l.Strength), ShouldEqual, 8)
			So(l.Teams(), ShouldResemble, []string{"T01", "T02", "T03", "T04", "T05", "T06", "T07", "T08"})
		})

		Convey("Then every team plays once per round", func() {
			So(len(l.Matches), ShouldEqual, cfg.Seasons*cfg.Rounds*4)
			perDay := map[time.Time]map[string]int{}
			for _, m := range l.Matches {
				if perDay[m.Date] == nil {
					perDay[m.Date] = map[string]int{}
				}
				perDay[m.Date][m.Home]++
				perDay[m.Date][m.Away]++
			}
			So(len(perDay), ShouldEqual, cfg.Seasons*cfg.Rounds)
			for _, teams := range perDay {
				So(len(teams), ShouldEqual, 8)
				for _, n := range teams {
					So(n, ShouldEqual, 1)
				}
			}
		})

		Convey("Then the matches form a valid ledger in canonical order", func() {
			led, err := ledger.New(context.Background(), l.Matches)
			So(err, ShouldBeNil)
			for i, m := range led.Matches() {
				So(m.Key(), ShouldResemble, l.Matches[i].Key())
			}
		})

		Convey("Then box scores carry every stat and scores agree with points", func() {
			for _, m := range l.Matches[:20] {
				So(m.HomeScore, ShouldNotEqual, m.AwayScore)
				So(m.HomeStats["pts"], ShouldEqual, float64(m.HomeScore))
				So(m.AwayStats["pts"], ShouldEqual, float64(m.AwayScore))
				for _, s := range []string{"reb", "ast", "tov"} {
					So(m.HomeStats, ShouldContainKey, s)
				}
			}
		})

		Convey("Then upcoming rounds follow the last season without overlap", func() {
			So(len(l.Upcoming), ShouldEqual, cfg.Upcoming*4)
			last := l.Matches[len(l.Matches)-1]
			for _, e := range l.Upcoming {
				So(e.Season, ShouldEqual, last.Season)
				So(e.Date.After(last.Date), ShouldBeTrue)
			}
		})

		Convey("Then the same seed gives the same league", func() {
			again, err := leaguesim.Generate(cfg)
			So(err, ShouldBeNil)
			So(again.Matches, ShouldResemble, l.Matches)
			So(again.Strength, ShouldResemble, l.Strength)
		})

		Convey("Then a different seed gives different strengths", func() {
			cfg.Seed++
			other, err := leaguesim.Generate(cfg)
			So(err, ShouldBeNil)
			So(other.Strength, ShouldNotResemble, l.Strength)
		})
	})

	Convey("Given a degenerate configuration", t, func() {
		_, err := leaguesim.Generate(leaguesim.LeagueConfig{Teams: 1, Seasons: 1, Rounds: 1})
		So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
	})
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := service.New(
		service.WithWorkerCount(2),
		service.WithFolds(3, false),
		service.WithSamples(3),
		service.WithPlan(search.Plan{
			Grid: search.RatingGrid{
				UpdateRates:       []float64{10, 30},
				HomeAdvantages:    []float64{60},
				SeasonRegressions: []float64{0.3},
			},
			FormWindow: 3,
			Stats:      []string{"pts", "reb", "ast", "tov"},
			Regressor:  regressor.NameRidge,
		}),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc, 100).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		svc.Stop()
	})
	return srv
}

func TestRun(t *testing.T) {
	Convey("Given a running service", t, func() {
		srv := newTestServer(t)
		out := filepath.Join(t.TempDir(), "out", "league.json")
		league := leaguesim.LeagueConfig{
			Teams: 8, Seasons: 2, Rounds: 14, Upcoming: 1,
			HomeEdge: 3, Spread: 8, Noise: 6, Seed: 4,
		}
		cfg := &leaguesim.Config{
			BaseURL:    srv.URL,
			League:     league,
			BatchSize:  17,
			Workers:    3,
			Timeout:    10 * time.Second,
			TrainWait:  time.Minute,
			TopN:       50,
			OutputFile: out,
		}

		Convey("When the simulation runs", func() {
			stats, err := leaguesim.Run(context.Background(), cfg)

			Convey("Then every match is accepted and every fixture forecast", func() {
				So(err, ShouldBeNil)
				So(stats.MatchesGenerated, ShouldEqual, 2*14*4)
				So(stats.MatchesAccepted, ShouldEqual, stats.MatchesGenerated)
				So(stats.MatchesFailed, ShouldEqual, 0)
				So(stats.EntriesPredicted, ShouldEqual, 4)
				So(stats.RatingsRetrieved, ShouldEqual, 8)
				So(stats.StrengthCorr, ShouldBeGreaterThan, 0)
			})

			Convey("Then the league is saved", func() {
				info, err := os.Stat(out)
				So(err, ShouldBeNil)
				So(info.Size(), ShouldBeGreaterThan, 0)
			})

			Convey("And a second run finds every match already ingested", func() {
				_, err := leaguesim.Run(context.Background(), cfg)
				So(err, ShouldBeNil)
			})
		})
	})

	Convey("Given no service", t, func() {
		cfg := &leaguesim.Config{BaseURL: "http://127.0.0.1:1", League: leaguesim.DefaultLeague(), Timeout: time.Second}
		_, err := leaguesim.Run(context.Background(), cfg)
		So(err, ShouldNotBeNil)
	})
}

func TestHTTPClientErrors(t *testing.T) {
	Convey("Given a server that always conflicts", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"code":"no_model"}`, http.StatusConflict)
		}))
		defer srv.Close()
		c := leaguesim.NewHTTPClient(srv.URL, time.Second)

		Convey("Then calls return a StatusError with the body", func() {
			_, err := c.Train(context.Background())
			var se *leaguesim.StatusError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.Status, ShouldEqual, http.StatusConflict)
			So(se.Path, ShouldEqual, "/train")
			So(se.Body, ShouldContainSubstring, "no_model")
		})
	})
}
