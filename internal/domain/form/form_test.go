package form_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/spread/internal/domain/form"
	"github.com/okian/spread/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// series builds n matches for A at home against B with A's "pts" equal to
// the values given and B's "pts" fixed at 50.
func series(season string, start int, pts ...float64) []model.Match {
	out := make([]model.Match, 0, len(pts))
	for i, v := range pts {
		out = append(out, model.Match{
			Season: season, MatchID: fmt.Sprintf("%s-%d", season, i),
			Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, start+i),
			Home: "A", Away: "B", HomeScore: 1,
			HomeStats: map[string]float64{"pts": v, "reb": 2 * v},
			AwayStats: map[string]float64{"pts": 50, "reb": 30},
		})
	}
	return out
}

func TestCompute(t *testing.T) {
	ctx := context.Background()

	Convey("Given A's first six matches", t, func() {
		matches := series("s1", 0, 10, 20, 30, 40, 50, 60)

		Convey("When computing a window of five", func() {
			tbl, err := form.Compute(ctx, matches, 5, []string{"pts", "reb"})
			So(err, ShouldBeNil)

			Convey("Then there is no snapshot before the fifth match", func() {
				for seq := 0; seq < 4; seq++ {
					_, ok := tbl.At("A", seq)
					So(ok, ShouldBeFalse)
				}
			})

			Convey("And the fifth match averages matches one to five", func() {
				s, ok := tbl.At("A", 4)
				So(ok, ShouldBeTrue)
				So(s.Means[0], ShouldAlmostEqual, 30.0, 1e-9)
			})

			Convey("And the sixth averages matches two to six", func() {
				s, ok := tbl.At("A", 5)
				So(ok, ShouldBeTrue)
				So(s.Means[0], ShouldAlmostEqual, 40.0, 1e-9)
				So(s.Means[1], ShouldAlmostEqual, 80.0, 1e-9)

				latest, ok := tbl.Latest("A")
				So(ok, ShouldBeTrue)
				So(latest.Seq, ShouldEqual, 5)
			})

			Convey("And the opponent gets its own snapshots", func() {
				s, ok := tbl.At("B", 5)
				So(ok, ShouldBeTrue)
				So(s.Means, ShouldResemble, []float64{50, 30})
				So(tbl.Stats(), ShouldResemble, []string{"pts", "reb"})
				So(tbl.Window(), ShouldEqual, 5)
			})
		})
	})

	Convey("Given a season boundary", t, func() {
		matches := append(series("s1", 0, 10, 20), series("s2", 100, 30, 40)...)

		Convey("When computing a window of two", func() {
			tbl, err := form.Compute(ctx, matches, 2, []string{"pts"})
			So(err, ShouldBeNil)

			Convey("Then the first match of the new season has no snapshot", func() {
				_, ok := tbl.At("A", 2)
				So(ok, ShouldBeFalse)
				_, ok = tbl.Latest("A")
				So(ok, ShouldBeTrue)
			})

			Convey("And the window restarts inside the new season", func() {
				s, ok := tbl.At("A", 3)
				So(ok, ShouldBeTrue)
				So(s.Means[0], ShouldAlmostEqual, 35.0, 1e-9)
				So(s.Season, ShouldEqual, "s2")
			})
		})

		Convey("When only one match of the new season was played", func() {
			tbl, err := form.Compute(ctx, matches[:3], 2, []string{"pts"})
			So(err, ShouldBeNil)

			Convey("Then the latest snapshot is missing", func() {
				_, ok := tbl.Latest("A")
				So(ok, ShouldBeFalse)
			})
		})
	})

	Convey("Given bad input", t, func() {
		matches := series("s1", 0, 10, 20)

		Convey("When the window is zero", func() {
			_, err := form.Compute(ctx, matches, 0, []string{"pts"})
			So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
		})

		Convey("When no stat is tracked", func() {
			_, err := form.Compute(ctx, matches, 2, nil)
			So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
		})

		Convey("When a stat repeats", func() {
			_, err := form.Compute(ctx, matches, 2, []string{"pts", "pts"})
			So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
		})

		Convey("When a box score lacks a tracked stat", func() {
			_, err := form.Compute(ctx, matches, 2, []string{"ast"})
			So(errors.Is(err, model.ErrDataIntegrity), ShouldBeTrue)
		})
	})
}
