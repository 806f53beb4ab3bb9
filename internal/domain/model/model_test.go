package model_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	model "github.com/okian/spread/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestMatch(t *testing.T) {
	convey.Convey("Given a Match", t, func() {
		m := model.Match{
			Season:    "2023",
			MatchID:   "g1",
			Date:      time.Date(2023, 10, 24, 0, 0, 0, 0, time.UTC),
			Home:      "BOS",
			Away:      "NYK",
			HomeScore: 108,
			AwayScore: 104,
			HomeStats: map[string]float64{"reb": 44},
			AwayStats: map[string]float64{"reb": 39},
		}

		convey.Convey("Then margin and winner follow the home perspective", func() {
			convey.So(m.Margin(), convey.ShouldEqual, 4.0)
			convey.So(m.HomeWon(), convey.ShouldBeTrue)
			convey.So(m.Key().String(), convey.ShouldEqual, "2023/g1")
		})

		convey.Convey("When the scores are level", func() {
			m.AwayScore = m.HomeScore

			convey.Convey("Then the home side is not a winner", func() {
				convey.So(m.HomeWon(), convey.ShouldBeFalse)
				convey.So(m.Margin(), convey.ShouldEqual, 0.0)
			})
		})

		convey.Convey("When resolving a side", func() {
			stats, opp, ok := m.Side("NYK")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(opp, convey.ShouldEqual, "BOS")
			convey.So(stats["reb"], convey.ShouldEqual, 39.0)

			_, _, ok = m.Side("LAL")
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("When converting to a schedule entry", func() {
			e := m.Entry()
			convey.So(e.Key(), convey.ShouldResemble, m.Key())
			convey.So(e.Home, convey.ShouldEqual, "BOS")
			convey.So(e.Date, convey.ShouldEqual, m.Date)
		})
	})
}

func TestTrialOrdering(t *testing.T) {
	convey.Convey("Given trials", t, func() {
		a := model.Trial{Seq: 0, Loss: 0.3}
		b := model.Trial{Seq: 1, Loss: 0.2}
		c := model.Trial{Seq: 2, Loss: 0.2}
		failed := model.Trial{Seq: 3, Err: "fit failed"}

		convey.Convey("Then lower loss wins", func() {
			convey.So(b.Less(a), convey.ShouldBeTrue)
			convey.So(a.Less(b), convey.ShouldBeFalse)
		})

		convey.Convey("And ties go to the earlier candidate", func() {
			convey.So(b.Less(c), convey.ShouldBeTrue)
			convey.So(c.Less(b), convey.ShouldBeFalse)
		})

		convey.Convey("And failed trials sort last", func() {
			convey.So(a.Less(failed), convey.ShouldBeTrue)
			convey.So(failed.Less(a), convey.ShouldBeFalse)
		})
	})
}

func TestParams(t *testing.T) {
	convey.Convey("Given params", t, func() {
		p := model.Params{"max_depth": 3, "learning_rate": 0.1}

		convey.Convey("Then String is stable and name ordered", func() {
			convey.So(p.String(), convey.ShouldEqual, "learning_rate=0.1,max_depth=3")
		})

		convey.Convey("And Clone is independent", func() {
			c := p.Clone()
			c["max_depth"] = 9
			convey.So(p["max_depth"], convey.ShouldEqual, 3.0)
		})
	})
}

func TestErrorKinds(t *testing.T) {
	convey.Convey("Given a wrapped error kind", t, func() {
		err := fmt.Errorf("ledger: duplicate match 2023/g1: %w", model.ErrDataIntegrity)

		convey.Convey("Then errors.Is matches only its kind", func() {
			convey.So(errors.Is(err, model.ErrDataIntegrity), convey.ShouldBeTrue)
			convey.So(errors.Is(err, model.ErrConfiguration), convey.ShouldBeFalse)
		})
	})
}
