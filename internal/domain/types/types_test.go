package types_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMatchConversion(t *testing.T) {
	Convey("Given a domain match", t, func() {
		m := model.Match{
			Season: "2024", MatchID: "g1", Date: time.Date(2024, 11, 3, 0, 0, 0, 0, time.UTC),
			Home: "BOS", Away: "NYK", HomeScore: 110, AwayScore: 99,
			HomeStats: map[string]float64{"pts": 110},
			AwayStats: map[string]float64{"pts": 99},
		}

		Convey("Then it survives the request shape unchanged", func() {
			So(types.FromMatch(m).Model(), ShouldResemble, m)
		})

		Convey("Then the JSON uses snake case keys", func() {
			b, err := json.Marshal(types.FromMatch(m))
			So(err, ShouldBeNil)
			So(string(b), ShouldContainSubstring, `"match_id":"g1"`)
			So(string(b), ShouldContainSubstring, `"home_score":110`)
		})
	})
}

func TestForecastShape(t *testing.T) {
	Convey("Given a forecast that failed", t, func() {
		f := types.Forecast{
			Entry:       types.FromEntry(model.ScheduleEntry{Season: "2024", MatchID: "f1", Home: "BOS", Away: "SEA"}),
			Error:       "missing_prior_data",
			Participant: "SEA",
		}

		Convey("Then numeric fields are omitted rather than zero", func() {
			b, err := json.Marshal(f)
			So(err, ShouldBeNil)
			So(string(b), ShouldNotContainSubstring, "margin")
			So(string(b), ShouldContainSubstring, `"error":"missing_prior_data"`)
			So(string(b), ShouldContainSubstring, `"home":"BOS"`)
		})
	})
}
