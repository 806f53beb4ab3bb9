package rating

import (
	"fmt"
	"math"

	"github.com/okian/spread/internal/domain/model"
)

// Baseline is the rating of every participant before its first match.
const Baseline = 1500.0

// Scale is the rating difference at which the favourite's expected score
// is ten times the underdog's.
const Scale = 400.0

// Parameter names used in search trials.
const (
	ParamUpdateRate       = "update_rate"
	ParamHomeAdvantage    = "home_advantage"
	ParamSeasonRegression = "season_regression"
)

// Params tune the rating engine.
type Params struct {
	UpdateRate       float64
	HomeAdvantage    float64
	SeasonRegression float64
}

// Validate rejects parameters outside their domain.
func (p Params) Validate() error {
	switch {
	case !(p.UpdateRate > 0) || math.IsInf(p.UpdateRate, 0):
		return fmt.Errorf("update rate %g must be positive: %w", p.UpdateRate, model.ErrConfiguration)
	case p.HomeAdvantage < 0 || math.IsNaN(p.HomeAdvantage) || math.IsInf(p.HomeAdvantage, 0):
		return fmt.Errorf("home advantage %g must be non-negative: %w", p.HomeAdvantage, model.ErrConfiguration)
	case !(p.SeasonRegression >= 0 && p.SeasonRegression <= 1):
		return fmt.Errorf("season regression %g must be within [0,1]: %w", p.SeasonRegression, model.ErrConfiguration)
	}
	return nil
}

// Model returns the params keyed by name.
func (p Params) Model() model.Params {
	return model.Params{
		ParamUpdateRate:       p.UpdateRate,
		ParamHomeAdvantage:    p.HomeAdvantage,
		ParamSeasonRegression: p.SeasonRegression,
	}
}

// FromModel reads params keyed by name.
func FromModel(mp model.Params) Params {
	return Params{
		UpdateRate:       mp[ParamUpdateRate],
		HomeAdvantage:    mp[ParamHomeAdvantage],
		SeasonRegression: mp[ParamSeasonRegression],
	}
}

// Expected is the probability that home beats away.
func Expected(home, away, homeAdvantage float64) float64 {
	d := home + homeAdvantage - away
	return 1 / (1 + math.Pow(10, -d/Scale))
}

// Regress pulls r toward Baseline by fraction.
func Regress(r, fraction float64) float64 {
	return r + fraction*(Baseline-r)
}
