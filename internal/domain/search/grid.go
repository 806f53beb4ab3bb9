package search

import (
	"fmt"

	"github.com/okian/spread/internal/domain/rating"
)

// RatingGrid lists the values tried for each rating parameter.
type RatingGrid struct {
	UpdateRates       []float64 `koanf:"update_rates" json:"update_rates"`
	HomeAdvantages    []float64 `koanf:"home_advantages" json:"home_advantages"`
	SeasonRegressions []float64 `koanf:"season_regressions" json:"season_regressions"`
}

// DefaultGrid is a coarse grid around common basketball settings.
func DefaultGrid() RatingGrid {
	return RatingGrid{
		UpdateRates:       []float64{10, 20, 30},
		HomeAdvantages:    []float64{0, 50, 100},
		SeasonRegressions: []float64{0, 0.25, 0.5},
	}
}

// Size is the number of grid points.
func (g RatingGrid) Size() int {
	return len(g.UpdateRates) * len(g.HomeAdvantages) * len(g.SeasonRegressions)
}

// Candidates expands the Cartesian product in update rate, home advantage,
// season regression order. Every point is validated.
func (g RatingGrid) Candidates() ([]rating.Params, error) {
	if g.Size() == 0 {
		return nil, ErrEmptyGrid
	}
	out := make([]rating.Params, 0, g.Size())
	for _, k := range g.UpdateRates {
		for _, h := range g.HomeAdvantages {
			for _, r := range g.SeasonRegressions {
				p := rating.Params{UpdateRate: k, HomeAdvantage: h, SeasonRegression: r}
				if err := p.Validate(); err != nil {
					return nil, fmt.Errorf("grid point %d: %w", len(out), err)
				}
				out = append(out, p)
			}
		}
	}
	return out, nil
}
