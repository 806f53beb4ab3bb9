package search

import (
	"fmt"
	"math/rand"

	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/internal/domain/regressor"
)

// LatinHypercube draws n space-filling candidates: every parameter's range
// is cut into n equal strata and each stratum is used exactly once. The
// same seed yields the same candidates. An empty space yields a single
// empty candidate.
func LatinHypercube(space regressor.Space, n int, seed int64) ([]model.Params, error) {
	if n < 1 {
		return nil, fmt.Errorf("sample size %d must be positive: %w", n, model.ErrConfiguration)
	}
	if err := space.Validate(); err != nil {
		return nil, err
	}
	if len(space) == 0 {
		return []model.Params{{}}, nil
	}

	rng := rand.New(rand.NewSource(seed))
	out := make([]model.Params, n)
	for i := range out {
		out[i] = make(model.Params, len(space))
	}
	for _, name := range space.Names() {
		r := space[name]
		perm := rng.Perm(n)
		for i := range out {
			u := (float64(perm[i]) + rng.Float64()) / float64(n)
			out[i][name] = r.At(u)
		}
	}
	return out, nil
}
