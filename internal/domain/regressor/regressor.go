// Package regressor provides the trainable models the search drives.
//
// A Regressor declares a hyperparameter Space and fits a Model from a design
// matrix. Callers never look inside a Model; they only ask it to Predict.
package regressor

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/okian/spread/internal/domain/model"
)

// Model is a fitted regressor.
type Model interface {
	Predict(x [][]float64) ([]float64, error)
}

// Regressor fits models from a design matrix.
type Regressor interface {
	Name() string
	Space() Space
	Fit(ctx context.Context, x [][]float64, y []float64, p model.Params) (Model, error)
}

// Range declares the search interval of one hyperparameter. Log ranges are
// sampled uniformly in log space; Integer ranges yield whole numbers.
type Range struct {
	Min     float64 `koanf:"min" json:"min"`
	Max     float64 `koanf:"max" json:"max"`
	Log     bool    `koanf:"log" json:"log"`
	Integer bool    `koanf:"integer" json:"integer"`
}

// Validate rejects empty, inverted or non-finite ranges.
func (r Range) Validate() error {
	switch {
	case math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0):
		return fmt.Errorf("range [%g,%g] is not finite: %w", r.Min, r.Max, model.ErrConfiguration)
	case r.Min > r.Max:
		return fmt.Errorf("range min %g exceeds max %g: %w", r.Min, r.Max, model.ErrConfiguration)
	case r.Log && r.Min <= 0:
		return fmt.Errorf("log range needs a positive min, got %g: %w", r.Min, model.ErrConfiguration)
	}
	return nil
}

// At maps u in [0,1) onto the range.
func (r Range) At(u float64) float64 {
	lo, hi := r.Min, r.Max
	if r.Integer {
		hi++
	}
	var v float64
	if r.Log {
		v = math.Exp(math.Log(lo) + u*(math.Log(hi)-math.Log(lo)))
	} else {
		v = lo + u*(hi-lo)
	}
	if r.Integer {
		v = math.Min(math.Floor(v), r.Max)
	}
	return v
}

// Space maps parameter names to their ranges.
type Space map[string]Range

// Names returns the parameter names in sorted order.
func (s Space) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Validate checks every range.
func (s Space) Validate() error {
	for _, name := range s.Names() {
		if err := s[name].Validate(); err != nil {
			return fmt.Errorf("param %s: %w", name, err)
		}
	}
	return nil
}

// Merge returns s with ranges from o replacing those of the same name.
// Names unknown to s are rejected.
func (s Space) Merge(o map[string]Range) (Space, error) {
	out := make(Space, len(s))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range o {
		if _, ok := s[k]; !ok {
			return nil, fmt.Errorf("param %s is not tunable: %w", k, model.ErrConfiguration)
		}
		out[k] = v
	}
	return out, out.Validate()
}

// checkShape validates a design matrix and returns its width.
func checkShape(x [][]float64, y []float64) (int, error) {
	if len(x) == 0 {
		return 0, fmt.Errorf("empty design matrix: %w", ErrShape)
	}
	if y != nil && len(x) != len(y) {
		return 0, fmt.Errorf("%d rows but %d targets: %w", len(x), len(y), ErrShape)
	}
	k := len(x[0])
	for i, row := range x {
		if len(row) != k {
			return 0, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), k, ErrShape)
		}
	}
	return k, nil
}

func param(p model.Params, name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}
