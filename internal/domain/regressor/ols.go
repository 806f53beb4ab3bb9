package regressor

import (
	"context"
	"fmt"

	"github.com/okian/spread/internal/domain/model"
	"github.com/sajari/regression"
)

// NameOLS is ordinary least squares.
const NameOLS = "ols"

const collinearTolerance = 1e-8

type ols struct{}

// NewOLS returns an ordinary least squares regressor. Constant and exactly
// collinear columns (such as home-away differences) are dropped before the fit.
func NewOLS() Regressor { return ols{} }

func (ols) Name() string { return NameOLS }
func (ols) Space() Space { return Space{} }

func (ols) Fit(ctx context.Context, x [][]float64, y []float64, _ model.Params) (Model, error) {
	k, err := checkShape(x, y)
	if err != nil {
		return nil, err
	}
	keep := independentColumns(x, k, collinearTolerance)
	if len(x) <= len(keep)+1 {
		return nil, fmt.Errorf("ols needs more than %d rows, got %d: %w", len(keep)+1, len(x), ErrFit)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := new(regression.Regression)
	r.SetObserved("margin")
	for i, j := range keep {
		r.SetVar(i, fmt.Sprintf("x%d", j))
	}
	for i, row := range x {
		r.Train(regression.DataPoint(y[i], pick(row, keep)))
	}
	if err := r.Run(); err != nil {
		return nil, fmt.Errorf("ols: %v: %w", err, ErrFit)
	}
	return &olsModel{r: r, keep: keep, width: k}, nil
}

type olsModel struct {
	r     *regression.Regression
	keep  []int
	width int
}

func (m *olsModel) Predict(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		if len(row) != m.width {
			return nil, fmt.Errorf("row has %d columns, model has %d: %w", len(row), m.width, ErrShape)
		}
		v, err := m.r.Predict(pick(row, m.keep))
		if err != nil {
			return nil, fmt.Errorf("ols predict: %w", err)
		}
		out[i] = v
	}
	return out, nil
}

func pick(row []float64, cols []int) []float64 {
	out := make([]float64, len(cols))
	for i, j := range cols {
		out[i] = row[j]
	}
	return out
}
