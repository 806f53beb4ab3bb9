package regressor

import (
	"context"

	"github.com/okian/spread/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// NameMean is the constant baseline regressor.
const NameMean = "mean"

type meanRegressor struct{}

// NewMean returns a regressor that always predicts the training mean.
func NewMean() Regressor { return meanRegressor{} }

func (meanRegressor) Name() string { return NameMean }
func (meanRegressor) Space() Space { return Space{} }

func (meanRegressor) Fit(_ context.Context, x [][]float64, y []float64, _ model.Params) (Model, error) {
	if _, err := checkShape(x, y); err != nil {
		return nil, err
	}
	return constant(stat.Mean(y, nil)), nil
}

type constant float64

func (c constant) Predict(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i := range out {
		out[i] = float64(c)
	}
	return out, nil
}
