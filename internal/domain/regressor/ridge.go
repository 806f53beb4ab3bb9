package regressor

import (
	"context"
	"fmt"

	"github.com/okian/spread/internal/domain/model"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// NameRidge is the L2-regularized linear regressor.
const NameRidge = "ridge"

// ParamAlpha is the ridge penalty.
const ParamAlpha = "alpha"

type ridge struct{}

// NewRidge returns a ridge regressor fit on standardized columns.
func NewRidge() Regressor { return ridge{} }

func (ridge) Name() string { return NameRidge }

func (ridge) Space() Space {
	return Space{ParamAlpha: {Min: 1e-3, Max: 1e3, Log: true}}
}

func (ridge) Fit(ctx context.Context, x [][]float64, y []float64, p model.Params) (Model, error) {
	k, err := checkShape(x, y)
	if err != nil {
		return nil, err
	}
	alpha := param(p, ParamAlpha, 1)
	if alpha < 0 {
		return nil, fmt.Errorf("ridge alpha %g is negative: %w", alpha, model.ErrConfiguration)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := len(x)
	sc := fitScaler(x, k)
	z := mat.NewDense(n, k, nil)
	row := make([]float64, k)
	for i, r := range x {
		sc.apply(r, row)
		z.SetRow(i, row)
	}
	yMean := stat.Mean(y, nil)
	yc := mat.NewVecDense(n, nil)
	for i, v := range y {
		yc.SetVec(i, v-yMean)
	}

	a := mat.NewSymDense(k, nil)
	a.SymOuterK(1, z.T())
	for j := 0; j < k; j++ {
		a.SetSym(j, j, a.At(j, j)+alpha)
	}
	b := mat.NewVecDense(k, nil)
	b.MulVec(z.T(), yc)

	var ch mat.Cholesky
	if ok := ch.Factorize(a); !ok {
		return nil, fmt.Errorf("ridge normal equations are not positive definite (alpha=%g): %w", alpha, ErrFit)
	}
	var beta mat.VecDense
	if err := ch.SolveVecTo(&beta, b); err != nil {
		return nil, fmt.Errorf("ridge solve: %v: %w", err, ErrFit)
	}

	return &linear{scale: sc, coef: mat.Col(nil, 0, &beta), intercept: yMean}, nil
}

type linear struct {
	scale     scaler
	coef      []float64
	intercept float64
}

func (l *linear) Predict(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out, nil
	}
	if _, err := checkShape(x, nil); err != nil {
		return nil, err
	}
	row := make([]float64, len(l.coef))
	for i, r := range x {
		if len(r) != len(l.coef) {
			return nil, fmt.Errorf("row has %d columns, model has %d: %w", len(r), len(l.coef), ErrShape)
		}
		l.scale.apply(r, row)
		v := l.intercept
		for j, c := range l.coef {
			v += c * row[j]
		}
		out[i] = v
	}
	return out, nil
}
