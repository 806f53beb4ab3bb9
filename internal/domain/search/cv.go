package search

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/internal/domain/regressor"
	"github.com/okian/spread/pkg/metrics"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CVResult is a candidate's cross-validated error.
type CVResult struct {
	FoldRMSE []float64
	Mean     float64
}

// RMSE is the root mean squared difference of pred and actual.
func RMSE(pred, actual []float64) float64 {
	if len(actual) == 0 {
		return math.NaN()
	}
	return floats.Distance(pred, actual, 2) / math.Sqrt(float64(len(actual)))
}

func rows(x [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for i, j := range idx {
		xs[i] = x[j]
		ys[i] = y[j]
	}
	return xs, ys
}

// CrossValidate fits reg once per fold and scores the held-out rows. Folds
// run concurrently, at most limit at a time; a non-positive limit runs
// every fold at once.
func CrossValidate(ctx context.Context, reg regressor.Regressor, x [][]float64, y []float64,
	folds []Fold, p model.Params, limit int,
) (CVResult, error) {
	res := CVResult{FoldRMSE: make([]float64, len(folds))}
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, f := range folds {
		g.Go(func() error {
			start := time.Now()
			defer func() { metrics.RecordFoldLatency(float64(time.Since(start).Microseconds()) / 1000) }()

			tx, ty := rows(x, y, f.Train)
			m, err := reg.Fit(gctx, tx, ty, p)
			if err != nil {
				return fmt.Errorf("fold %d: %w", i, err)
			}
			vx, vy := rows(x, y, f.Test)
			pred, err := m.Predict(vx)
			if err != nil {
				return fmt.Errorf("fold %d: %w", i, err)
			}
			r := RMSE(pred, vy)
			if math.IsNaN(r) || math.IsInf(r, 0) {
				return fmt.Errorf("fold %d: non-finite error: %w", i, regressor.ErrFit)
			}
			res.FoldRMSE[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CVResult{}, err
	}
	res.Mean = stat.Mean(res.FoldRMSE, nil)
	return res, nil
}
