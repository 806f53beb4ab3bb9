package search

import (
	"context"
	"time"

	"github.com/okian/spread/internal/adapters/mq/queue"
	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/internal/domain/rating"
	"github.com/okian/spread/internal/domain/regressor"
)

// ratingEvaluator replays the ledger for one grid point. Each call owns its
// replay state, so workers share only the read-only matches.
type ratingEvaluator struct {
	matches []model.Match
}

func (e *ratingEvaluator) Evaluate(ctx context.Context, t queue.Task) model.Trial {
	tr := model.Trial{RunID: t.RunID, Stage: t.Stage, Seq: t.Seq, Params: t.Params}
	res, err := rating.Replay(ctx, e.matches, rating.FromModel(t.Params))
	tr.RecordedAt = time.Now()
	if err != nil {
		tr.Err = err.Error()
		return tr
	}
	tr.Score = res.Accuracy()
	tr.Loss = 1 - tr.Score
	return tr
}

// regressorEvaluator cross-validates one hyperparameter sample.
type regressorEvaluator struct {
	reg       regressor.Regressor
	x         [][]float64
	y         []float64
	folds     []Fold
	foldLimit int
}

func (e *regressorEvaluator) Evaluate(ctx context.Context, t queue.Task) model.Trial {
	tr := model.Trial{RunID: t.RunID, Stage: t.Stage, Seq: t.Seq, Params: t.Params}
	cv, err := CrossValidate(ctx, e.reg, e.x, e.y, e.folds, t.Params, e.foldLimit)
	tr.RecordedAt = time.Now()
	if err != nil {
		tr.Err = err.Error()
		return tr
	}
	tr.Loss = cv.Mean
	tr.Score = cv.Mean
	return tr
}
