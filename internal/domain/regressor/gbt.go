package regressor

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/okian/spread/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// NameGBT is the gradient-boosted regression tree ensemble.
const NameGBT = "gbt"

// GBT parameter names.
const (
	ParamEstimators     = "n_estimators"
	ParamLearningRate   = "learning_rate"
	ParamMaxDepth       = "max_depth"
	ParamMinSamplesLeaf = "min_samples_leaf"
	ParamSubsample      = "subsample"
)

type gbt struct {
	seed int64
}

// GBTOption configures the boosted tree regressor.
type GBTOption func(*gbt)

// WithSeed fixes the row-subsampling seed.
func WithSeed(seed int64) GBTOption {
	return func(g *gbt) { g.seed = seed }
}

// NewGBT returns a least-squares gradient boosting regressor.
func NewGBT(opts ...GBTOption) Regressor {
	g := &gbt{seed: 1}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *gbt) Name() string { return NameGBT }

func (g *gbt) Space() Space {
	return Space{
		ParamEstimators:     {Min: 20, Max: 300, Integer: true},
		ParamLearningRate:   {Min: 0.01, Max: 0.3, Log: true},
		ParamMaxDepth:       {Min: 1, Max: 6, Integer: true},
		ParamMinSamplesLeaf: {Min: 1, Max: 30, Integer: true},
		ParamSubsample:      {Min: 0.5, Max: 1},
	}
}

type gbtParams struct {
	estimators int
	rate       float64
	depth      int
	minLeaf    int
	subsample  float64
}

func readGBTParams(p model.Params) (gbtParams, error) {
	gp := gbtParams{
		estimators: int(param(p, ParamEstimators, 100)),
		rate:       param(p, ParamLearningRate, 0.1),
		depth:      int(param(p, ParamMaxDepth, 3)),
		minLeaf:    int(param(p, ParamMinSamplesLeaf, 5)),
		subsample:  param(p, ParamSubsample, 1),
	}
	switch {
	case gp.estimators < 1:
		return gp, fmt.Errorf("gbt %s must be at least 1: %w", ParamEstimators, model.ErrConfiguration)
	case !(gp.rate > 0):
		return gp, fmt.Errorf("gbt %s must be positive: %w", ParamLearningRate, model.ErrConfiguration)
	case gp.depth < 1:
		return gp, fmt.Errorf("gbt %s must be at least 1: %w", ParamMaxDepth, model.ErrConfiguration)
	case gp.minLeaf < 1:
		return gp, fmt.Errorf("gbt %s must be at least 1: %w", ParamMinSamplesLeaf, model.ErrConfiguration)
	case !(gp.subsample > 0 && gp.subsample <= 1):
		return gp, fmt.Errorf("gbt %s must be within (0,1]: %w", ParamSubsample, model.ErrConfiguration)
	}
	return gp, nil
}

func (g *gbt) Fit(ctx context.Context, x [][]float64, y []float64, p model.Params) (Model, error) {
	k, err := checkShape(x, y)
	if err != nil {
		return nil, err
	}
	gp, err := readGBTParams(p)
	if err != nil {
		return nil, err
	}

	n := len(x)
	rng := rand.New(rand.NewSource(g.seed))
	ens := &ensemble{base: stat.Mean(y, nil), rate: gp.rate, width: k}
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = ens.base
	}
	resid := make([]float64, n)
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	size := int(math.Max(1, math.Round(gp.subsample*float64(n))))
	b := treeBuilder{x: x, resid: resid, k: k, maxDepth: gp.depth, minLeaf: gp.minLeaf}

	for m := 0; m < gp.estimators; m++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range resid {
			resid[i] = y[i] - pred[i]
		}
		rows := all
		if size < n {
			rng.Shuffle(n, func(i, j int) { all[i], all[j] = all[j], all[i] })
			rows = append([]int(nil), all[:size]...)
		}
		t := b.build(rows, 0)
		ens.trees = append(ens.trees, t)
		for i, row := range x {
			pred[i] += gp.rate * t.eval(row)
		}
	}
	return ens, nil
}

type ensemble struct {
	base  float64
	rate  float64
	width int
	trees []*node
}

func (e *ensemble) Predict(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		if len(row) != e.width {
			return nil, fmt.Errorf("row has %d columns, model has %d: %w", len(row), e.width, ErrShape)
		}
		v := e.base
		for _, t := range e.trees {
			v += e.rate * t.eval(row)
		}
		out[i] = v
	}
	return out, nil
}

// node is a regression tree node; leaves have left == nil.
type node struct {
	feature   int
	threshold float64
	value     float64
	left      *node
	right     *node
}

func (n *node) eval(row []float64) float64 {
	for n.left != nil {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

type treeBuilder struct {
	x        [][]float64
	resid    []float64
	k        int
	maxDepth int
	minLeaf  int
}

func (b *treeBuilder) leaf(rows []int) *node {
	sum := 0.0
	for _, r := range rows {
		sum += b.resid[r]
	}
	return &node{value: sum / float64(len(rows))}
}

// build grows a tree by exhaustive squared-error splits.
func (b *treeBuilder) build(rows []int, depth int) *node {
	if depth >= b.maxDepth || len(rows) < 2*b.minLeaf {
		return b.leaf(rows)
	}

	total := 0.0
	for _, r := range rows {
		total += b.resid[r]
	}
	n := float64(len(rows))
	bestGain, bestFeature, bestThreshold := 0.0, -1, 0.0

	sorted := append([]int(nil), rows...)
	for f := 0; f < b.k; f++ {
		sort.SliceStable(sorted, func(i, j int) bool { return b.x[sorted[i]][f] < b.x[sorted[j]][f] })
		left := 0.0
		for i := 0; i < len(sorted)-1; i++ {
			left += b.resid[sorted[i]]
			nl := float64(i + 1)
			if i+1 < b.minLeaf || len(sorted)-i-1 < b.minLeaf {
				continue
			}
			lo, hi := b.x[sorted[i]][f], b.x[sorted[i+1]][f]
			if lo == hi {
				continue
			}
			right := total - left
			gain := left*left/nl + right*right/(n-nl) - total*total/n
			if gain > bestGain+1e-12 {
				bestGain, bestFeature, bestThreshold = gain, f, (lo+hi)/2
			}
		}
	}
	if bestFeature < 0 {
		return b.leaf(rows)
	}

	var l, r []int
	for _, row := range rows {
		if b.x[row][bestFeature] <= bestThreshold {
			l = append(l, row)
		} else {
			r = append(r, row)
		}
	}
	return &node{
		feature:   bestFeature,
		threshold: bestThreshold,
		left:      b.build(l, depth+1),
		right:     b.build(r, depth+1),
	}
}
