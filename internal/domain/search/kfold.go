package search

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/okian/spread/internal/domain/model"
)

// Fold is one train/test split by row index.
type Fold struct {
	Train []int
	Test  []int
}

// KFold partitions n rows into k disjoint test folds whose sizes differ by
// at most one. Without shuffle the folds are contiguous blocks in row order.
func KFold(n, k int, shuffle bool, seed int64) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("%w: k=%d must be at least 2: %w", ErrFolds, k, model.ErrConfiguration)
	}
	if n < k {
		return nil, fmt.Errorf("%w: %d rows cannot fill %d folds: %w", ErrFolds, n, k, model.ErrInsufficientHistory)
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if shuffle {
		rand.New(rand.NewSource(seed)).Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	}

	folds := make([]Fold, k)
	start := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		test := append([]int(nil), idx[start:start+size]...)
		train := make([]int, 0, n-size)
		train = append(train, idx[:start]...)
		train = append(train, idx[start+size:]...)
		sort.Ints(test)
		sort.Ints(train)
		folds[f] = Fold{Train: train, Test: test}
		start += size
	}
	return folds, nil
}
