package regressor

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// scaler standardizes columns with training means and deviations.
type scaler struct {
	mean []float64
	std  []float64
}

func fitScaler(x [][]float64, k int) scaler {
	s := scaler{mean: make([]float64, k), std: make([]float64, k)}
	col := make([]float64, len(x))
	for j := 0; j < k; j++ {
		for i, row := range x {
			col[i] = row[j]
		}
		m, sd := stat.MeanStdDev(col, nil)
		if math.IsNaN(sd) || sd == 0 {
			sd = 1
		}
		s.mean[j], s.std[j] = m, sd
	}
	return s
}

func (s scaler) apply(row, dst []float64) {
	for j, v := range row {
		dst[j] = (v - s.mean[j]) / s.std[j]
	}
}

// independentColumns picks a maximal set of linearly independent, non-constant
// columns by Gram-Schmidt over the centered columns. Columns are kept in order.
func independentColumns(x [][]float64, k int, tol float64) []int {
	n := len(x)
	var basis [][]float64
	var keep []int
	for j := 0; j < k; j++ {
		c := make([]float64, n)
		for i, row := range x {
			c[i] = row[j]
		}
		floats.AddConst(-stat.Mean(c, nil), c)
		norm := floats.Norm(c, 2)
		if norm == 0 {
			continue
		}
		for _, q := range basis {
			floats.AddScaled(c, -floats.Dot(q, c), q)
		}
		rest := floats.Norm(c, 2)
		if rest <= tol*norm {
			continue
		}
		floats.Scale(1/rest, c)
		basis = append(basis, c)
		keep = append(keep, j)
	}
	return keep
}
