package regression

import (
	"fmt"
	"math"
	"math/rand"
)

// TrainTestSplit shuffles row indices 0..n-1 with a seeded source and holds
// out ceil(ratio*n) of them for testing. Both partitions are non-empty for
// n >= 2, and the same (n, ratio, seed) always yields the same partition.
func TrainTestSplit(n int, ratio float64, seed int64) (train, test []int, err error) {
	if n < 2 {
		return nil, nil, fmt.Errorf("need at least 2 rows to split, got %d", n)
	}
	if !(ratio > 0 && ratio < 1) {
		return nil, nil, fmt.Errorf("test ratio must be in (0, 1), got %v", ratio)
	}

	nTest := int(math.Ceil(ratio * float64(n)))
	if nTest >= n {
		nTest = n - 1
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// Rows selects rows of X and y by index.
func Rows(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for i, j := range idx {
		xs[i] = X[j]
		ys[i] = y[j]
	}
	return xs, ys
}
