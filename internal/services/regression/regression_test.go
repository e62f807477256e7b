package regression

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticSeries mimics daily OHLC rows: close tracks the open with noise.
func syntheticSeries(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]float64, n)
	price := 100.0
	for i := 0; i < n; i++ {
		price *= 1 + (rng.Float64()-0.5)*0.04
		open := price
		high := open * (1 + rng.Float64()*0.03)
		low := open * (1 - rng.Float64()*0.03)
		volume := 1e6 + rng.Float64()*1e5
		X[i] = []float64{open, high, low, volume, open * 1.9e7}
		y[i] = low + (high-low)*rng.Float64()
	}
	return X, y
}

func TestTrainTestSplit(t *testing.T) {
	train, test, err := TrainTestSplit(100, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, test, 20)
	assert.Len(t, train, 80)

	all := append(append([]int{}, train...), test...)
	sort.Ints(all)
	for i, v := range all {
		assert.Equal(t, i, v)
	}

	train2, test2, err := TrainTestSplit(100, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)

	_, test3, err := TrainTestSplit(100, 0.2, 7)
	require.NoError(t, err)
	assert.NotEqual(t, test, test3)
}

func TestTrainTestSplit_Sizes(t *testing.T) {
	tests := []struct {
		n, train, test int
	}{
		{n: 2, train: 1, test: 1},
		{n: 3, train: 2, test: 1},
		{n: 5, train: 4, test: 1},
		{n: 6, train: 4, test: 2},
		{n: 11, train: 8, test: 3},
	}
	for _, tt := range tests {
		train, test, err := TrainTestSplit(tt.n, 0.2, 42)
		require.NoError(t, err)
		assert.Len(t, train, tt.train, "n=%d", tt.n)
		assert.Len(t, test, tt.test, "n=%d", tt.n)
	}
}

func TestTrainTestSplit_Invalid(t *testing.T) {
	_, _, err := TrainTestSplit(1, 0.2, 42)
	assert.Error(t, err)
	_, _, err = TrainTestSplit(10, 0, 42)
	assert.Error(t, err)
	_, _, err = TrainTestSplit(10, 1, 42)
	assert.Error(t, err)
}

func TestTree_FitsStepFunction(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {10}, {11}, {12}}
	y := []float64{5, 5, 5, 20, 20, 20}
	idx := []int{0, 1, 2, 3, 4, 5}

	tr := newTreeBuilder(X, y, 0, 1).fit(idx)
	assert.Equal(t, 1, tr.depth())
	assert.Equal(t, 5.0, tr.predict([]float64{0}))
	assert.Equal(t, 5.0, tr.predict([]float64{6.5}))
	assert.Equal(t, 20.0, tr.predict([]float64{6.6}))
	assert.Equal(t, 20.0, tr.predict([]float64{100}))
}

func TestTree_MaxDepthAndMinLeaf(t *testing.T) {
	X, y := syntheticSeries(200, 1)
	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}

	shallow := newTreeBuilder(X, y, 3, 1).fit(append([]int{}, idx...))
	assert.LessOrEqual(t, shallow.depth(), 3)

	leafy := newTreeBuilder(X, y, 0, 20).fit(append([]int{}, idx...))
	var leaves int
	for _, n := range leafy.nodes {
		if n.feature < 0 {
			leaves++
		}
	}
	assert.LessOrEqual(t, leaves, len(y)/20)
}

func TestTree_ConstantTargetIsSingleLeaf(t *testing.T) {
	X := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	y := []float64{7, 7, 7}
	tr := newTreeBuilder(X, y, 0, 1).fit([]int{0, 1, 2})
	require.Len(t, tr.nodes, 1)
	assert.Equal(t, 7.0, tr.predict([]float64{100, 100}))
}

func TestForest_Deterministic(t *testing.T) {
	X, y := syntheticSeries(150, 3)
	probe := []float64{101, 103, 99, 1.05e6, 101 * 1.9e7}

	a, err := NewForest(ForestConfig{Trees: 25, Seed: 42, Workers: 1}).Fit(context.Background(), X, y)
	require.NoError(t, err)
	b, err := NewForest(ForestConfig{Trees: 25, Seed: 42, Workers: 8}).Fit(context.Background(), X, y)
	require.NoError(t, err)
	assert.Equal(t, a.Predict(probe), b.Predict(probe))

	c, err := NewForest(ForestConfig{Trees: 25, Seed: 43}).Fit(context.Background(), X, y)
	require.NoError(t, err)
	assert.NotEqual(t, a.Predict(probe), c.Predict(probe))
}

func TestForest_PredictionWithinTargetRange(t *testing.T) {
	X, y := syntheticSeries(300, 5)
	m, err := NewForest(ForestConfig{Trees: 30, Seed: 42}).Fit(context.Background(), X, y)
	require.NoError(t, err)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range y {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	probes, _ := syntheticSeries(50, 99)
	probes = append(probes, []float64{0, 0, 0, 0, 0}, []float64{1e9, 1e9, 1e9, 1e12, 1e18})
	for _, row := range probes {
		p := m.Predict(row)
		assert.GreaterOrEqual(t, p, lo-1e-9)
		assert.LessOrEqual(t, p, hi+1e-9)
	}
}

func TestForest_Defaults(t *testing.T) {
	f := NewForest(ForestConfig{})
	assert.Equal(t, ForestName, f.Name())
	assert.Equal(t, DefaultTrees, f.cfg.Trees)
	assert.Equal(t, 1, f.cfg.MinSamplesLeaf)
	assert.Positive(t, f.cfg.Workers)

	X, y := syntheticSeries(20, 1)
	m, err := f.Fit(context.Background(), X, y)
	require.NoError(t, err)
	assert.Equal(t, DefaultTrees, m.(*ForestModel).Size())
}

func TestForest_ShapeErrors(t *testing.T) {
	f := NewForest(ForestConfig{Trees: 2})
	ctx := context.Background()

	_, err := f.Fit(ctx, nil, nil)
	assert.Error(t, err)
	_, err = f.Fit(ctx, [][]float64{{1}, {2}}, []float64{1})
	assert.Error(t, err)
	_, err = f.Fit(ctx, [][]float64{{1, 2}, {3}}, []float64{1, 2})
	assert.Error(t, err)
}

func TestForest_CanceledContext(t *testing.T) {
	X, y := syntheticSeries(50, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewForest(ForestConfig{Trees: 10}).Fit(ctx, X, y)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLinear_RecoversCoefficients(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	X := make([][]float64, 60)
	y := make([]float64, 60)
	for i := range X {
		row := make([]float64, 5)
		for j := range row {
			row[j] = rng.Float64() * 10
		}
		X[i] = row
		y[i] = 3 + 0.5*row[0] + 0.25*row[1] - row[2] + 2*row[3] + 0.1*row[4]
	}

	m, err := NewLinear().Fit(context.Background(), X, y)
	require.NoError(t, err)
	lm := m.(*LinearModel)
	assert.InDelta(t, 3, lm.Intercept, 1e-6)
	assert.InDeltaSlice(t, []float64{0.5, 0.25, -1, 2, 0.1}, lm.Weights, 1e-6)
	assert.InDelta(t, 3+0.5+0.25-1+2+0.1, m.Predict([]float64{1, 1, 1, 1, 1}), 1e-6)
	assert.Equal(t, LinearName, NewLinear().Name())
}

func TestEvaluate(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{1, 2, 3, 4}

	perfect := Evaluate(&LinearModel{Weights: []float64{1}}, X, y)
	assert.InDelta(t, 1, perfect.R2, 1e-12)
	assert.InDelta(t, 0, perfect.RMSE, 1e-12)
	assert.InDelta(t, 0, perfect.MAE, 1e-12)

	off := Evaluate(&LinearModel{Intercept: 1, Weights: []float64{1}}, X, y)
	assert.InDelta(t, 1, off.RMSE, 1e-12)
	assert.InDelta(t, 1, off.MAE, 1e-12)
	assert.Less(t, off.R2, 1.0)

	constant := Evaluate(&LinearModel{Intercept: 2}, [][]float64{{0}, {0}}, []float64{2, 2})
	assert.Equal(t, 0.0, constant.R2)

	assert.Equal(t, Scores{}, Evaluate(&LinearModel{}, nil, nil))
}

func TestForest_HoldoutQuality(t *testing.T) {
	X, y := syntheticSeries(400, 11)
	train, test, err := TrainTestSplit(len(y), 0.2, 42)
	require.NoError(t, err)

	xTrain, yTrain := Rows(X, y, train)
	xTest, yTest := Rows(X, y, test)
	m, err := NewForest(ForestConfig{Trees: 50, Seed: 42}).Fit(context.Background(), xTrain, yTrain)
	require.NoError(t, err)

	s := Evaluate(m, xTest, yTest)
	assert.Greater(t, s.R2, 0.8)
	assert.Positive(t, s.RMSE)
	assert.LessOrEqual(t, s.MAE, s.RMSE)
}
