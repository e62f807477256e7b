package regression

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	domsvc "CryptoVision/internal/domain/service"
)

const (
	ForestName = "random_forest"

	DefaultTrees = 200
	DefaultSeed  = 42
)

// ForestConfig configures a bagged regression forest.
type ForestConfig struct {
	Trees          int
	Seed           int64
	MaxDepth       int // 0 grows until leaves are pure or minimal
	MinSamplesLeaf int
	Workers        int // 0 uses GOMAXPROCS
}

// Forest fits an ensemble of regression trees, each on a bootstrap sample of
// the training rows. Fitting is deterministic for a given seed regardless of
// the number of workers.
type Forest struct {
	cfg ForestConfig
}

func NewForest(cfg ForestConfig) *Forest {
	if cfg.Trees <= 0 {
		cfg.Trees = DefaultTrees
	}
	if cfg.MinSamplesLeaf <= 0 {
		cfg.MinSamplesLeaf = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Forest{cfg: cfg}
}

var _ domsvc.Regressor = (*Forest)(nil)

func (f *Forest) Name() string { return ForestName }

func (f *Forest) Fit(ctx context.Context, X [][]float64, y []float64) (domsvc.Model, error) {
	if err := checkShape(X, y); err != nil {
		return nil, err
	}

	// Seeds are drawn up front so tree i always sees the same sample.
	master := rand.New(rand.NewSource(f.cfg.Seed))
	seeds := make([]int64, f.cfg.Trees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	trees := make([]*tree, f.cfg.Trees)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Workers)
	for i := range trees {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			trees[i] = newTreeBuilder(X, y, f.cfg.MaxDepth, f.cfg.MinSamplesLeaf).bootstrap(seeds[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ForestModel{trees: trees, width: len(X[0])}, nil
}

// ForestModel averages the predictions of its trees.
type ForestModel struct {
	trees []*tree
	width int
}

func (m *ForestModel) Predict(row []float64) float64 {
	var sum float64
	for _, t := range m.trees {
		sum += t.predict(row)
	}
	return sum / float64(len(m.trees))
}

// Size returns the number of trees.
func (m *ForestModel) Size() int { return len(m.trees) }

// MaxDepth returns the depth of the deepest tree.
func (m *ForestModel) MaxDepth() int {
	var d int
	for _, t := range m.trees {
		if td := t.depth(); td > d {
			d = td
		}
	}
	return d
}

func checkShape(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return fmt.Errorf("no training rows")
	}
	if len(X) != len(y) {
		return fmt.Errorf("feature rows (%d) and targets (%d) differ", len(X), len(y))
	}
	width := len(X[0])
	if width == 0 {
		return fmt.Errorf("no feature columns")
	}
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), width)
		}
	}
	return nil
}
