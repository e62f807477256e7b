package regression

import (
	"math"
	"math/rand"
	"sort"
)

// node is a flattened tree node. Leaves have feature < 0.
type node struct {
	feature   int32
	left      int32
	right     int32
	threshold float64
	value     float64
}

type tree struct {
	nodes []node
}

func (t *tree) predict(row []float64) float64 {
	i := int32(0)
	for {
		n := &t.nodes[i]
		if n.feature < 0 {
			return n.value
		}
		if row[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

func (t *tree) depth() int {
	var walk func(i int32) int
	walk = func(i int32) int {
		n := t.nodes[i]
		if n.feature < 0 {
			return 0
		}
		l, r := walk(n.left), walk(n.right)
		if r > l {
			l = r
		}
		return l + 1
	}
	return walk(0)
}

// treeBuilder grows a CART regression tree minimising squared error. Every
// feature is considered at every split and thresholds are midpoints between
// adjacent distinct values.
type treeBuilder struct {
	X        [][]float64
	y        []float64
	maxDepth int
	minLeaf  int
	nodes    []node
	scratch  []int
}

func newTreeBuilder(X [][]float64, y []float64, maxDepth, minLeaf int) *treeBuilder {
	if minLeaf < 1 {
		minLeaf = 1
	}
	return &treeBuilder{X: X, y: y, maxDepth: maxDepth, minLeaf: minLeaf}
}

// bootstrap grows a tree on n rows drawn with replacement.
func (b *treeBuilder) bootstrap(seed int64) *tree {
	n := len(b.y)
	rng := rand.New(rand.NewSource(seed))
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.Intn(n)
	}
	return b.fit(idx)
}

func (b *treeBuilder) fit(idx []int) *tree {
	b.nodes = make([]node, 0, 2*len(idx)/b.minLeaf+1)
	b.scratch = make([]int, len(idx))
	b.grow(idx, 0)
	return &tree{nodes: b.nodes}
}

func (b *treeBuilder) grow(idx []int, depth int) int32 {
	id := int32(len(b.nodes))
	b.nodes = append(b.nodes, node{feature: -1, left: -1, right: -1})

	var sum float64
	pure := true
	first := b.y[idx[0]]
	for _, i := range idx {
		sum += b.y[i]
		if b.y[i] != first {
			pure = false
		}
	}
	n := len(idx)
	b.nodes[id].value = sum / float64(n)

	if pure || n < 2*b.minLeaf || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return id
	}

	feature, threshold, ok := b.bestSplit(idx, sum)
	if !ok {
		return id
	}

	// partition in place: rows <= threshold first
	lo, hi := 0, n-1
	for lo <= hi {
		if b.X[idx[lo]][feature] <= threshold {
			lo++
		} else {
			idx[lo], idx[hi] = idx[hi], idx[lo]
			hi--
		}
	}
	if lo == 0 || lo == n {
		return id
	}

	left := b.grow(idx[:lo], depth+1)
	right := b.grow(idx[lo:], depth+1)
	b.nodes[id].feature = int32(feature)
	b.nodes[id].threshold = threshold
	b.nodes[id].left = left
	b.nodes[id].right = right
	return id
}

// bestSplit maximises sumL^2/nL + sumR^2/nR, which is equivalent to
// minimising the children's summed squared error.
func (b *treeBuilder) bestSplit(idx []int, total float64) (int, float64, bool) {
	n := len(idx)
	best := total * total / float64(n)
	// require a real improvement so float noise cannot create splits
	best += 1e-12 * math.Abs(best)
	feature, threshold, found := -1, 0.0, false

	order := b.scratch[:n]
	for f := range b.X[idx[0]] {
		copy(order, idx)
		sort.SliceStable(order, func(a, c int) bool {
			return b.X[order[a]][f] < b.X[order[c]][f]
		})

		var left float64
		for k := 1; k < n; k++ {
			left += b.y[order[k-1]]
			if k < b.minLeaf || n-k < b.minLeaf {
				continue
			}
			lv, rv := b.X[order[k-1]][f], b.X[order[k]][f]
			if lv == rv {
				continue
			}
			right := total - left
			score := left*left/float64(k) + right*right/float64(n-k)
			if score > best {
				best = score
				feature = f
				threshold = lv + (rv-lv)/2
				if threshold >= rv {
					threshold = lv
				}
				found = true
			}
		}
	}
	return feature, threshold, found
}
