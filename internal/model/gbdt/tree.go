package gbdt

import "sort"

const minGain = 1e-12

// Node is one node of a regression tree stored in a flat slice.
// Rows with x[Feature] <= Threshold go left; NaN goes right.
type Node struct {
	Leaf      bool
	Value     float64
	Feature   int
	Threshold float64
	Left      int
	Right     int
}

// Tree is a regression tree over gradient statistics.
type Tree struct {
	Nodes []Node
}

// Predict returns the leaf value reached by x.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth returns the number of split levels.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.Leaf {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}

type treeBuilder struct {
	x         [][]float64
	grad      []float64
	hess      []float64
	maxDepth  int
	lambda    float64
	minLeaf   int
	nFeatures int

	tree *Tree
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

func (b *treeBuilder) build(rows []int) *Tree {
	b.tree = &Tree{}
	b.grow(rows, 0)
	return b.tree
}

func (b *treeBuilder) grow(rows []int, depth int) int {
	idx := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{})

	g, h := b.sums(rows)
	leaf := Node{Leaf: true, Value: -g / (h + b.lambda)}

	if depth >= b.maxDepth || len(rows) < 2*b.minLeaf {
		b.tree.Nodes[idx] = leaf
		return idx
	}

	best, ok := b.bestSplit(rows, g, h)
	if !ok {
		b.tree.Nodes[idx] = leaf
		return idx
	}

	var left, right []int
	for _, r := range rows {
		if b.x[r][best.feature] <= best.threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	l := b.grow(left, depth+1)
	rt := b.grow(right, depth+1)
	b.tree.Nodes[idx] = Node{
		Feature:   best.feature,
		Threshold: best.threshold,
		Left:      l,
		Right:     rt,
	}
	return idx
}

func (b *treeBuilder) sums(rows []int) (g, h float64) {
	for _, r := range rows {
		g += b.grad[r]
		h += b.hess[r]
	}
	return g, h
}

// bestSplit scans every feature in column order and keeps the first split
// with the strictly highest gain, so ties resolve to the lowest feature and
// the lowest threshold.
func (b *treeBuilder) bestSplit(rows []int, g, h float64) (split, bool) {
	parent := g * g / (h + b.lambda)
	best := split{gain: minGain}
	found := false

	sorted := make([]int, len(rows))
	for f := 0; f < b.nFeatures; f++ {
		copy(sorted, rows)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.x[sorted[i]][f] < b.x[sorted[j]][f]
		})

		var gl, hl float64
		for i := 0; i < len(sorted)-1; i++ {
			r := sorted[i]
			gl += b.grad[r]
			hl += b.hess[r]

			left := i + 1
			if left < b.minLeaf || len(sorted)-left < b.minLeaf {
				continue
			}
			cur, next := b.x[r][f], b.x[sorted[i+1]][f]
			if cur == next {
				continue
			}

			gr, hr := g-gl, h-hl
			gain := gl*gl/(hl+b.lambda) + gr*gr/(hr+b.lambda) - parent
			if gain > best.gain {
				best = split{feature: f, threshold: (cur + next) / 2, gain: gain}
				found = true
			}
		}
	}
	return best, found
}
