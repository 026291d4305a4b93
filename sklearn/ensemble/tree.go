package ensemble

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/houseprice/core/parallel"
)

// splitSearchThreshold is the feature count above which split search fans out.
const splitSearchThreshold = 4

// minGainToSplit rejects splits that do not reduce the squared error.
const minGainToSplit = 1e-12

// Node is a single node of a regression tree. Leaves have Left == Right == -1.
type Node struct {
	Feature   int     // Feature index used for splitting
	Threshold float64 // Samples with value <= Threshold go left
	Left      int     // Left child node index (-1 if leaf)
	Right     int     // Right child node index (-1 if leaf)
	Gain      float64 // Reduction in squared error achieved by the split
	Value     float64 // Mean residual at a leaf
	Count     int     // Number of training samples that reached the node
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.Left == -1 && n.Right == -1
}

// Tree is one depth-limited regression tree of the ensemble.
type Tree struct {
	Nodes []Node
}

// Predict walks the tree for one sample and returns the leaf value.
func (t *Tree) Predict(features []float64) float64 {
	i := 0
	for {
		node := &t.Nodes[i]
		if node.IsLeaf() {
			return node.Value
		}
		if features[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	leftIdx   []int
	rightIdx  []int
}

// treeBuilder grows one tree from column-major features and residual targets.
type treeBuilder struct {
	columns        [][]float64
	target         []float64
	maxDepth       int
	minSamplesLeaf int
	nodes          []Node
	gainByFeature  []float64
}

func (b *treeBuilder) build(idx []int) Tree {
	b.nodes = b.nodes[:0]
	b.grow(idx, 0)
	return Tree{Nodes: append([]Node(nil), b.nodes...)}
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: -1, Right: -1, Count: len(idx), Value: b.mean(idx)})

	if depth >= b.maxDepth || len(idx) < 2*b.minSamplesLeaf {
		return id
	}

	best, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	b.gainByFeature[best.feature] += best.gain
	left := b.grow(best.leftIdx, depth+1)
	right := b.grow(best.rightIdx, depth+1)

	node := &b.nodes[id]
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Gain = best.gain
	node.Left = left
	node.Right = right
	return id
}

// bestSplit evaluates every feature concurrently and reduces the candidates
// in feature order, so the earliest feature wins ties.
func (b *treeBuilder) bestSplit(idx []int) (split, bool) {
	candidates := make([]split, len(b.columns))
	found := make([]bool, len(b.columns))

	parallel.ForEach(len(b.columns), splitSearchThreshold, func(j int) {
		candidates[j], found[j] = b.bestSplitForFeature(idx, j)
	})

	var best split
	ok := false
	for j := range candidates {
		if found[j] && (!ok || candidates[j].gain > best.gain) {
			best = candidates[j]
			ok = true
		}
	}
	return best, ok
}

func (b *treeBuilder) bestSplitForFeature(idx []int, feature int) (split, bool) {
	col := b.columns[feature]
	order := append([]int(nil), idx...)
	sort.SliceStable(order, func(a, c int) bool { return col[order[a]] < col[order[c]] })

	n := len(order)
	var total float64
	for _, i := range order {
		total += b.target[i]
	}
	parentScore := total * total / float64(n)

	bestGain := minGainToSplit
	bestPos := -1
	var leftSum float64
	for pos := 0; pos < n-1; pos++ {
		leftSum += b.target[order[pos]]
		nLeft := pos + 1
		nRight := n - nLeft
		if nLeft < b.minSamplesLeaf || nRight < b.minSamplesLeaf {
			continue
		}
		if col[order[pos]] == col[order[pos+1]] {
			continue
		}
		rightSum := total - leftSum
		gain := leftSum*leftSum/float64(nLeft) + rightSum*rightSum/float64(nRight) - parentScore
		if gain > bestGain {
			bestGain = gain
			bestPos = pos
		}
	}
	if bestPos < 0 {
		return split{}, false
	}

	lo, hi := col[order[bestPos]], col[order[bestPos+1]]
	threshold := lo + (hi-lo)/2
	if math.IsInf(threshold, 0) || threshold >= hi {
		threshold = lo
	}
	return split{
		feature:   feature,
		threshold: threshold,
		gain:      bestGain,
		leftIdx:   append([]int(nil), order[:bestPos+1]...),
		rightIdx:  append([]int(nil), order[bestPos+1:]...),
	}, true
}

func (b *treeBuilder) mean(idx []int) float64 {
	var sum float64
	for _, i := range idx {
		sum += b.target[i]
	}
	return sum / float64(len(idx))
}
