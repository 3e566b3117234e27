package nbc

import "sort"

// KDTree is a KD-tree over a labeled, prior-carrying point set, with a
// NodeStat computed bottom-up for every node. Points are stored in a flat
// row-major array and reordered internally via an index permutation array.
//
// The tree is stored as a complete binary tree in array form:
//   - node i has children at 2*i+1 and 2*i+2
//   - not every ID in the array is populated; traversal only descends
//     through populated internal nodes
type KDTree struct {
	data     []float64 // flat row-major point data (n * dims)
	pos      []bool    // per-point class, original index order
	priors   []float64 // per-point positive prior, original index order
	n        int
	dims     int
	leafSize int
	idxArray []int // permutation: tree-order position → original index
	nodes    []NodeData
	stats    []NodeStat
	bounds   []Bound
	numNodes int // populated node count
}

// NewKDTree builds a KD-tree from flat row-major data with n points of
// dimensionality dims. pos carries the per-point class and may be nil for
// query-only point sets; priors carries the per-point positive prior and may
// be nil for reference-only sets. leafSize controls the max points per leaf.
func NewKDTree(data []float64, n, dims int, pos []bool, priors []float64, leafSize int) *KDTree {
	if leafSize < 1 {
		leafSize = 1
	}

	dataCopy := make([]float64, len(data))
	copy(dataCopy, data)

	if pos == nil {
		pos = make([]bool, n)
	} else {
		pos = append([]bool(nil), pos...)
	}
	if priors == nil {
		priors = make([]float64, n)
	} else {
		priors = append([]float64(nil), priors...)
	}

	idxArray := make([]int, n)
	for i := range idxArray {
		idxArray[i] = i
	}

	maxNodes := kdMaxNodes(n, leafSize)

	t := &KDTree{
		data:     dataCopy,
		pos:      pos,
		priors:   priors,
		n:        n,
		dims:     dims,
		leafSize: leafSize,
		idxArray: idxArray,
		nodes:    make([]NodeData, maxNodes),
		stats:    make([]NodeStat, maxNodes),
		bounds:   make([]Bound, maxNodes),
	}

	if n > 0 {
		t.buildNode(0, 0, n)
	}

	return t
}

// kdMaxNodes returns an upper bound on the number of node IDs needed for a
// binary tree with n points and the given leaf size. The median split may
// not be perfectly balanced, so the bound is generous.
func kdMaxNodes(n, leafSize int) int {
	if n == 0 {
		return 1
	}
	leaves := (n + leafSize - 1) / leafSize
	depth := 0
	v := 1
	for v < leaves {
		v *= 2
		depth++
	}
	return (1 << (depth + 2)) - 1
}

// buildNode recursively builds the tree for points in idxArray[start:end],
// computing each node's bound and statistic on the way back up.
func (t *KDTree) buildNode(nodeID, start, end int) {
	for nodeID >= len(t.nodes) {
		t.nodes = append(t.nodes, NodeData{})
		t.stats = append(t.stats, NodeStat{})
		t.bounds = append(t.bounds, Bound{})
	}
	t.numNodes++

	count := end - start
	if count <= t.leafSize {
		t.nodes[nodeID] = NodeData{IdxStart: start, IdxEnd: end, IsLeaf: true}
		t.computeLeafStat(nodeID, start, end)
		return
	}

	// Split on the dimension with the greatest spread, at the median.
	// Bounds are computed before the split to pick the dimension; the
	// final node bound comes from merging the children afterwards.
	splitDim := t.widestDimension(start, end)
	t.sortByDimension(start, end, splitDim)
	mid := start + count/2

	t.nodes[nodeID] = NodeData{IdxStart: start, IdxEnd: end, IsLeaf: false}

	left := 2*nodeID + 1
	right := 2*nodeID + 2
	t.buildNode(left, start, mid)
	t.buildNode(right, mid, end)

	stat := NewNodeStat(t.dims)
	stat.AccumulateStat(&t.stats[left])
	stat.AccumulateStat(&t.stats[right])
	t.stats[nodeID] = stat

	bound := NewBound(t.dims)
	bound.Widen(t.bounds[left])
	bound.Widen(t.bounds[right])
	t.bounds[nodeID] = bound
}

// computeLeafStat folds every point of a leaf into its statistic and bound.
func (t *KDTree) computeLeafStat(nodeID, start, end int) {
	stat := NewNodeStat(t.dims)
	bound := NewBound(t.dims)
	for i := start; i < end; i++ {
		idx := t.idxArray[i]
		vec := t.data[idx*t.dims : (idx+1)*t.dims]
		stat.AccumulatePoint(vec, t.pos[idx], t.priors[idx])
		bound.WidenPoint(vec)
	}
	t.stats[nodeID] = stat
	t.bounds[nodeID] = bound
}

// widestDimension returns the dimension with the greatest spread over
// idxArray[start:end].
func (t *KDTree) widestDimension(start, end int) int {
	splitDim := 0
	maxSpread := -1.0
	for d := 0; d < t.dims; d++ {
		lo := t.data[t.idxArray[start]*t.dims+d]
		hi := lo
		for i := start + 1; i < end; i++ {
			v := t.data[t.idxArray[i]*t.dims+d]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi-lo > maxSpread {
			maxSpread = hi - lo
			splitDim = d
		}
	}
	return splitDim
}

// sortByDimension sorts idxArray[start:end] by the given dimension.
func (t *KDTree) sortByDimension(start, end, dim int) {
	sub := t.idxArray[start:end]
	dims := t.dims
	data := t.data
	sort.Slice(sub, func(i, j int) bool {
		return data[sub[i]*dims+dim] < data[sub[j]*dims+dim]
	})
}

// --- StatTree interface ---

func (t *KDTree) NumPoints() int   { return t.n }
func (t *KDTree) NumFeatures() int { return t.dims }
func (t *KDTree) NodeCount() int   { return len(t.nodes) }

func (t *KDTree) Node(id int) NodeData       { return t.nodes[id] }
func (t *KDTree) NodeBound(id int) Bound     { return t.bounds[id] }
func (t *KDTree) NodeStat(id int) *NodeStat  { return &t.stats[id] }
func (t *KDTree) PointVec(idx int) []float64 { return t.data[idx*t.dims : (idx+1)*t.dims] }
func (t *KDTree) PointPos(idx int) bool      { return t.pos[idx] }
func (t *KDTree) PointPrior(idx int) float64 { return t.priors[idx] }

func (t *KDTree) ChildNodes(id int) (left, right int) {
	return 2*id + 1, 2*id + 2
}

func (t *KDTree) LeafPoints(id int) []int {
	nd := t.nodes[id]
	return t.idxArray[nd.IdxStart:nd.IdxEnd]
}

// PopulatedNodes returns the number of nodes actually built.
func (t *KDTree) PopulatedNodes() int { return t.numNodes }
