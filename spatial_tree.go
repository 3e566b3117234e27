package nbc

// NodeData describes a single node in a spatial tree.
type NodeData struct {
	IdxStart, IdxEnd int
	IsLeaf           bool
}

// StatTree is the read interface the dual-tree traversal engine needs from a
// spatial tree with per-node statistics. Both the query tree and the
// reference tree satisfy it; the reference tree is only ever read.
type StatTree interface {
	// NumPoints returns the number of points in the tree.
	NumPoints() int

	// NumFeatures returns the dimensionality of each point.
	NumFeatures() int

	// NodeCount returns the length of the node ID space. IDs follow the
	// complete-binary-tree layout: node i has children 2i+1 and 2i+2.
	// Not every ID in the space is populated.
	NodeCount() int

	// Node returns the metadata for a node.
	Node(id int) NodeData

	// NodeBound returns the node's own bounding box over all its points.
	NodeBound(id int) Bound

	// NodeStat returns the node's statistic. The statistic is immutable
	// after construction.
	NodeStat(id int) *NodeStat

	// ChildNodes returns the left and right child node IDs.
	// Behavior is undefined for leaf nodes.
	ChildNodes(id int) (left, right int)

	// LeafPoints returns the original point indices stored in a leaf.
	LeafPoints(id int) []int

	// PointVec returns the coordinates of a point by original index.
	PointVec(idx int) []float64

	// PointPos reports the class of a point by original index
	// (meaningful for reference points).
	PointPos(idx int) bool

	// PointPrior returns the positive-class prior of a point by original
	// index (meaningful for query points).
	PointPrior(idx int) float64
}
