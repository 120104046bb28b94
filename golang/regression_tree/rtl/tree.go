package rtl

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

//TreeNode is a node of a tree. Tree is stored in an array. LeftIndex and RightIndex are equal to -1
//when the current node is a leaf otherwise they contain array indices of children.
//Mean is the prediction of a leaf.
type TreeNode struct {
	TreeNodeId            int
	Mean                  float64
	Variance              float64
	NumberOfObjects       int
	SplitGain             float64
	FeatureNumber         int // -1 if it is a leaf
	Threshold             float64
	LeftIndex, RightIndex int // -1, -1 if it is a leaf
}

//NewLeafNode creates a leaf holding the target statistics of the view.
func NewLeafNode(view RowView, treeNodeId int) TreeNode {
	stats := view.Stats(view.TargetColumn())
	return TreeNode{
		TreeNodeId:      treeNodeId,
		Mean:            stats.Mean(),
		Variance:        stats.Variance(),
		NumberOfObjects: stats.Count(),
		FeatureNumber:   -1,
		LeftIndex:       -1,
		RightIndex:      -1,
	}
}

//IsLeaf returns whether this node is a leaf.
func (node TreeNode) IsLeaf() bool {
	return node.FeatureNumber == -1
}

//GraphDescription returns the description of a tree node for tree rendering as a graph
func (node TreeNode) GraphDescription() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintln("id:", node.TreeNodeId))
	sb.WriteString(fmt.Sprintln("#", node.NumberOfObjects))
	sb.WriteString(fmt.Sprintf("mean: %.6g\n", node.Mean))
	sb.WriteString(fmt.Sprintf("variance: %.6g", node.Variance))
	if !node.IsLeaf() {
		sb.WriteString(fmt.Sprintf("\nf_%d <= %.6g\n", node.FeatureNumber, node.Threshold))
		sb.WriteString(fmt.Sprintf("gain: %.6g", node.SplitGain))
	}
	return sb.String()
}

//Tree is a fitted regression tree. The root is TreeNodes[0]; children always follow
//their parent in the array.
type Tree struct {
	NFeatures int
	TreeNodes []TreeNode
}

//treeBuilder grows one tree over the rows of a view.
type treeBuilder struct {
	params Params
	logger *zap.Logger
	tree   *Tree
}

//BuildTree grows a tree over view. The target is the last column of the view.
//The rows of the view are reordered in place.
func BuildTree(view RowView, params Params, logger *zap.Logger) *Tree {
	if logger == nil {
		logger = zap.NewNop()
	}
	builder := treeBuilder{
		params: params,
		logger: logger,
		tree:   &Tree{NFeatures: view.TargetColumn(), TreeNodes: make([]TreeNode, 0)},
	}
	root := builder.newNode(view)
	builder.grow(view, root, 0)
	return builder.tree
}

func (b *treeBuilder) newNode(view RowView) int {
	treeNodeId := len(b.tree.TreeNodes)
	b.tree.TreeNodes = append(b.tree.TreeNodes, NewLeafNode(view, treeNodeId))
	return treeNodeId
}

//grow tries to split the node that holds view. The node stays a leaf when a stopping rule
//fires or no split is good enough; otherwise both children are appended and grown in turn.
func (b *treeBuilder) grow(view RowView, treeNodeId int, depth int) {
	if b.params.depthReached(depth) || view.Size() < b.params.minSizeToGrow() {
		return
	}

	parent := view.Stats(view.TargetColumn())
	bestSplit := TheBestSplit(view, parent, b.params.MinLeafSize)
	if !bestSplit.validSplit || !b.params.acceptsGain(bestSplit.gain) {
		return
	}

	leftView, rightView := view.Partition(bestSplit.featureIndex, bestSplit.threshold)
	leftIndex := b.newNode(leftView)
	rightIndex := b.newNode(rightView)

	node := &b.tree.TreeNodes[treeNodeId]
	node.FeatureNumber = bestSplit.featureIndex
	node.Threshold = bestSplit.threshold
	node.SplitGain = bestSplit.gain
	node.LeftIndex = leftIndex
	node.RightIndex = rightIndex

	b.logger.Debug("split node",
		zap.Int("node", treeNodeId),
		zap.Int("depth", depth),
		zap.Int("feature", bestSplit.featureIndex),
		zap.Float64("threshold", bestSplit.threshold),
		zap.Float64("gain", bestSplit.gain),
		zap.Int("left", leftView.Size()),
		zap.Int("right", rightView.Size()),
	)

	b.grow(leftView, leftIndex, depth+1)
	b.grow(rightView, rightIndex, depth+1)
}

//Apply returns the index of the leaf reached by row.
func (tree Tree) Apply(row []float64) int {
	ind := 0
	for !tree.TreeNodes[ind].IsLeaf() {
		node := tree.TreeNodes[ind]
		if row[node.FeatureNumber] <= node.Threshold {
			ind = node.LeftIndex
		} else {
			ind = node.RightIndex
		}
	}
	return ind
}

//Predict returns the mean of the leaf reached by row.
func (tree Tree) Predict(row []float64) float64 {
	return tree.TreeNodes[tree.Apply(row)].Mean
}

func (tree Tree) NodeCount() int {
	return len(tree.TreeNodes)
}

func (tree Tree) LeafCount() int {
	leaves := 0
	for _, node := range tree.TreeNodes {
		if node.IsLeaf() {
			leaves++
		}
	}
	return leaves
}

//Depth returns the length of the longest path from the root to a leaf.
func (tree Tree) Depth() int {
	if len(tree.TreeNodes) == 0 {
		return 0
	}
	depths := make([]int, len(tree.TreeNodes))
	result := 0
	for ind, node := range tree.TreeNodes {
		if node.IsLeaf() {
			result = max(result, depths[ind])
			continue
		}
		depths[node.LeftIndex] = depths[ind] + 1
		depths[node.RightIndex] = depths[ind] + 1
	}
	return result
}

//validate checks the links of a tree read from an untrusted source: ids match positions,
//every node but the root has exactly one parent placed before it, and leaves have no children.
func (tree Tree) validate() error {
	n := len(tree.TreeNodes)
	if n == 0 {
		return fmt.Errorf("%w: no nodes", ErrCorruptModel)
	}
	if tree.NFeatures < 1 {
		return fmt.Errorf("%w: %d features", ErrCorruptModel, tree.NFeatures)
	}
	parents := make([]int, n)
	for ind, node := range tree.TreeNodes {
		if node.TreeNodeId != ind {
			return fmt.Errorf("%w: node %d has id %d", ErrCorruptModel, ind, node.TreeNodeId)
		}
		if node.IsLeaf() {
			if node.LeftIndex != -1 || node.RightIndex != -1 {
				return fmt.Errorf("%w: leaf %d has children", ErrCorruptModel, ind)
			}
			continue
		}
		if node.FeatureNumber < 0 || node.FeatureNumber >= tree.NFeatures {
			return fmt.Errorf("%w: node %d splits on feature %d", ErrCorruptModel, ind, node.FeatureNumber)
		}
		for _, child := range []int{node.LeftIndex, node.RightIndex} {
			if child <= ind || child >= n {
				return fmt.Errorf("%w: node %d links to %d", ErrCorruptModel, ind, child)
			}
			parents[child]++
		}
	}
	for ind := 1; ind < n; ind++ {
		if parents[ind] != 1 {
			return fmt.Errorf("%w: node %d has %d parents", ErrCorruptModel, ind, parents[ind])
		}
	}
	return nil
}
