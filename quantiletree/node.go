package quantiletree

// node is one bucket of the tree. Children are owned through left and right, parent is a back pointer used only for
// upward walks.
type node struct {
	key    int64
	weight int64

	// Subtree augmentation, recomputed bottom-up by refreshNode
	size   int
	height int
	sum    int64

	left   *node
	right  *node
	parent *node
}

func newNode(key int64) *node {
	return &node{
		key:    key,
		size:   1,
		height: 1,
	}
}

func (n *node) isLeaf() bool {
	return n.left == nil && n.right == nil
}

func sizeOf(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func heightOf(n *node) int {
	if n == nil {
		return 0
	}
	return n.height
}

func sumOf(n *node) int64 {
	if n == nil {
		return 0
	}
	return n.sum
}

func weightOf(n *node) int64 {
	if n == nil {
		return 0
	}
	return n.weight
}

// refreshNode recomputes the augmentation of n from its own weight and its children, which must already be correct.
func refreshNode(n *node) {
	n.height = max(heightOf(n.left), heightOf(n.right)) + 1
	n.size = sizeOf(n.left) + sizeOf(n.right) + 1
	n.sum = sumOf(n.left) + sumOf(n.right) + n.weight
}

// refreshPath refreshes n and then each of its ancestors up to the root.
func refreshPath(n *node) {
	for curr := n; curr != nil; curr = curr.parent {
		refreshNode(curr)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
