package quantiletree

import (
	"fmt"

	"github.com/xlab/treeprint"
)

// Pretty renders the tree shape as indented text, one bucket per line with its weight and subtree weight. Children are
// prefixed with L or R for their side.
func (t *Tree) Pretty() string {
	if t.root == nil {
		return "QuantileTree (empty)\n"
	}
	printed := treeprint.NewWithRoot(label("", t.root))
	addChildren(printed, t.root)
	return printed.String()
}

func addChildren(branch treeprint.Tree, n *node) {
	for _, side := range []struct {
		prefix string
		child  *node
	}{{"L ", n.left}, {"R ", n.right}} {
		switch {
		case side.child == nil:
		case side.child.isLeaf():
			branch.AddNode(label(side.prefix, side.child))
		default:
			addChildren(branch.AddBranch(label(side.prefix, side.child)), side.child)
		}
	}
}

func label(prefix string, n *node) string {
	return fmt.Sprintf("%s%d (w=%d, Σ=%d)", prefix, n.key, n.weight, n.sum)
}
