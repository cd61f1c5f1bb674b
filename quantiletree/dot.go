package quantiletree

import (
	"bufio"
	"fmt"
	"io"
)

// WriteDot writes the tree structure in Graphviz DOT format, for debugging. Each node is labeled with its key, weight,
// and subtree weight.
func (t *Tree) WriteDot(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "strict digraph {")
	fmt.Fprintln(bw, "\tnode [fontname=Arial,fontsize=12,shape=circle,style=filled,fillcolor=\"#a3d7e4\"];")
	nilCount := 0
	var walk func(n *node)
	walk = func(n *node) {
		fmt.Fprintf(bw, "\t\"%d\" [label=\"%d\\nw=%d\\nΣ=%d\"];\n", n.key, n.key, n.weight, n.sum)
		for _, child := range []*node{n.left, n.right} {
			if child == nil {
				if !n.isLeaf() {
					nilCount++
					fmt.Fprintf(bw, "\t\"nil%d\" [label=\"\",shape=point];\n", nilCount)
					fmt.Fprintf(bw, "\t\"%d\" -> \"nil%d\";\n", n.key, nilCount)
				}
				continue
			}
			fmt.Fprintf(bw, "\t\"%d\" -> \"%d\";\n", n.key, child.key)
			walk(child)
		}
	}
	if t.root != nil {
		walk(t.root)
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
