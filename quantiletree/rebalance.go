package quantiletree

// rotate promotes child c over its parent p. c takes p's position, c's inner child moves across to p, and p becomes
// c's child on the side c came from. The augmentation of p, c and c's new parent is refreshed.
func (t *Tree) rotate(c *node) {
	p := c.parent
	g := p.parent

	if p.left == c {
		p.left = c.right
		if c.right != nil {
			c.right.parent = p
		}
		c.right = p
	} else {
		p.right = c.left
		if c.left != nil {
			c.left.parent = p
		}
		c.left = p
	}
	p.parent = c

	c.parent = g
	switch {
	case g == nil:
		t.root = c
	case g.left == p:
		g.left = c
	default:
		g.right = c
	}

	refreshNode(p)
	refreshNode(c)
	if g != nil {
		refreshNode(g)
	}
}

// bubbleUp restores heap order above n after its weight grew.
func (t *Tree) bubbleUp(n *node) {
	for n.parent != nil && n.parent.weight < n.weight {
		t.rotate(n)
	}
	t.updateTree(n)
}

// dropDown restores heap order below n after its weight shrank, removing n once it is a weightless leaf.
func (t *Tree) dropDown(n *node) {
	for n.weight < weightOf(n.left) || n.weight < weightOf(n.right) {
		t.rotate(heavierChild(n))
	}

	if n.isLeaf() && n.weight == 0 {
		t.updateTree(t.detach(n))
		return
	}

	// Start from the taller side so the balance pass sees the subtree the drop just deepened
	start := n
	if !n.isLeaf() {
		if heightOf(n.left) > heightOf(n.right) {
			start = n.left
		} else {
			start = n.right
		}
	}
	t.updateTree(start)
}

// heavierChild picks the child to promote when dropping n: the greater weight, then the greater height, then the
// greater subtree weight. Ties beyond that go right.
func heavierChild(n *node) *node {
	lw, rw := weightOf(n.left), weightOf(n.right)
	lh, rh := heightOf(n.left), heightOf(n.right)
	ls, rs := sumOf(n.left), sumOf(n.right)
	if lw > rw || (lw == rw && lh > rh) || (lw == rw && lh == rh && ls > rs) {
		return n.left
	}
	return n.right
}

// updateTree refreshes the augmentation from n to the root, then walks the same path applying local balance
// corrections.
func (t *Tree) updateTree(n *node) {
	if n == nil {
		return
	}
	refreshPath(n)
	for curr := n; curr != nil; curr = curr.parent {
		if t.balance(curr) {
			refreshPath(curr)
		}
	}
}

// balance corrects a local height imbalance around n when it can do so without breaking heap order, which is only the
// case when the weights involved tie. Returns whether a rotation happened.
func (t *Tree) balance(n *node) bool {
	p := n.parent
	if p == nil {
		return false
	}

	lh, rh := heightOf(p.left), heightOf(p.right)
	if abs(lh-rh) > 1 && n.weight == p.weight && (p.key < n.key) == (lh < rh) {
		t.rotate(n)
		return true
	}

	g := p.parent
	if g == nil {
		return false
	}

	if (n.key < p.key) == (p.key < g.key) {
		return t.balance(p)
	}

	glh, grh := heightOf(g.left), heightOf(g.right)
	if abs(glh-grh) > 1 && n.weight == g.weight {
		t.rotate(n)
		t.rotate(n)
		return true
	}
	return false
}
