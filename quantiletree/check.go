package quantiletree

import (
	"fmt"
	"math"
)

// Check validates every structural invariant of the tree: key order, weight heap order, parent links, subtree
// augmentation, and the absence of weightless leaves. Returns an error wrapping ErrInvariant for the first violation
// found.
func (t *Tree) Check() error {
	if t.root == nil {
		return nil
	}
	if t.root.parent != nil {
		return fmt.Errorf("%w: root has a parent", ErrInvariant)
	}
	_, err := checkNode(t.root, math.MinInt64, math.MaxInt64, true, true)
	return err
}

type subtreeStats struct {
	size   int
	height int
	sum    int64
}

// checkNode verifies the subtree rooted at n, whose keys must lie within [lo, hi] with the open ends indicated by
// loOpen and hiOpen.
func checkNode(n *node, lo, hi int64, loOpen, hiOpen bool) (subtreeStats, error) {
	if n == nil {
		return subtreeStats{}, nil
	}
	if (!loOpen && n.key <= lo) || (!hiOpen && n.key >= hi) {
		return subtreeStats{}, fmt.Errorf("%w: key %d out of order", ErrInvariant, n.key)
	}
	if n.weight < 0 {
		return subtreeStats{}, fmt.Errorf("%w: key %d has negative weight %d", ErrInvariant, n.key, n.weight)
	}
	if n.isLeaf() && n.weight == 0 {
		return subtreeStats{}, fmt.Errorf("%w: key %d is a weightless leaf", ErrInvariant, n.key)
	}
	for _, child := range []*node{n.left, n.right} {
		if child == nil {
			continue
		}
		if child.parent != n {
			return subtreeStats{}, fmt.Errorf("%w: key %d has a stale parent link", ErrInvariant, child.key)
		}
		if child.weight > n.weight {
			return subtreeStats{}, fmt.Errorf("%w: key %d outweighs its parent %d (%d > %d)",
				ErrInvariant, child.key, n.key, child.weight, n.weight)
		}
	}

	left, err := checkNode(n.left, lo, n.key, loOpen, false)
	if err != nil {
		return subtreeStats{}, err
	}
	right, err := checkNode(n.right, n.key, hi, false, hiOpen)
	if err != nil {
		return subtreeStats{}, err
	}

	expected := subtreeStats{
		size:   left.size + right.size + 1,
		height: max(left.height, right.height) + 1,
		sum:    left.sum + right.sum + n.weight,
	}
	if n.size != expected.size || n.height != expected.height || n.sum != expected.sum {
		return subtreeStats{}, fmt.Errorf("%w: key %d has stale augmentation (size=%d height=%d sum=%d, want %d/%d/%d)",
			ErrInvariant, n.key, n.size, n.height, n.sum, expected.size, expected.height, expected.sum)
	}
	return expected, nil
}
