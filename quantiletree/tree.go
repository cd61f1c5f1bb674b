// Package quantiletree provides a weighted Cartesian tree for streaming percentile statistics over integer bucket keys.
//
// Each node is a bucket: it is ordered by key as a binary search tree and by weight as a max-heap, so heavy buckets sit
// near the root. Nodes carry their subtree size, height and weight sum, which lets batched rank, value and percentile
// queries run in time proportional to the tree height plus the number of results rather than the number of samples.
package quantiletree

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

// Builder builds Tree instances.
//
// This type is not concurrency safe.
type Builder interface {
	// WithLogger configures a logger which provides debug logging of bucket creation and removal.
	WithLogger(logger *slog.Logger) Builder

	// WithInvariantChecks enables verification of every structural invariant after each mutation. A violation panics
	// with an *InvariantError. This is expensive and meant for tests and debugging.
	WithInvariantChecks(enabled bool) Builder

	// Build returns a new, empty Tree using the builder's configuration.
	Build() *Tree
}

type config struct {
	logger          *slog.Logger
	checkInvariants bool
}

var _ Builder = &config{}

// NewBuilder returns a Builder for trees with no logging and no invariant checks.
func NewBuilder() Builder {
	return &config{}
}

func (c *config) WithLogger(logger *slog.Logger) Builder {
	c.logger = logger
	return c
}

func (c *config) WithInvariantChecks(enabled bool) Builder {
	c.checkInvariants = enabled
	return c
}

func (c *config) Build() *Tree {
	cfg := *c
	return &Tree{config: &cfg}
}

// New returns a new, empty Tree with the default configuration.
func New() *Tree {
	return NewBuilder().Build()
}

// Tree is a weight-ordered, key-ordered balanced search tree of buckets. The zero value is not usable, use New or
// NewBuilder.
//
// This type is not concurrency safe. Callers that share a Tree between goroutines must serialize all mutations and
// queries.
type Tree struct {
	*config
	root *node
}

// Len returns the number of distinct keys in the tree.
func (t *Tree) Len() int {
	return sizeOf(t.root)
}

// Weight returns the total weight of all buckets in the tree.
func (t *Tree) Weight() int64 {
	return sumOf(t.root)
}

// Height returns the height of the tree, where 0 means empty.
func (t *Tree) Height() int {
	return heightOf(t.root)
}

// IsEmpty reports whether the tree holds no buckets.
func (t *Tree) IsEmpty() bool {
	return t.root == nil
}

// Get returns the weight of the bucket for key, and whether the bucket exists.
func (t *Tree) Get(key int64) (int64, bool) {
	if n := t.find(key); n != nil {
		return n.weight, true
	}
	return 0, false
}

// Clear removes every bucket from the tree.
func (t *Tree) Clear() {
	t.root = nil
}

// Increment adds 1 to the weight of key.
func (t *Tree) Increment(key int64) {
	_ = t.Add(key, 1)
}

// Decrement subtracts 1 from the weight of key. See Subtract.
func (t *Tree) Decrement(key int64) error {
	return t.Subtract(key, 1)
}

// Add increases the weight of key by delta, creating the bucket if it does not exist yet. A negative delta is handled
// by Subtract, and a zero delta does nothing. Returns ErrInvalidArgument for a delta of math.MinInt64 and
// ErrWeightOverflow if the total weight would exceed math.MaxInt64, in which case the tree is not modified.
func (t *Tree) Add(key int64, delta int64) error {
	if delta == 0 {
		return nil
	}
	if delta == math.MinInt64 {
		return fmt.Errorf("%w: delta %d", ErrInvalidArgument, delta)
	}
	if delta < 0 {
		return t.Subtract(key, -delta)
	}
	if sumOf(t.root) > math.MaxInt64-delta {
		return ErrWeightOverflow
	}

	n := t.insert(key)
	n.weight += delta
	t.bubbleUp(n)
	t.verify("add", key)
	return nil
}

// Subtract decreases the weight of key by delta. A bucket whose weight reaches 0 while it has no children is removed.
// Returns ErrKeyNotFound if key has no bucket and ErrNegativeWeight if the bucket's weight would drop below 0, in
// which case the tree is not modified. A negative delta is handled by Add, and math.MinInt64 is rejected with
// ErrInvalidArgument.
func (t *Tree) Subtract(key int64, delta int64) error {
	if delta == 0 {
		return nil
	}
	if delta == math.MinInt64 {
		return fmt.Errorf("%w: delta %d", ErrInvalidArgument, delta)
	}
	if delta < 0 {
		return t.Add(key, -delta)
	}

	n := t.find(key)
	if n == nil {
		return ErrKeyNotFound
	}
	if n.weight < delta {
		return ErrNegativeWeight
	}
	n.weight -= delta
	t.dropDown(n)
	t.verify("subtract", key)
	return nil
}

func (t *Tree) find(key int64) *node {
	curr := t.root
	for curr != nil && curr.key != key {
		if key < curr.key {
			curr = curr.left
		} else {
			curr = curr.right
		}
	}
	return curr
}

// insert finds the node for key, linking a new zero weight leaf if there is none.
func (t *Tree) insert(key int64) *node {
	var parent *node
	curr := t.root
	for curr != nil {
		if key == curr.key {
			return curr
		}
		parent = curr
		if key < curr.key {
			curr = curr.left
		} else {
			curr = curr.right
		}
	}

	n := newNode(key)
	n.parent = parent
	switch {
	case parent == nil:
		t.root = n
	case key < parent.key:
		parent.left = n
	default:
		parent.right = n
	}
	t.debug("bucket created", "key", key)
	return n
}

// detach unlinks a leaf from its parent, or clears the root, and returns the former parent.
func (t *Tree) detach(n *node) *node {
	parent := n.parent
	switch {
	case parent == nil:
		t.root = nil
	case parent.left == n:
		parent.left = nil
	default:
		parent.right = nil
	}
	n.parent = nil
	if parent != nil {
		refreshNode(parent)
	}
	t.debug("bucket removed", "key", n.key)
	return parent
}

func (t *Tree) verify(op string, key int64) {
	if !t.checkInvariants {
		return
	}
	if err := t.Check(); err != nil {
		panic(&InvariantError{Op: op, Key: key, Err: err})
	}
}

func (t *Tree) debug(msg string, args ...any) {
	if t.logger != nil && t.logger.Enabled(context.Background(), slog.LevelDebug) {
		t.logger.Debug(msg, args...)
	}
}
