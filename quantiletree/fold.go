package quantiletree

import (
	"fmt"
	"iter"
	"strings"
)

// Entry is a bucket key and its weight.
type Entry struct {
	Key    int64
	Weight int64
}

// Fold walks the tree in ascending key order, calling fn with the accumulated value, each bucket, and the bucket's
// zero-based position among the distinct keys. Returns ErrInvalidArgument if fn is nil.
func Fold[A any](t *Tree, initial A, fn func(acc A, entry Entry, rank int) A) (A, error) {
	if fn == nil {
		return initial, fmt.Errorf("%w: fold function is nil", ErrInvalidArgument)
	}
	if t == nil {
		return initial, nil
	}
	return foldNode(t.root, 0, initial, fn), nil
}

func foldNode[A any](n *node, offset int, acc A, fn func(A, Entry, int) A) A {
	if n == nil {
		return acc
	}
	acc = foldNode(n.left, offset, acc, fn)
	rank := offset + sizeOf(n.left)
	acc = fn(acc, Entry{Key: n.key, Weight: n.weight}, rank)
	return foldNode(n.right, rank+1, acc, fn)
}

// All returns an iterator over the buckets in ascending key order, yielding each bucket's position among the distinct
// keys along with it.
func (t *Tree) All() iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		t.Each(func(entry Entry, rank int) bool {
			return yield(rank, entry)
		})
	}
}

// Each calls fn for every bucket in ascending key order, stopping early if fn returns false.
func (t *Tree) Each(fn func(entry Entry, rank int) bool) {
	if fn == nil {
		return
	}
	eachNode(t.root, 0, fn)
}

func eachNode(n *node, offset int, fn func(Entry, int) bool) bool {
	if n == nil {
		return true
	}
	if !eachNode(n.left, offset, fn) {
		return false
	}
	rank := offset + sizeOf(n.left)
	if !fn(Entry{Key: n.key, Weight: n.weight}, rank) {
		return false
	}
	return eachNode(n.right, rank+1, fn)
}

// ToOrderedPairs returns the buckets in ascending key order.
func (t *Tree) ToOrderedPairs() []Entry {
	pairs, _ := Fold(t, make([]Entry, 0, t.Len()), func(pairs []Entry, entry Entry, _ int) []Entry {
		return append(pairs, entry)
	})
	return pairs
}

// ToMap returns the weight of every bucket keyed by bucket key.
func (t *Tree) ToMap() map[int64]int64 {
	m, _ := Fold(t, make(map[int64]int64, t.Len()), func(m map[int64]int64, entry Entry, _ int) map[int64]int64 {
		m[entry.Key] = entry.Weight
		return m
	})
	return m
}

func (t *Tree) String() string {
	var sb strings.Builder
	sb.WriteString("QuantileTree[")
	t.Each(func(entry Entry, rank int) bool {
		if rank > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d:%d", entry.Key, entry.Weight)
		return true
	})
	sb.WriteString("]")
	return sb.String()
}
