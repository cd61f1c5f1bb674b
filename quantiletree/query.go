package quantiletree

import (
	"slices"
	"sort"
)

// Partition aggregates a set of buckets: the number of distinct keys and their total weight.
type Partition struct {
	Count  int
	Weight int64
}

// Add returns the sum of two partitions.
func (p Partition) Add(o Partition) Partition {
	return Partition{Count: p.Count + o.Count, Weight: p.Weight + o.Weight}
}

// Totals is the tree-wide partition: every bucket.
type Totals = Partition

// OrderStat describes the bucket owning a rank in the ascending, weight-expanded sequence of keys.
type OrderStat struct {
	// Key is the bucket owning the rank.
	Key int64
	// LT aggregates the buckets with keys strictly below Key.
	LT Partition
	// EQ is the bucket's own contribution: Count 1 and its full weight. It is empty for ranks outside [0, Weight).
	EQ Partition
	// GT aggregates the buckets with keys strictly above Key.
	GT Partition
	// Found is false for the sentinel record returned by an empty tree.
	Found bool
}

// ValueStat partitions the tree around a key.
type ValueStat struct {
	// LTE aggregates buckets with keys less than or equal to the queried key.
	LTE Partition
	// GT aggregates buckets with keys strictly greater than the queried key.
	GT Partition
}

// bound carries the partition totals accumulated from ancestors on one side of a subtree, along with the index in the
// query targets where that side begins or ends.
type bound struct {
	i int
	Partition
}

func (b bound) plus(n *node) Partition {
	return Partition{Count: b.Count + sizeOf(n), Weight: b.Weight + sumOf(n)}
}

func (b bound) plusWith(subtree *node, n *node) Partition {
	return Partition{Count: b.Count + sizeOf(subtree) + 1, Weight: b.Weight + sumOf(subtree) + n.weight}
}

// Totals returns the number of buckets and total weight of the tree.
func (t *Tree) Totals() Totals {
	return Partition{Count: sizeOf(t.root), Weight: sumOf(t.root)}
}

// StatByOrder returns the bucket owning the zero-based rank. An empty tree returns a zero record with Found false.
func (t *Tree) StatByOrder(rank int64) OrderStat {
	if t.root == nil {
		return OrderStat{}
	}
	out := make([]OrderStat, 1)
	t.scanByOrder([]int64{rank}, out, bound{i: 0}, bound{i: 1}, t.root)
	return out[0]
}

// StatByOrders resolves every rank in one traversal and returns the records keyed by rank. Ranks need not be sorted
// or distinct. Empty input or an empty tree returns an empty map.
func (t *Tree) StatByOrders(ranks ...int64) map[int64]OrderStat {
	result := make(map[int64]OrderStat, len(ranks))
	if len(ranks) == 0 || t.root == nil {
		return result
	}
	targets := sortedUnique(ranks)
	out := make([]OrderStat, len(targets))
	t.scanByOrder(targets, out, bound{i: 0}, bound{i: len(targets)}, t.root)
	for i, rank := range targets {
		result[rank] = out[i]
	}
	return result
}

// StatByValue partitions the tree around key.
func (t *Tree) StatByValue(key int64) ValueStat {
	if t.root == nil {
		return ValueStat{}
	}
	out := make([]ValueStat, 1)
	t.scanByValue([]int64{key}, out, bound{i: 0}, bound{i: 1}, t.root)
	return out[0]
}

// StatByValues partitions the tree around every key in one traversal and returns the records keyed by key. An empty
// tree partitions every key into two empty sides.
func (t *Tree) StatByValues(keys ...int64) map[int64]ValueStat {
	result := make(map[int64]ValueStat, len(keys))
	if len(keys) == 0 {
		return result
	}
	targets := sortedUnique(keys)
	out := make([]ValueStat, len(targets))
	if t.root != nil {
		t.scanByValue(targets, out, bound{i: 0}, bound{i: len(targets)}, t.root)
	}
	for i, key := range targets {
		result[key] = out[i]
	}
	return result
}

// scanByOrder resolves the sorted ranks in targets[l.i:r.i] against the subtree curr, writing into out at the same
// indexes. l and r carry the buckets before and after curr's subtree.
func (t *Tree) scanByOrder(targets []int64, out []OrderStat, l, r bound, curr *node) {
	lo := l.Weight + sumOf(curr.left) // first rank owned by curr
	hi := lo + curr.weight            // first rank past curr

	eql := l.i + sort.Search(r.i-l.i, func(i int) bool {
		return targets[l.i+i] >= lo
	})

	if l.i < eql {
		if curr.left != nil {
			t.scanByOrder(targets, out, l, bound{i: eql, Partition: r.plusWith(curr.right, curr)}, curr.left)
		} else {
			// Ranks below the first bucket
			for i := l.i; i < eql; i++ {
				out[i] = OrderStat{Key: curr.key, LT: l.Partition, GT: r.plusWith(curr.right, curr), Found: true}
			}
		}
	}

	eqr := eql
	for ; eqr < r.i && targets[eqr] < hi; eqr++ {
		out[eqr] = OrderStat{
			Key:   curr.key,
			LT:    l.plus(curr.left),
			EQ:    Partition{Count: 1, Weight: curr.weight},
			GT:    r.plus(curr.right),
			Found: true,
		}
	}

	if eqr < r.i {
		if curr.right != nil {
			t.scanByOrder(targets, out, bound{i: eqr, Partition: l.plusWith(curr.left, curr)}, r, curr.right)
		} else {
			// Ranks past the last bucket
			for i := eqr; i < r.i; i++ {
				out[i] = OrderStat{Key: curr.key, LT: l.plusWith(curr.left, curr), GT: r.Partition, Found: true}
			}
		}
	}
}

// scanByValue resolves the sorted keys in targets[l.i:r.i] against the subtree curr, writing into out at the same
// indexes.
func (t *Tree) scanByValue(targets []int64, out []ValueStat, l, r bound, curr *node) {
	eql := l.i + sort.Search(r.i-l.i, func(i int) bool {
		return targets[l.i+i] >= curr.key
	})
	eqr := eql
	if eqr < r.i && targets[eqr] == curr.key {
		eqr++
	}

	if l.i < eql {
		if curr.left != nil {
			t.scanByValue(targets, out, l, bound{i: eql, Partition: r.plusWith(curr.right, curr)}, curr.left)
		} else {
			for i := l.i; i < eql; i++ {
				out[i] = ValueStat{LTE: l.Partition, GT: r.plusWith(curr.right, curr)}
			}
		}
	}

	if eql < eqr {
		out[eql] = ValueStat{LTE: l.plusWith(curr.left, curr), GT: r.plus(curr.right)}
	}

	if eqr < r.i {
		if curr.right != nil {
			t.scanByValue(targets, out, bound{i: eqr, Partition: l.plusWith(curr.left, curr)}, r, curr.right)
		} else {
			for i := eqr; i < r.i; i++ {
				out[i] = ValueStat{LTE: l.plusWith(curr.left, curr), GT: r.Partition}
			}
		}
	}
}

func sortedUnique(values []int64) []int64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}
