package quantiletree

import (
	"math/rand"
	"testing"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// oracle mirrors a tree with a sorted map of key to weight.
type oracle struct {
	*treemap.Map
}

func newOracle() *oracle {
	return &oracle{treemap.NewWith(utils.Int64Comparator)}
}

func (o *oracle) weight(key int64) int64 {
	if w, ok := o.Get(key); ok {
		return w.(int64)
	}
	return 0
}

func (o *oracle) entries() []Entry {
	entries := make([]Entry, 0, o.Size())
	it := o.Iterator()
	for it.Next() {
		entries = append(entries, Entry{Key: it.Key().(int64), Weight: it.Value().(int64)})
	}
	return entries
}

// expanded returns every key repeated by its weight, in ascending order.
func (o *oracle) expanded() []int64 {
	var keys []int64
	for _, entry := range o.entries() {
		for i := int64(0); i < entry.Weight; i++ {
			keys = append(keys, entry.Key)
		}
	}
	return keys
}

func TestRandomOperationsMatchOracle(t *testing.T) {
	for seed := int64(1); seed <= 40; seed++ {
		rnd := rand.New(rand.NewSource(seed))
		tree := NewBuilder().WithInvariantChecks(true).Build()
		expected := newOracle()

		for op := 0; op < 300; op++ {
			key := int64(rnd.Intn(40))
			current := expected.weight(key)
			if current > 0 && rnd.Intn(3) == 0 {
				delta := int64(rnd.Intn(int(current))) + 1
				require.NoError(t, tree.Subtract(key, delta))
				if current == delta {
					expected.Remove(key)
				} else {
					expected.Put(key, current-delta)
				}
			} else {
				delta := int64(rnd.Intn(4)) + 1
				require.NoError(t, tree.Add(key, delta))
				expected.Put(key, current+delta)
			}
		}

		// Weightless inner nodes may remain, so compare only weighted buckets
		var weighted []Entry
		for _, entry := range tree.ToOrderedPairs() {
			if entry.Weight > 0 {
				weighted = append(weighted, entry)
			}
		}
		assert.Equal(t, expected.entries(), weighted, "seed %d", seed)

		keys := expected.expanded()
		ranks := make([]int64, len(keys))
		for i := range keys {
			ranks[i] = int64(i)
		}
		stats := tree.StatByOrders(ranks...)
		for i, key := range keys {
			assert.Equal(t, key, stats[int64(i)].Key, "seed %d rank %d", seed, i)
		}
	}
}

func TestRandomValueQueriesMatchOracle(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	tree := New()
	expected := newOracle()
	for i := 0; i < 500; i++ {
		key := int64(rnd.Intn(200))
		tree.Increment(key)
		expected.Put(key, expected.weight(key)+1)
	}

	probes := []int64{-1, 0, 50, 99, 100, 150, 199, 250}
	stats := tree.StatByValues(probes...)

	for _, probe := range probes {
		var lte Partition
		for _, entry := range expected.entries() {
			if entry.Key <= probe {
				lte = lte.Add(Partition{Count: 1, Weight: entry.Weight})
			}
		}
		assert.Equal(t, lte, stats[probe].LTE, "probe %d", probe)
		assert.Equal(t, tree.Totals(), stats[probe].LTE.Add(stats[probe].GT), "probe %d", probe)
	}
}
