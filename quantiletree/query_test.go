package quantiletree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatByOrder(t *testing.T) {
	tree := newLatencyTree(t)

	tests := []struct {
		name     string
		rank     int64
		expected OrderStat
	}{
		{
			name:     "before first rank",
			rank:     -1,
			expected: OrderStat{Key: 10, GT: Partition{3, 5}, Found: true},
		},
		{
			name:     "first rank",
			rank:     0,
			expected: OrderStat{Key: 10, EQ: Partition{1, 3}, GT: Partition{2, 2}, Found: true},
		},
		{
			name:     "last rank of heavy bucket",
			rank:     2,
			expected: OrderStat{Key: 10, EQ: Partition{1, 3}, GT: Partition{2, 2}, Found: true},
		},
		{
			name:     "middle bucket",
			rank:     3,
			expected: OrderStat{Key: 20, LT: Partition{1, 3}, EQ: Partition{1, 1}, GT: Partition{1, 1}, Found: true},
		},
		{
			name:     "last rank",
			rank:     4,
			expected: OrderStat{Key: 30, LT: Partition{2, 4}, EQ: Partition{1, 1}, Found: true},
		},
		{
			name:     "past last rank",
			rank:     5,
			expected: OrderStat{Key: 30, LT: Partition{3, 5}, Found: true},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tree.StatByOrder(tc.rank))
		})
	}
}

func TestStatByOrderOnEmptyTree(t *testing.T) {
	tree := New()

	assert.Equal(t, OrderStat{}, tree.StatByOrder(0))
	assert.Empty(t, tree.StatByOrders(0, 1, 2))
}

func TestStatByOrdersMatchesSingleQueries(t *testing.T) {
	tree := newLatencyTree(t)

	// When ranks are unsorted and repeated
	stats := tree.StatByOrders(4, -1, 3, 0, 3, 5, 2)

	// Then
	assert.Len(t, stats, 6)
	for rank, stat := range stats {
		assert.Equal(t, tree.StatByOrder(rank), stat, "rank %d", rank)
	}
	assert.Empty(t, tree.StatByOrders())
}

func TestStatByValue(t *testing.T) {
	tree := newLatencyTree(t)

	tests := []struct {
		key      int64
		expected ValueStat
	}{
		{5, ValueStat{GT: Partition{3, 5}}},
		{10, ValueStat{LTE: Partition{1, 3}, GT: Partition{2, 2}}},
		{15, ValueStat{LTE: Partition{1, 3}, GT: Partition{2, 2}}},
		{20, ValueStat{LTE: Partition{2, 4}, GT: Partition{1, 1}}},
		{30, ValueStat{LTE: Partition{3, 5}}},
		{35, ValueStat{LTE: Partition{3, 5}}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, tree.StatByValue(tc.key), "key %d", tc.key)
	}

	batch := tree.StatByValues(35, 5, 20, 15, 10, 30, 20)
	assert.Len(t, batch, 6)
	for _, tc := range tests {
		assert.Equal(t, tc.expected, batch[tc.key], "key %d", tc.key)
	}
}

func TestStatByValuesOnEmptyTree(t *testing.T) {
	tree := New()

	stats := tree.StatByValues(1, 2)

	assert.Equal(t, map[int64]ValueStat{1: {}, 2: {}}, stats)
	assert.Equal(t, ValueStat{}, tree.StatByValue(3))
	assert.Empty(t, tree.StatByValues())
}

func TestTotals(t *testing.T) {
	tree := newLatencyTree(t)

	assert.Equal(t, Totals{Count: 3, Weight: 5}, tree.Totals())
	assert.Equal(t, Totals{}, New().Totals())
}
