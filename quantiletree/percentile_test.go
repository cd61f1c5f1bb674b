package quantiletree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatByPercentile(t *testing.T) {
	tree := newLatencyTree(t)

	median, ok := tree.StatByPercentile(0.5)
	assert.True(t, ok)
	assert.Equal(t, 10.0, median.Key)
	assert.False(t, median.Interpolated)
	assert.Equal(t, Partition{1, 3}, median.EQ)

	low, _ := tree.StatByPercentile(0.2)
	assert.Equal(t, int64(10), low.Bucket())

	highest, _ := tree.StatByPercentile(1)
	assert.Equal(t, PercentileStat{
		Percentile: 1,
		Key:        30,
		LT:         Partition{2, 4},
		EQ:         Partition{1, 1},
	}, highest)
}

func TestStatByPercentileInterpolates(t *testing.T) {
	tree := newLatencyTree(t)

	// When p90 falls between the last rank of 20 and the first of 30
	stat, ok := tree.StatByPercentile(0.9)

	// Then
	assert.True(t, ok)
	assert.True(t, stat.Interpolated)
	assert.InDelta(t, 25.0, stat.Key, 1e-9)
	assert.Equal(t, Partition{2, 4}, stat.LT)
	assert.Equal(t, Partition{}, stat.EQ)
	assert.Equal(t, Partition{1, 1}, stat.GT)
}

func TestStatByPercentileTwoBuckets(t *testing.T) {
	tree := New()
	tree.Increment(10)
	tree.Increment(20)

	stats := tree.StatByPercentiles(0.5, 0.75, 0.6)

	assert.Equal(t, 10.0, stats[0.5].Key)
	assert.Equal(t, Partition{1, 1}, stats[0.5].EQ)
	assert.Equal(t, Partition{1, 1}, stats[0.5].GT)
	assert.InDelta(t, 15.0, stats[0.75].Key, 1e-9)
	assert.True(t, stats[0.75].Interpolated)
	assert.InDelta(t, 12.0, stats[0.6].Key, 1e-9)
}

func TestStatByPercentilesClampsAndSkipsNaN(t *testing.T) {
	tree := newLatencyTree(t)

	stats := tree.StatByPercentiles(0, -1, 2, math.NaN())

	assert.Len(t, stats, 3)
	assert.Equal(t, 10.0, stats[0].Key)
	assert.Equal(t, 10.0, stats[-1].Key)
	assert.Equal(t, 30.0, stats[2].Key)
}

func TestStatByPercentileOnEmptyTree(t *testing.T) {
	tree := New()

	_, ok := tree.StatByPercentile(0.5)

	assert.False(t, ok)
	assert.Empty(t, tree.StatByPercentiles(0.5, 0.99))
}

func TestStatByPercentilesAreMonotone(t *testing.T) {
	tree := New()
	for key := int64(0); key < 100; key++ {
		assert.NoError(t, tree.Add(key*7%101, key%5+1))
	}

	percentiles := []float64{0.01, 0.1, 0.25, 0.5, 0.75, 0.9, 0.95, 0.99, 1}
	stats := tree.StatByPercentiles(percentiles...)

	for i := 1; i < len(percentiles); i++ {
		assert.LessOrEqual(t, stats[percentiles[i-1]].Key, stats[percentiles[i]].Key)
	}
}
