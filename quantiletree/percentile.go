package quantiletree

import (
	"math"
)

// PercentileStat describes the (possibly interpolated) key at a percentile.
type PercentileStat struct {
	Percentile float64
	// Key is the bucket key at the percentile, linearly interpolated when the percentile falls between two buckets.
	Key float64
	LT  Partition
	// EQ is empty when the key is interpolated, since an interpolated point owns no weight.
	EQ           Partition
	GT           Partition
	Interpolated bool
}

// Bucket returns Key truncated down to its integer bucket.
func (s PercentileStat) Bucket() int64 {
	return int64(math.Floor(s.Key))
}

func percentileStatFrom(p float64, s OrderStat) PercentileStat {
	return PercentileStat{
		Percentile: p,
		Key:        float64(s.Key),
		LT:         s.LT,
		EQ:         s.EQ,
		GT:         s.GT,
	}
}

// StatByPercentile returns the stat at percentile p in (0, 1]. Returns false when the tree has no weight, since a
// percentile of no data is undefined.
func (t *Tree) StatByPercentile(p float64) (PercentileStat, bool) {
	stats := t.StatByPercentiles(p)
	stat, ok := stats[p]
	return stat, ok
}

// StatByPercentiles resolves every percentile in (0, 1] with a single batched rank query and returns the stats keyed by
// percentile. Percentiles outside the range are clamped to the first or last rank, and NaN is ignored. Returns an
// empty map when the tree has no weight.
func (t *Tree) StatByPercentiles(percentiles ...float64) map[float64]PercentileStat {
	result := make(map[float64]PercentileStat, len(percentiles))
	total := t.Weight()
	if len(percentiles) == 0 || total <= 0 {
		return result
	}

	n := float64(total)
	ranks := make([]int64, 0, 2*len(percentiles))
	for _, p := range percentiles {
		if math.IsNaN(p) {
			continue
		}
		lower, upper, _ := orderIndexes(p, n)
		ranks = append(ranks, lower, upper)
	}
	if len(ranks) == 0 {
		return result
	}
	stats := t.StatByOrders(ranks...)

	for _, p := range percentiles {
		if math.IsNaN(p) {
			continue
		}
		lowerRank, upperRank, k := orderIndexes(p, n)
		lower, upper := stats[lowerRank], stats[upperRank]
		if lower.Key == upper.Key {
			result[p] = percentileStatFrom(p, lower)
			continue
		}

		fraction := k - math.Floor(k)
		result[p] = PercentileStat{
			Percentile:   p,
			Key:          float64(lower.Key) + fraction*float64(upper.Key-lower.Key),
			LT:           lower.LT.Add(lower.EQ),
			GT:           upper.GT.Add(upper.EQ),
			Interpolated: true,
		}
	}
	return result
}

// orderIndexes returns the ranks bounding the fractional order index k = p*n - 1, clamped to [0, n-1].
func orderIndexes(p float64, n float64) (lower int64, upper int64, k float64) {
	k = p*n - 1
	switch {
	case k <= 0:
		return 0, 0, k
	case k >= n-1:
		last := int64(n) - 1
		return last, last, k
	default:
		return int64(math.Floor(k)), int64(math.Ceil(k)), k
	}
}
