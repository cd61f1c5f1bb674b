// Package latency records durations into a quantile tree of fixed resolution buckets and reports their percentiles.
package latency

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/failsafe-go/lagmon/quantiletree"
)

// DefaultPercentiles are reported when no percentiles are configured.
var DefaultPercentiles = []float64{.5, .9, .95, .99, 1}

// Recorder records durations and reports their percentiles. Durations are truncated to the configured resolution and
// negative durations are recorded as zero.
//
// This type is concurrency safe.
type Recorder interface {
	// Record adds a duration.
	Record(d time.Duration)

	// RecordSince adds the duration elapsed since start.
	RecordSince(start time.Time)

	// Percentile returns the duration at the percentile p in (0, 1], or false when nothing has been recorded.
	Percentile(p float64) (time.Duration, bool)

	// Percentiles returns the durations at the configured percentiles. Returns an empty map when nothing has been
	// recorded.
	Percentiles() map[float64]time.Duration

	// Snapshot returns a summary of the recorded durations.
	Snapshot() Snapshot

	// Reset discards all recorded durations.
	Reset()
}

// Snapshot summarizes the durations held by a Recorder. Sum is the total of the recorded durations, truncated to the
// recorder's resolution.
type Snapshot struct {
	Count       int64
	Buckets     int
	Sum         time.Duration
	Min         time.Duration
	Max         time.Duration
	Percentiles map[float64]time.Duration
}

// Builder builds Recorder instances.
//
// This type is not concurrency safe.
type Builder interface {
	// WithResolution configures the width of a bucket. Defaults to 1 microsecond.
	WithResolution(resolution time.Duration) Builder

	// WithPercentiles configures the percentiles reported by Percentiles and Snapshot.
	WithPercentiles(percentiles ...float64) Builder

	// WithLogger configures a logger which provides debug logging of resets.
	WithLogger(logger *slog.Logger) Builder

	// Build returns a new Recorder using the builder's configuration.
	Build() Recorder
}

type config struct {
	resolution  time.Duration
	percentiles []float64
	logger      *slog.Logger
}

var _ Builder = &config{}

// NewBuilder returns a Builder for recorders with microsecond resolution that report DefaultPercentiles.
func NewBuilder() Builder {
	return &config{
		resolution:  time.Microsecond,
		percentiles: DefaultPercentiles,
	}
}

// New returns a new Recorder with the default configuration.
func New() Recorder {
	return NewBuilder().Build()
}

func (c *config) WithResolution(resolution time.Duration) Builder {
	if resolution > 0 {
		c.resolution = resolution
	}
	return c
}

func (c *config) WithPercentiles(percentiles ...float64) Builder {
	if len(percentiles) > 0 {
		c.percentiles = append([]float64(nil), percentiles...)
	}
	return c
}

func (c *config) WithLogger(logger *slog.Logger) Builder {
	c.logger = logger
	return c
}

func (c *config) Build() Recorder {
	cfg := *c
	return &recorder{
		config: &cfg,
		tree:   quantiletree.NewBuilder().WithLogger(c.logger).Build(),
	}
}

type recorder struct {
	*config

	mu   sync.Mutex
	tree *quantiletree.Tree
}

// Bucket returns the bucket key for d at the resolution. Negative durations map to bucket 0.
func Bucket(d time.Duration, resolution time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(d / resolution)
}

func (r *recorder) Record(d time.Duration) {
	key := Bucket(d, r.resolution)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tree.Increment(key)
}

func (r *recorder) RecordSince(start time.Time) {
	r.Record(time.Since(start))
}

func (r *recorder) Percentile(p float64) (time.Duration, bool) {
	r.mu.Lock()
	stat, ok := r.tree.StatByPercentile(p)
	r.mu.Unlock()
	if !ok {
		return 0, false
	}
	return r.toDuration(stat), true
}

func (r *recorder) Percentiles() map[float64]time.Duration {
	r.mu.Lock()
	stats := r.tree.StatByPercentiles(r.percentiles...)
	r.mu.Unlock()
	return r.toDurations(stats)
}

func (r *recorder) Snapshot() Snapshot {
	r.mu.Lock()
	totals := r.tree.Totals()
	weight := totals.Weight
	var bounds map[int64]quantiletree.OrderStat
	if weight > 0 {
		bounds = r.tree.StatByOrders(0, weight-1)
	}
	stats := r.tree.StatByPercentiles(r.percentiles...)
	sum, _ := quantiletree.Fold(r.tree, int64(0), func(sum int64, entry quantiletree.Entry, _ int) int64 {
		return sum + entry.Key*entry.Weight
	})
	r.mu.Unlock()

	snapshot := Snapshot{
		Count:       weight,
		Buckets:     totals.Count,
		Sum:         time.Duration(sum) * r.resolution,
		Percentiles: r.toDurations(stats),
	}
	if weight > 0 {
		snapshot.Min = time.Duration(bounds[0].Key) * r.resolution
		snapshot.Max = time.Duration(bounds[weight-1].Key) * r.resolution
	}
	return snapshot
}

func (r *recorder) Reset() {
	r.mu.Lock()
	count := r.tree.Weight()
	r.tree.Clear()
	r.mu.Unlock()

	if r.logger != nil && r.logger.Enabled(context.Background(), slog.LevelDebug) {
		r.logger.Debug("latency recorder reset", "discarded", count)
	}
}

func (r *recorder) toDuration(stat quantiletree.PercentileStat) time.Duration {
	return time.Duration(stat.Bucket()) * r.resolution
}

func (r *recorder) toDurations(stats map[float64]quantiletree.PercentileStat) map[float64]time.Duration {
	result := make(map[float64]time.Duration, len(stats))
	for p, stat := range stats {
		result[p] = r.toDuration(stat)
	}
	return result
}
