package latency

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBucket(t *testing.T) {
	assert.Equal(t, int64(0), Bucket(-time.Second, time.Microsecond))
	assert.Equal(t, int64(0), Bucket(999*time.Nanosecond, time.Microsecond))
	assert.Equal(t, int64(1500), Bucket(1500*time.Microsecond, time.Microsecond))
	assert.Equal(t, int64(1), Bucket(1900*time.Microsecond, time.Millisecond))
}

func TestRecorderPercentiles(t *testing.T) {
	recorder := NewBuilder().WithResolution(time.Millisecond).Build()

	// Given 3 fast and 2 slow requests
	for i := 0; i < 3; i++ {
		recorder.Record(10 * time.Millisecond)
	}
	recorder.Record(20 * time.Millisecond)
	recorder.Record(30*time.Millisecond + 400*time.Microsecond)

	// When / Then
	percentiles := recorder.Percentiles()
	assert.Equal(t, 10*time.Millisecond, percentiles[.5])
	assert.Equal(t, 25*time.Millisecond, percentiles[.9])
	assert.Equal(t, 30*time.Millisecond, percentiles[1])

	p99, ok := recorder.Percentile(.99)
	assert.True(t, ok)
	assert.Equal(t, 29*time.Millisecond, p99)
}

func TestRecorderSnapshot(t *testing.T) {
	recorder := NewBuilder().WithPercentiles(.5).Build()
	recorder.Record(5 * time.Microsecond)
	recorder.Record(7 * time.Microsecond)
	recorder.Record(7 * time.Microsecond)

	snapshot := recorder.Snapshot()

	assert.Equal(t, Snapshot{
		Count:       3,
		Buckets:     2,
		Sum:         19 * time.Microsecond,
		Min:         5 * time.Microsecond,
		Max:         7 * time.Microsecond,
		Percentiles: map[float64]time.Duration{.5: 6 * time.Microsecond},
	}, snapshot)
}

func TestRecorderEmpty(t *testing.T) {
	recorder := New()

	_, ok := recorder.Percentile(.5)
	assert.False(t, ok)
	assert.Empty(t, recorder.Percentiles())
	assert.Equal(t, Snapshot{Percentiles: map[float64]time.Duration{}}, recorder.Snapshot())
}

func TestRecorderReset(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	recorder := NewBuilder().WithLogger(logger).Build()
	recorder.Record(time.Millisecond)
	recorder.Record(time.Millisecond)

	recorder.Reset()

	assert.Equal(t, int64(0), recorder.Snapshot().Count)
	assert.Contains(t, buf.String(), "discarded=2")
}

func TestRecorderConcurrentRecords(t *testing.T) {
	recorder := New()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				recorder.Record(time.Duration(g*250+i) * time.Microsecond)
			}
		}(g)
	}
	wg.Wait()

	snapshot := recorder.Snapshot()
	assert.Equal(t, int64(2000), snapshot.Count)
	assert.Equal(t, 2000, snapshot.Buckets)
	assert.Equal(t, time.Duration(0), snapshot.Min)
	assert.Equal(t, 1999*time.Microsecond, snapshot.Max)
	assert.Equal(t, 1999*1000*time.Microsecond, snapshot.Sum)
}
