// Package lagmonitor measures Go scheduler lag by sampling how late a periodic ticker fires, and periodically publishes
// percentiles of the delays.
//
// Each sample is the time elapsed since the previous sample minus the sample interval, truncated down to a whole
// microsecond bucket in a quantiletree.Tree. Every publish interval the tree is summarized into a DataEvent and cleared
// for the next window.
package lagmonitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/failsafe-go/lagmon/internal/util"
	"github.com/failsafe-go/lagmon/quantiletree"
)

// DataEvent summarizes the scheduler delays sampled during one publish window. Percentiles of an empty window are 0.
type DataEvent struct {
	P50  time.Duration
	P90  time.Duration
	P95  time.Duration
	P99  time.Duration
	P100 time.Duration

	// Percentiles holds every configured percentile, including the ones above.
	Percentiles map[float64]time.Duration

	// Samples is the number of samples in the window.
	Samples int64

	// Buckets is the number of distinct microsecond delays in the window.
	Buckets int

	// MeanDelay is a moving average of the delay, carried across windows.
	MeanDelay time.Duration

	// StallRate is the fraction of the most recent samples, across windows, whose delay reached the stall threshold.
	StallRate float64

	// StalledTicks is the number of stalled samples among the most recent samples.
	StalledTicks uint

	Time time.Time
}

// Monitor samples scheduler lag and publishes DataEvents.
//
// This type is concurrency safe.
type Monitor interface {
	// Run samples and publishes until the ctx is done, then returns nil. Run should not be used together with Start.
	Run(ctx context.Context) error

	// Start runs the monitor in the background. Does nothing if the monitor was already started.
	Start()

	// Stop stops a monitor started with Start and waits for it to finish. Samples of the current window are kept.
	Stop()

	// Resume stops the monitor if it is running and starts it again with the publishInterval. A publishInterval <= 0
	// restores the default of 4s. The stall window and the mean delay start over, while samples of the current window
	// are kept.
	Resume(publishInterval time.Duration)

	// IsRunning returns whether the monitor was started and not stopped.
	IsRunning() bool

	// Last returns the most recently published DataEvent, and false if nothing was published yet.
	Last() (DataEvent, bool)
}

type monitor struct {
	*config

	// Guards Start, Stop, and Resume
	runMtx sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	mtx sync.Mutex
	// Guarded by mtx
	publishInterval time.Duration
	sinceTick       util.Stopwatch
	tree            *quantiletree.Tree
	stalls          *util.RollingFlags
	meanDelay       util.MovingAverage
	last            *DataEvent
}

var _ Monitor = &monitor{}

func (m *monitor) Run(ctx context.Context) error {
	m.mtx.Lock()
	publishInterval := m.publishInterval
	m.sinceTick = util.NewStopwatch(m.clock)
	m.mtx.Unlock()

	m.debug(ctx, "lag monitor started", "sampleInterval", m.sampleInterval, "publishInterval", publishInterval)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return every(ctx, m.sampleInterval, m.tick)
	})
	g.Go(func() error {
		return every(ctx, publishInterval, m.publish)
	})
	err := g.Wait()
	m.debug(context.Background(), "lag monitor stopped")
	return err
}

// every calls fn on each tick of the interval until the ctx is done.
func every(ctx context.Context, interval time.Duration, fn func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn()
		}
	}
}

func (m *monitor) Start() {
	m.runMtx.Lock()
	defer m.runMtx.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()
}

func (m *monitor) Stop() {
	m.runMtx.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.done = nil
	m.runMtx.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (m *monitor) Resume(publishInterval time.Duration) {
	m.Stop()
	if publishInterval <= 0 {
		publishInterval = DefaultPublishInterval
	}
	m.mtx.Lock()
	m.publishInterval = publishInterval
	discarded := m.stalls.Len()
	m.stalls.Reset()
	m.meanDelay.Reset()
	m.mtx.Unlock()

	m.debug(context.Background(), "lag monitor resumed", "publishInterval", publishInterval, "discardedStallSamples",
		discarded)
	m.Start()
}

func (m *monitor) IsRunning() bool {
	m.runMtx.Lock()
	defer m.runMtx.Unlock()
	return m.cancel != nil
}

func (m *monitor) Last() (DataEvent, bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.last == nil {
		return DataEvent{}, false
	}
	return *m.last, true
}

// tick records the delay of the current sample relative to the previous one.
func (m *monitor) tick() {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	delay := m.sinceTick.ElapsedTime() - m.sampleInterval
	m.sinceTick.Reset()
	m.tree.Increment(bucketOf(delay))
	m.stalls.Add(delay >= m.stallThreshold)
	m.meanDelay.AddDuration(max(delay, 0))
}

// bucketOf returns the delay in whole microseconds, rounded toward negative infinity.
func bucketOf(delay time.Duration) int64 {
	key := int64(delay / time.Microsecond)
	if delay%time.Microsecond < 0 {
		key--
	}
	return key
}

// publish summarizes and clears the current window, then calls the listener outside the lock.
func (m *monitor) publish() {
	m.mtx.Lock()
	stats := m.tree.StatByPercentiles(m.percentiles...)
	totals := m.tree.Totals()
	m.tree.Clear()

	event := DataEvent{
		Percentiles:  make(map[float64]time.Duration, len(m.percentiles)),
		Samples:      totals.Weight,
		Buckets:      totals.Count,
		MeanDelay:    m.meanDelay.Duration(),
		StallRate:    m.stalls.Ratio(),
		StalledTicks: m.stalls.Count(),
		Time:         time.Unix(0, m.clock.CurrentUnixNano()),
	}
	for _, p := range m.percentiles {
		// Missing percentiles of an empty window read as 0
		event.Percentiles[p] = time.Duration(stats[p].Bucket()) * time.Microsecond
	}
	event.P50 = event.Percentiles[.5]
	event.P90 = event.Percentiles[.9]
	event.P95 = event.Percentiles[.95]
	event.P99 = event.Percentiles[.99]
	event.P100 = event.Percentiles[1]
	m.last = &event
	m.mtx.Unlock()

	m.debug(context.Background(), "lag published", "samples", event.Samples, "p50", event.P50, "p99", event.P99,
		"p100", event.P100, "stallRate", event.StallRate)
	if m.onData != nil {
		m.onData(event)
	}
}

func (m *monitor) debug(ctx context.Context, msg string, args ...any) {
	if m.logger != nil && m.logger.Enabled(ctx, slog.LevelDebug) {
		m.logger.Debug(msg, args...)
	}
}
