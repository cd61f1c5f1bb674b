package lagmonitor

import (
	"log/slog"
	"time"

	"github.com/failsafe-go/lagmon/internal/util"
	"github.com/failsafe-go/lagmon/quantiletree"
)

const (
	// DefaultSampleInterval is how often the scheduler delay is sampled.
	DefaultSampleInterval = 10 * time.Millisecond

	// DefaultPublishInterval is how often a DataEvent is published.
	DefaultPublishInterval = 4 * time.Second

	// DefaultStallThreshold is the delay at which a sample counts as a stall.
	DefaultStallThreshold = 50 * time.Millisecond

	// DefaultStallWindow is the number of recent samples the stall rate is computed over.
	DefaultStallWindow uint = 100
)

// DefaultPercentiles are the percentiles published in every DataEvent.
var DefaultPercentiles = []float64{.5, .9, .95, .99, 1}

// Builder builds Monitor instances.
//
// This type is not concurrency safe.
type Builder interface {
	// WithSampleInterval configures how often the scheduler delay is sampled. Defaults to 10ms.
	WithSampleInterval(interval time.Duration) Builder

	// WithPublishInterval configures how often the samples are summarized and published to the OnData listener. Defaults
	// to 4s.
	WithPublishInterval(interval time.Duration) Builder

	// WithPercentiles configures additional percentiles to publish in DataEvent.Percentiles, alongside the defaults.
	WithPercentiles(percentiles ...float64) Builder

	// WithStallThreshold configures the delay at or above which a sample counts as a stall. Defaults to 50ms, and
	// non-positive thresholds are ignored.
	WithStallThreshold(threshold time.Duration) Builder

	// WithStallWindow configures how many recent samples the stall rate is computed over. Defaults to 100.
	WithStallWindow(samples uint) Builder

	// WithLogger configures a logger which provides debug logging of published events and monitor lifecycle.
	WithLogger(logger *slog.Logger) Builder

	// OnData registers the listener to be called with each published DataEvent.
	OnData(listener func(DataEvent)) Builder

	// Build returns a new, stopped Monitor using the builder's configuration.
	Build() Monitor
}

type config struct {
	clock           util.Clock
	sampleInterval  time.Duration
	publishInterval time.Duration
	percentiles     []float64
	stallThreshold  time.Duration
	stallWindow     uint
	logger          *slog.Logger
	onData          func(DataEvent)
}

var _ Builder = &config{}

// NewBuilder returns a Builder for monitors using the default intervals, percentiles, and stall settings.
func NewBuilder() Builder {
	return &config{
		clock:           util.WallClock,
		sampleInterval:  DefaultSampleInterval,
		publishInterval: DefaultPublishInterval,
		percentiles:     DefaultPercentiles,
		stallThreshold:  DefaultStallThreshold,
		stallWindow:     DefaultStallWindow,
	}
}

// New returns a new, stopped Monitor with the default configuration that publishes to the listener.
func New(listener func(DataEvent)) Monitor {
	return NewBuilder().OnData(listener).Build()
}

func (c *config) WithSampleInterval(interval time.Duration) Builder {
	if interval > 0 {
		c.sampleInterval = interval
	}
	return c
}

func (c *config) WithPublishInterval(interval time.Duration) Builder {
	if interval > 0 {
		c.publishInterval = interval
	}
	return c
}

func (c *config) WithPercentiles(percentiles ...float64) Builder {
	merged := append([]float64(nil), DefaultPercentiles...)
	for _, p := range percentiles {
		if p > 0 && p <= 1 {
			merged = append(merged, p)
		}
	}
	c.percentiles = merged
	return c
}

func (c *config) WithStallThreshold(threshold time.Duration) Builder {
	if threshold > 0 {
		c.stallThreshold = threshold
	}
	return c
}

func (c *config) WithStallWindow(samples uint) Builder {
	c.stallWindow = samples
	return c
}

func (c *config) WithLogger(logger *slog.Logger) Builder {
	c.logger = logger
	return c
}

func (c *config) OnData(listener func(DataEvent)) Builder {
	c.onData = listener
	return c
}

func (c *config) Build() Monitor {
	cfg := *c
	return &monitor{
		config:          &cfg,
		publishInterval: cfg.publishInterval,
		sinceTick:       util.NewStopwatch(cfg.clock),
		tree:            quantiletree.NewBuilder().WithLogger(cfg.logger).Build(),
		stalls:          util.NewRollingFlags(cfg.stallWindow),
		meanDelay:       util.NewMovingAverage(max(cfg.stallWindow, 1), 10),
	}
}
