// Package promlag exports scheduler lag and recorded latencies as Prometheus metrics.
package promlag

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/failsafe-go/lagmon/lagmonitor"
	"github.com/failsafe-go/lagmon/latency"
)

// LagMetrics holds the gauges and counters updated from lagmonitor DataEvents.
type LagMetrics struct {
	lag       *prometheus.GaugeVec
	meanDelay prometheus.Gauge
	stallRate prometheus.Gauge
	samples   prometheus.Counter
	publishes prometheus.Counter
}

// NewLagMetrics creates lag metrics under the namespace and registers them with the reg.
func NewLagMetrics(reg prometheus.Registerer, namespace string) *LagMetrics {
	factory := promauto.With(reg)
	return &LagMetrics{
		lag: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_lag_seconds",
			Help:      "Scheduler lag percentiles over the last publish window",
		}, []string{"quantile"}),
		meanDelay: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_lag_mean_seconds",
			Help:      "Moving average of the scheduler lag",
		}),
		stallRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_stall_ratio",
			Help:      "Fraction of recent samples whose lag reached the stall threshold",
		}),
		samples: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_lag_samples_total",
			Help:      "Total number of scheduler lag samples",
		}),
		publishes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_lag_publishes_total",
			Help:      "Total number of published lag windows",
		}),
	}
}

// Observe updates the metrics from the event. It can be registered directly with lagmonitor.Builder.OnData.
func (m *LagMetrics) Observe(event lagmonitor.DataEvent) {
	for p, d := range event.Percentiles {
		m.lag.WithLabelValues(quantileLabel(p)).Set(d.Seconds())
	}
	m.meanDelay.Set(event.MeanDelay.Seconds())
	m.stallRate.Set(event.StallRate)
	m.samples.Add(float64(event.Samples))
	m.publishes.Inc()
}

func quantileLabel(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// recorderCollector exposes a latency.Recorder as a summary, computed when collected.
type recorderCollector struct {
	recorder latency.Recorder
	desc     *prometheus.Desc
	buckets  *prometheus.Desc
}

var _ prometheus.Collector = &recorderCollector{}

// NewRecorderCollector returns a Collector that exposes the recorder as a summary named name, with the recorder's
// configured percentiles as quantiles, plus a gauge of its distinct buckets. The constLabels may be nil.
func NewRecorderCollector(recorder latency.Recorder, name string, help string, constLabels prometheus.Labels) prometheus.Collector {
	return &recorderCollector{
		recorder: recorder,
		desc:     prometheus.NewDesc(name, help, nil, constLabels),
		buckets:  prometheus.NewDesc(name+"_buckets", "Number of distinct latency buckets held", nil, constLabels),
	}
}

func (c *recorderCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
	ch <- c.buckets
}

func (c *recorderCollector) Collect(ch chan<- prometheus.Metric) {
	snapshot := c.recorder.Snapshot()
	quantiles := make(map[float64]float64, len(snapshot.Percentiles))
	for p, d := range snapshot.Percentiles {
		quantiles[p] = d.Seconds()
	}
	ch <- prometheus.MustNewConstSummary(c.desc, uint64(snapshot.Count), snapshot.Sum.Seconds(), quantiles)
	ch <- prometheus.MustNewConstMetric(c.buckets, prometheus.GaugeValue, float64(snapshot.Buckets))
}
