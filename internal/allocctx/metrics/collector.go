// Package metrics exports allocation context tracker statistics to
// Prometheus.
//
// The tracker hot path only touches per-goroutine state and a few atomic
// counters. Rather than updating Prometheus metrics on every tracker
// creation, the Collector reads the counters at scrape time.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kolkov/allocctx/internal/allocctx/api"
)

// StatsFunc returns the registry statistics to export.
type StatsFunc func() api.Stats

// Collector is a prometheus.Collector over tracker registry statistics.
type Collector struct {
	stats StatsFunc

	captureEnabled   *prometheus.Desc
	liveTrackers     *prometheus.Desc
	createdTrackers  *prometheus.Desc
	releasedTrackers *prometheus.Desc
	sweptTrackers    *prometheus.Desc
	sweeps           *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector reading api.GetStats.
func NewCollector(namespace string) *Collector {
	return NewCollectorFunc(namespace, api.GetStats)
}

// NewCollectorFunc returns a collector reading stats.
func NewCollectorFunc(namespace string, stats StatsFunc) *Collector {
	name := func(n string) string {
		return prometheus.BuildFQName(namespace, "allocctx", n)
	}
	return &Collector{
		stats: stats,
		captureEnabled: prometheus.NewDesc(name("capture_enabled"),
			"Whether allocation context capture is enabled (1) or not (0).", nil, nil),
		liveTrackers: prometheus.NewDesc(name("trackers_live"),
			"Number of registered per-goroutine trackers.", nil, nil),
		createdTrackers: prometheus.NewDesc(name("trackers_created_total"),
			"Total number of per-goroutine trackers created.", nil, nil),
		releasedTrackers: prometheus.NewDesc(name("trackers_released_total"),
			"Total number of trackers destroyed by an explicit release.", nil, nil),
		sweptTrackers: prometheus.NewDesc(name("trackers_swept_total"),
			"Total number of trackers reclaimed after their goroutine exited.", nil, nil),
		sweeps: prometheus.NewDesc(name("sweeps_total"),
			"Total number of tracker sweeps.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.captureEnabled
	ch <- c.liveTrackers
	ch <- c.createdTrackers
	ch <- c.releasedTrackers
	ch <- c.sweptTrackers
	ch <- c.sweeps
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()

	enabled := 0.0
	if s.CaptureEnabled {
		enabled = 1
	}

	ch <- prometheus.MustNewConstMetric(c.captureEnabled, prometheus.GaugeValue, enabled)
	ch <- prometheus.MustNewConstMetric(c.liveTrackers, prometheus.GaugeValue, float64(s.LiveTrackers))
	ch <- prometheus.MustNewConstMetric(c.createdTrackers, prometheus.CounterValue, float64(s.CreatedTrackers))
	ch <- prometheus.MustNewConstMetric(c.releasedTrackers, prometheus.CounterValue, float64(s.ReleasedTrackers))
	ch <- prometheus.MustNewConstMetric(c.sweptTrackers, prometheus.CounterValue, float64(s.SweptTrackers))
	ch <- prometheus.MustNewConstMetric(c.sweeps, prometheus.CounterValue, float64(s.Sweeps))
}
