package heapprofile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of a Recorder.
type Metrics struct {
	AllocationsRecorded prometheus.Counter
	FreesRecorded       prometheus.Counter
	AllocationsSkipped  prometheus.Counter
	LiveBytes           prometheus.Gauge
	LiveAllocations     prometheus.Gauge
	Contexts            prometheus.Gauge
}

// NewMetrics creates recorder metrics registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AllocationsRecorded: f.NewCounter(prometheus.CounterOpts{
			Name: "allocctx_heap_allocations_recorded_total",
			Help: "Total number of sampled allocations recorded with their context",
		}),
		FreesRecorded: f.NewCounter(prometheus.CounterOpts{
			Name: "allocctx_heap_frees_recorded_total",
			Help: "Total number of frees matched to a recorded allocation",
		}),
		AllocationsSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "allocctx_heap_allocations_skipped_total",
			Help: "Total number of allocations skipped by sampling",
		}),
		LiveBytes: f.NewGauge(prometheus.GaugeOpts{
			Name: "allocctx_heap_live_bytes",
			Help: "Bytes held by recorded allocations not freed yet",
		}),
		LiveAllocations: f.NewGauge(prometheus.GaugeOpts{
			Name: "allocctx_heap_live_allocations",
			Help: "Number of recorded allocations not freed yet",
		}),
		Contexts: f.NewGauge(prometheus.GaugeOpts{
			Name: "allocctx_heap_contexts",
			Help: "Number of distinct allocation contexts seen in the session",
		}),
	}
}
