// Package metrics exposes quarry counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors is nil-safe: every method on a nil *Collectors is a no-op.
type Collectors struct {
	CellsExtracted *prometheus.CounterVec
	ItemsRouted    prometheus.Counter
	ItemsDropped   prometheus.Counter
	SessionEvents  *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
	WaitingStorage prometheus.Gauge
	SaveDuration   prometheus.Histogram
	SaveErrors     prometheus.Counter
}

// New registers the collectors on reg. Use a fresh registry per test.
func New(reg prometheus.Registerer) *Collectors {
	f := promauto.With(reg)
	return &Collectors{
		CellsExtracted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voxelquarry_cells_extracted_total",
			Help: "Cells broken by quarry sessions.",
		}, []string{"world", "pattern"}),
		ItemsRouted: f.NewCounter(prometheus.CounterOpts{
			Name: "voxelquarry_items_routed_total",
			Help: "Item units placed into output bins.",
		}),
		ItemsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "voxelquarry_items_dropped_total",
			Help: "Item units that overflowed to the ground.",
		}),
		SessionEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voxelquarry_session_events_total",
			Help: "Session lifecycle events by kind.",
		}, []string{"kind"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "voxelquarry_sessions_active",
			Help: "Sessions currently owned by the orchestrator.",
		}),
		WaitingStorage: f.NewGauge(prometheus.GaugeOpts{
			Name: "voxelquarry_sessions_waiting_storage",
			Help: "Sessions frozen because every output bin is full.",
		}),
		SaveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "voxelquarry_store_save_seconds",
			Help:    "Time spent writing the session store.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		SaveErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "voxelquarry_store_save_errors_total",
			Help: "Failed session store writes.",
		}),
	}
}

func (c *Collectors) ObserveExtraction(world, pattern string, routed, dropped int) {
	if c == nil {
		return
	}
	c.CellsExtracted.WithLabelValues(world, pattern).Inc()
	if routed > 0 {
		c.ItemsRouted.Add(float64(routed))
	}
	if dropped > 0 {
		c.ItemsDropped.Add(float64(dropped))
	}
}

func (c *Collectors) SessionEvent(kind string) {
	if c == nil {
		return
	}
	c.SessionEvents.WithLabelValues(kind).Inc()
}

func (c *Collectors) SetSessions(active, waiting int) {
	if c == nil {
		return
	}
	c.ActiveSessions.Set(float64(active))
	c.WaitingStorage.Set(float64(waiting))
}

func (c *Collectors) ObserveSave(d time.Duration, err error) {
	if c == nil {
		return
	}
	c.SaveDuration.Observe(d.Seconds())
	if err != nil {
		c.SaveErrors.Inc()
	}
}
