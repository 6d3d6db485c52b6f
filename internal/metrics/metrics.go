// Package metrics exposes engine and ingestion counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beetlebugorg/benchmap/internal/ingest"
	"github.com/beetlebugorg/benchmap/pkg/benchmap"
)

// Metrics holds the collectors for one engine.
type Metrics struct {
	RefreshesTotal      *prometheus.CounterVec
	RefreshDurationMs   prometheus.Histogram
	MarkersAddedTotal   prometheus.Counter
	MarkersRemovedTotal prometheus.Counter
	CapHitsTotal        prometheus.Counter
	DeferredMarkers     prometheus.Gauge
	ResetsTotal         prometheus.Counter
	VisibleMarkers      prometheus.Gauge
	DatasetPoints       prometheus.Gauge
	PriorityPoints      prometheus.Gauge
	DatasetLoadsTotal   *prometheus.CounterVec
	PackRowsSkipped     prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RefreshesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "benchmap_refreshes_total",
			Help: "Total number of viewport refreshes by policy mode",
		}, []string{"mode"}),
		RefreshDurationMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "benchmap_refresh_duration_ms",
			Help:    "Refresh duration in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 50, 100},
		}),
		MarkersAddedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "benchmap_markers_added_total",
			Help: "Total markers added to the render surface",
		}),
		MarkersRemovedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "benchmap_markers_removed_total",
			Help: "Total markers removed from the render surface, including resets",
		}),
		CapHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "benchmap_add_cap_hits_total",
			Help: "Total refreshes that reached the per-refresh add cap",
		}),
		DeferredMarkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "benchmap_deferred_markers",
			Help: "Eligible markers left out by the last refresh",
		}),
		ResetsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "benchmap_resets_total",
			Help: "Total full redraws caused by a dataset or priority change",
		}),
		VisibleMarkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "benchmap_visible_markers",
			Help: "Markers currently on the render surface",
		}),
		DatasetPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "benchmap_dataset_points",
			Help: "Points in the installed dataset",
		}),
		PriorityPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "benchmap_priority_points",
			Help: "Ids in the priority set",
		}),
		DatasetLoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "benchmap_dataset_loads_total",
			Help: "Dataset loads by status",
		}, []string{"status"}),
		PackRowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "benchmap_pack_rows_skipped_total",
			Help: "Total CSV rows rejected while loading packs",
		}),
	}

	reg.MustRegister(
		m.RefreshesTotal,
		m.RefreshDurationMs,
		m.MarkersAddedTotal,
		m.MarkersRemovedTotal,
		m.CapHitsTotal,
		m.DeferredMarkers,
		m.ResetsTotal,
		m.VisibleMarkers,
		m.DatasetPoints,
		m.PriorityPoints,
		m.DatasetLoadsTotal,
		m.PackRowsSkipped,
	)
	return m
}

// Observe records one refresh. It matches EngineOptions.OnRefresh.
func (m *Metrics) Observe(r benchmap.RefreshReport) {
	m.RefreshesTotal.WithLabelValues(r.Mode.String()).Inc()
	m.RefreshDurationMs.Observe(float64(r.Duration.Microseconds()) / 1000)
	m.MarkersAddedTotal.Add(float64(len(r.Delta.ToAdd)))
	m.MarkersRemovedTotal.Add(float64(len(r.Delta.ToRemove) + r.ResetRemoved))
	if r.Delta.Capped {
		m.CapHitsTotal.Inc()
	}
	if r.Reset {
		m.ResetsTotal.Inc()
	}
	m.DeferredMarkers.Set(float64(r.Delta.Deferred))
	m.VisibleMarkers.Set(float64(r.Visible))
}

// ObserveStats copies the engine's dataset and priority sizes.
func (m *Metrics) ObserveStats(s benchmap.Stats) {
	m.DatasetPoints.Set(float64(s.DatasetSize))
	m.PriorityPoints.Set(float64(s.PrioritySize))
	m.VisibleMarkers.Set(float64(s.Visible))
}

// ObserveLoad records the outcome of a pack load.
func (m *Metrics) ObserveLoad(stats ingest.LoadStats, err error) {
	if err != nil {
		m.DatasetLoadsTotal.WithLabelValues("error").Inc()
		return
	}
	m.DatasetLoadsTotal.WithLabelValues("ok").Inc()
	m.PackRowsSkipped.Add(float64(stats.Skipped))
}

// Handler returns the /metrics handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
