// Package metrics holds the Prometheus metrics of the sync service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all Prometheus metrics. A nil *Registry is valid and
// records nothing.
type Registry struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Sync
	SyncRunsTotal        *prometheus.CounterVec
	SyncRunDuration      *prometheus.HistogramVec
	PropertySyncsTotal   *prometheus.CounterVec
	ReservationsTotal    *prometheus.CounterVec
	FeedFetchesTotal     *prometheus.CounterVec
	FeedFetchDuration    prometheus.Histogram
	LeaseContentionTotal prometheus.Counter
}

// NewRegistry registers all metrics with reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	f := promauto.With(reg)

	return &Registry{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentalsync_http_requests_total",
				Help: "Total HTTP requests processed by route, method, and status code",
			},
			[]string{"route", "method", "status_code"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rentalsync_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"route", "method"},
		),

		SyncRunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentalsync_sync_runs_total",
				Help: "Finished sync runs by trigger and terminal status",
			},
			[]string{"trigger", "status"},
		),
		SyncRunDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rentalsync_sync_run_duration_seconds",
				Help:    "Wall time of sync runs in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"trigger"},
		),
		PropertySyncsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentalsync_property_syncs_total",
				Help: "Per-property sync outcomes",
			},
			[]string{"outcome"},
		),
		ReservationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentalsync_reconciled_reservations_total",
				Help: "Feed candidates by reconciliation action",
			},
			[]string{"action"},
		),
		FeedFetchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentalsync_feed_fetches_total",
				Help: "Feed downloads by result",
			},
			[]string{"result"},
		),
		FeedFetchDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rentalsync_feed_fetch_duration_seconds",
				Help:    "Feed download latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		LeaseContentionTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "rentalsync_lease_contention_total",
				Help: "Property syncs skipped because another run held the lease",
			},
		),
	}
}

// ObserveHTTP records one served request.
func (m *Registry) ObserveHTTP(route, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// ObserveRun records a finished run.
func (m *Registry) ObserveRun(trigger, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.SyncRunsTotal.WithLabelValues(trigger, status).Inc()
	m.SyncRunDuration.WithLabelValues(trigger).Observe(d.Seconds())
}

// ObserveProperty records a per-property outcome and its reconcile counters.
func (m *Registry) ObserveProperty(success bool, created, updated, skipped int) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.PropertySyncsTotal.WithLabelValues(outcome).Inc()
	m.ReservationsTotal.WithLabelValues("created").Add(float64(created))
	m.ReservationsTotal.WithLabelValues("updated").Add(float64(updated))
	m.ReservationsTotal.WithLabelValues("skipped").Add(float64(skipped))
}

// ObserveFetch records a feed download. result is one of ok, not_modified,
// http_error, error.
func (m *Registry) ObserveFetch(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.FeedFetchesTotal.WithLabelValues(result).Inc()
	m.FeedFetchDuration.Observe(d.Seconds())
}

// LeaseHeld counts a property skipped for lease contention.
func (m *Registry) LeaseHeld() {
	if m == nil {
		return
	}
	m.LeaseContentionTotal.Inc()
}
