package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ALNS loop metrics
	IterationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bosun_alns_iterations_total",
			Help: "Total number of ALNS iterations by asset and level",
		},
		[]string{"asset", "level"},
	)

	IterationsDiscarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bosun_alns_iterations_discarded_total",
			Help: "Iterations discarded after an invariant violation, by asset and level",
		},
		[]string{"asset", "level"},
	)

	SnapshotsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bosun_alns_snapshots_published_total",
			Help: "Improving snapshots published by asset and level",
		},
		[]string{"asset", "level"},
	)

	IterationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bosun_alns_iteration_duration_seconds",
			Help:    "ALNS iteration duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"level"},
	)

	// Objective metrics
	StrategicObjective = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bosun_strategic_objective",
			Help: "Current strategic objective value per asset (lower is better)",
		},
		[]string{"asset"},
	)

	TacticalObjective = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bosun_tactical_objective",
			Help: "Current tactical objective value per asset (lower is better)",
		},
		[]string{"asset"},
	)

	WrenchTimePercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bosun_wrench_time_percent",
			Help: "Wrench-time share of productive time per worker",
		},
		[]string{"asset", "worker"},
	)

	// Catalog metrics
	WorkOrdersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bosun_work_orders_total",
			Help: "Work orders in the catalog by asset",
		},
		[]string{"asset"},
	)

	WorkersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bosun_workers_total",
			Help: "Workers in the pool by asset",
		},
		[]string{"asset"},
	)

	AssetUnhealthy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bosun_asset_unhealthy",
			Help: "Whether the asset's actor set was torn down after a fatal error (1 = unhealthy)",
		},
		[]string{"asset"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bosun_api_requests_total",
			Help: "Total number of API requests by route and status",
		},
		[]string{"route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bosun_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// Persistence metrics
	SnapshotPersistDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bosun_snapshot_persist_duration_seconds",
			Help:    "Time taken to persist an asset snapshot in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(IterationsTotal)
	prometheus.MustRegister(IterationsDiscarded)
	prometheus.MustRegister(SnapshotsPublished)
	prometheus.MustRegister(IterationDuration)
	prometheus.MustRegister(StrategicObjective)
	prometheus.MustRegister(TacticalObjective)
	prometheus.MustRegister(WrenchTimePercent)
	prometheus.MustRegister(WorkOrdersTotal)
	prometheus.MustRegister(WorkersTotal)
	prometheus.MustRegister(AssetUnhealthy)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(SnapshotPersistDuration)
}

// Handler returns the Prometheus exposition handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed time into a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time.
func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(time.Since(t.start).Seconds())
}
