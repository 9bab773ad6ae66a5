package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitalwatch_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vitalwatch_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Ingestion metrics
	ReadingsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitalwatch_readings_ingested_total",
			Help: "Total number of readings accepted or rejected at ingestion",
		},
		[]string{"metric", "status"}, // status: accepted, rejected
	)

	ReadingValidationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitalwatch_reading_validation_errors_total",
			Help: "Total number of reading validation errors",
		},
		[]string{"error_type"},
	)

	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vitalwatch_evaluation_duration_seconds",
			Help:    "Time spent evaluating a reading against configured thresholds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		},
	)

	TriggersRaisedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitalwatch_triggers_raised_total",
			Help: "Total number of trigger classifications raised by the evaluator",
		},
		[]string{"kind"},
	)

	// History store metrics
	HistorySeries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vitalwatch_history_series",
			Help: "Number of (subject, metric) series currently held in memory",
		},
	)

	HistoryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vitalwatch_history_entries",
			Help: "Total readings currently held across all series",
		},
	)

	HistoryPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vitalwatch_history_pruned_total",
			Help: "Total readings removed by retention pruning",
		},
	)

	HistoryCapEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vitalwatch_history_cap_evictions_total",
			Help: "Total readings evicted by the per-series entry cap",
		},
	)

	// Dispatch metrics
	AlertsDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitalwatch_alerts_dispatched_total",
			Help: "Total alerts constructed and dispatched",
		},
		[]string{"severity"},
	)

	DispatchQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vitalwatch_dispatch_queue_depth",
			Help: "Jobs currently queued for dispatch workers",
		},
	)

	DispatchDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vitalwatch_dispatch_dropped_total",
			Help: "Dispatch jobs dropped because a worker queue was full",
		},
	)

	// Collaborator failure metrics
	RecipientResolutionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vitalwatch_recipient_resolution_failures_total",
			Help: "Alerts whose recipient could not be resolved",
		},
	)

	DeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vitalwatch_delivery_failures_total",
			Help: "Alert deliveries that failed",
		},
	)

	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitalwatch_persistence_failures_total",
			Help: "Best-effort persistence writes that failed",
		},
		[]string{"record"}, // record: alert, reading
	)

	// Panic recovery
	PanicsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitalwatch_panics_recovered_total",
			Help: "Total number of panics recovered",
		},
		[]string{"component"},
	)
)
