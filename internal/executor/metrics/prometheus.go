package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	startTime = time.Now()

	// UptimeSeconds tracks the service uptime in seconds
	UptimeSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "flowvault",
		Subsystem: "executor",
		Name:      "uptime_seconds",
		Help:      "Time passed since the executor started in seconds",
	})

	// Memory usage metrics
	MemoryUsageBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "flowvault",
		Subsystem: "executor",
		Name:      "memory_usage_bytes",
		Help:      "Memory consumption",
	})

	// Goroutines active metrics
	GoroutinesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "flowvault",
		Subsystem: "executor",
		Name:      "goroutines_active",
		Help:      "Number of active goroutines",
	})

	// Garbage collection duration metrics
	GCDurationSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "flowvault",
		Subsystem: "executor",
		Name:      "gc_duration_seconds",
		Help:      "Garbage collection time",
	})

	// Scheduler ticks
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "flowvault",
		Subsystem: "executor",
		Name:      "ticks_total",
		Help:      "Scheduler ticks processed",
	})

	// Executions completed per terminal status
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flowvault",
		Subsystem: "executor",
		Name:      "executions_total",
		Help:      "Execution attempts completed (success/failed)",
	}, []string{"status"})

	// Execution duration
	ExecutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "flowvault",
		Subsystem: "executor",
		Name:      "execution_duration_seconds",
		Help:      "Time taken to run one execution attempt in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60},
	})

	// Due backlog at each tick
	DueBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "flowvault",
		Subsystem: "executor",
		Name:      "due_backlog",
		Help:      "Strategies due at the start of the last tick",
	})

	// Strategies currently indexed for execution
	StrategiesIndexed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "flowvault",
		Subsystem: "executor",
		Name:      "strategies_indexed",
		Help:      "Active strategies present in the due-index",
	})

	// Executions currently in flight
	ExecutionsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "flowvault",
		Subsystem: "executor",
		Name:      "executions_in_flight",
		Help:      "Execution attempts currently running",
	})

	// Circuit breaker state per upstream category (0 closed, 1 half-open, 2 open)
	CircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "flowvault",
		Subsystem: "executor",
		Name:      "circuit_state",
		Help:      "Circuit breaker state per category (0=closed, 1=half_open, 2=open)",
	}, []string{"category"})

	// Fallback quotes served while the quote path was degraded
	QuoteFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "flowvault",
		Subsystem: "executor",
		Name:      "quote_fallbacks_total",
		Help:      "Executions priced with the conservative fallback estimate",
	})

	// Permission denials per reason
	ValidationDenialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flowvault",
		Subsystem: "executor",
		Name:      "validation_denials_total",
		Help:      "Permission checks that denied execution",
	}, []string{"reason"})

	// Capability lifecycle
	CapabilitiesIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "flowvault",
		Subsystem: "executor",
		Name:      "capabilities_issued_total",
		Help:      "Session capabilities issued",
	})

	CapabilitiesRevokedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "flowvault",
		Subsystem: "executor",
		Name:      "capabilities_revoked_total",
		Help:      "Session capabilities revoked",
	})

	// DB connection errors
	DBConnectionErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "flowvault",
		Subsystem: "executor",
		Name:      "db_connection_errors_total",
		Help:      "Database connection failures",
	})

	// HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flowvault",
		Subsystem: "executor",
		Name:      "http_requests_total",
		Help:      "HTTP API requests received",
	}, []string{"method", "endpoint", "status_code"})
)
