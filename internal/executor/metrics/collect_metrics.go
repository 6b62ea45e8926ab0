package metrics

import (
	"runtime"
	"time"

	"github.com/flowvault/flowvault-backend/pkg/resilience"
)

// StartMetricsCollection refreshes process-level gauges in the background.
func StartMetricsCollection() {
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			UptimeSeconds.Set(time.Since(startTime).Seconds())
			collectSystemMetrics()
		}
	}()
}

func collectSystemMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	MemoryUsageBytes.Set(float64(memStats.Alloc))
	GoroutinesActive.Set(float64(runtime.NumGoroutine()))
	GCDurationSeconds.Set(float64(memStats.PauseTotalNs) / 1e9)
}

// TrackExecution records one completed execution attempt.
func TrackExecution(status string, duration time.Duration) {
	ExecutionsTotal.WithLabelValues(status).Inc()
	ExecutionDurationSeconds.Observe(duration.Seconds())
}

// TrackCircuitStates mirrors breaker states into the state gauge.
func TrackCircuitStates(states map[string]resilience.State) {
	for category, state := range states {
		var value float64
		switch state {
		case resilience.StateHalfOpen:
			value = 1
		case resilience.StateOpen:
			value = 2
		}
		CircuitState.WithLabelValues(category).Set(value)
	}
}

// TrackValidationDenial records a denied permission check.
func TrackValidationDenial(reason string) {
	ValidationDenialsTotal.WithLabelValues(reason).Inc()
}

// TrackHTTPRequest tracks HTTP request metrics
func TrackHTTPRequest(method, endpoint, statusCode string) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
}

// TrackDBConnectionError tracks database connection errors
func TrackDBConnectionError() {
	DBConnectionErrorsTotal.Inc()
}
