package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values shared by catalog metrics.
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeFailure  = "failure"
)

// Custom registry to keep default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

var globalManager = NewManager(WithPrometheusRegistry(customRegistry)) //nolint:gochecknoglobals // process-wide metrics

// GetRegistry returns the registry served on /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RecordRankingRequest counts a ranking request and its duration.
func RecordRankingRequest(strategy string, durationMs float64) {
	globalManager.RecordRankingRequest(strategy, durationMs)
}

// RecordRankingError counts a rejected ranking request.
func RecordRankingError(reason string) { globalManager.RecordRankingError(reason) }

// RecordCatalogFetch counts one upstream call.
func RecordCatalogFetch(endpoint, outcome string, durationMs float64) {
	globalManager.RecordCatalogFetch(endpoint, outcome, durationMs)
}

// RecordCatalogRetry counts one retry against the upstream catalog.
func RecordCatalogRetry(endpoint string) { globalManager.RecordCatalogRetry(endpoint) }

// RecordCatalogRefresh counts a store refresh.
func RecordCatalogRefresh(outcome string, products int, unix float64) {
	globalManager.RecordCatalogRefresh(outcome, products, unix)
}

// RecordSnapshotDuration records a snapshot rebuild.
func RecordSnapshotDuration(ms float64) { globalManager.RecordSnapshotDuration(ms) }

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() { globalManager.RecordCacheHit() }

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() { globalManager.RecordCacheMiss() }

// RecordCacheError counts a backend failure for op.
func RecordCacheError(op string) { globalManager.RecordCacheError(op) }

// UpdateCartsActive sets the live cart gauge.
func UpdateCartsActive(n int) { globalManager.UpdateCartsActive(n) }

// RecordCartMutation counts a cart change.
func RecordCartMutation(op string) { globalManager.RecordCartMutation(op) }

// RecordIdempotentReplay counts a skipped duplicate add.
func RecordIdempotentReplay() { globalManager.RecordIdempotentReplay() }

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

func RecordErrorByComponent(component, errorType string) {
	globalManager.RecordErrorByComponent(component, errorType)
}

func RecordErrorByType(errorType, severity string) {
	globalManager.RecordErrorByType(errorType, severity)
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.RecordErrorByEndpoint(endpoint, method, errorType)
}

func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.RecordErrorLatency(component, errorType, latencyMs)
}

// CollectSystem samples runtime statistics into the system gauges.
func CollectSystem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	lastPause := float64(ms.PauseNs[(ms.NumGC+255)%256]) / 1e6
	globalManager.UpdateSystem(ms.HeapAlloc, runtime.NumGoroutine(), lastPause)
}
