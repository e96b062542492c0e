package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every storefront collector.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Ranking
	rankingRequests *prometheus.CounterVec
	rankingDuration *prometheus.HistogramVec
	rankingErrors   *prometheus.CounterVec

	// Upstream catalog
	catalogFetches       *prometheus.CounterVec
	catalogFetchDuration *prometheus.HistogramVec
	catalogRetries       *prometheus.CounterVec
	catalogRefreshes     *prometheus.CounterVec
	catalogProducts      prometheus.Gauge
	catalogRefreshedUnix prometheus.Gauge
	snapshotDuration     prometheus.Histogram

	// Response cache
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	cacheErrors *prometheus.CounterVec

	// Carts
	cartsActive      prometheus.Gauge
	cartMutations    *prometheus.CounterVec
	idempotentReplay prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec
	errorLatency      *prometheus.HistogramVec

	// Runtime
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// NewManager creates a manager and registers its collectors.
// Registering two managers with the same names on one registry panics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "storefront",
		subsystem:        "api",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.rankingRequests = auto.NewCounterVec(
		m.counterOpts("ranking_requests_total", "Top-N ranking requests by selection strategy"),
		[]string{"strategy"},
	)
	m.rankingDuration = auto.NewHistogramVec(
		m.histogramOpts("ranking_duration_milliseconds", "Time spent selecting top products", m.histogramBuckets),
		[]string{"strategy"},
	)
	m.rankingErrors = auto.NewCounterVec(
		m.counterOpts("ranking_errors_total", "Rejected ranking requests by reason"),
		[]string{"reason"},
	)

	m.catalogFetches = auto.NewCounterVec(
		m.counterOpts("catalog_fetches_total", "Upstream catalog calls by endpoint and outcome"),
		[]string{"endpoint", "outcome"},
	)
	m.catalogFetchDuration = auto.NewHistogramVec(
		m.histogramOpts("catalog_fetch_duration_milliseconds", "Upstream catalog call latency including retries", m.histogramBuckets),
		[]string{"endpoint"},
	)
	m.catalogRetries = auto.NewCounterVec(
		m.counterOpts("catalog_retries_total", "Upstream catalog retry attempts by endpoint"),
		[]string{"endpoint"},
	)
	m.catalogRefreshes = auto.NewCounterVec(
		m.counterOpts("catalog_refreshes_total", "Catalog store refreshes by outcome"),
		[]string{"outcome"},
	)
	m.catalogProducts = auto.NewGauge(m.gaugeOpts("catalog_products", "Products held in the local catalog store"))
	m.catalogRefreshedUnix = auto.NewGauge(m.gaugeOpts("catalog_last_refresh_unix", "Unix time of the last successful catalog refresh"))
	m.snapshotDuration = auto.NewHistogram(
		m.histogramOpts("catalog_snapshot_duration_milliseconds", "Time spent rebuilding the catalog read snapshot", m.histogramBuckets),
	)

	m.cacheHits = auto.NewCounter(m.counterOpts("cache_hits_total", "Response cache hits"))
	m.cacheMisses = auto.NewCounter(m.counterOpts("cache_misses_total", "Response cache misses"))
	m.cacheErrors = auto.NewCounterVec(
		m.counterOpts("cache_errors_total", "Response cache backend errors by operation"),
		[]string{"op"},
	)

	m.cartsActive = auto.NewGauge(m.gaugeOpts("carts_active", "Carts currently held in memory"))
	m.cartMutations = auto.NewCounterVec(
		m.counterOpts("cart_mutations_total", "Cart changes by operation"),
		[]string{"op"},
	)
	m.idempotentReplay = auto.NewCounter(m.counterOpts("idempotent_replays_total", "Cart additions skipped because the idempotency key was seen"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorsByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorsByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of failed operations", m.histogramBuckets),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "Most recent GC pause in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// Enabled reports whether the manager records observations.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) RecordRankingRequest(strategy string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.rankingRequests.WithLabelValues(strategy).Inc()
	m.rankingDuration.WithLabelValues(strategy).Observe(durationMs)
}

func (m *Manager) RecordRankingError(reason string) {
	if m.enabled {
		m.rankingErrors.WithLabelValues(reason).Inc()
	}
}

func (m *Manager) RecordCatalogFetch(endpoint, outcome string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.catalogFetches.WithLabelValues(endpoint, outcome).Inc()
	m.catalogFetchDuration.WithLabelValues(endpoint).Observe(durationMs)
}

func (m *Manager) RecordCatalogRetry(endpoint string) {
	if m.enabled {
		m.catalogRetries.WithLabelValues(endpoint).Inc()
	}
}

// RecordCatalogRefresh counts a refresh and, on success, updates the
// product gauge and refresh timestamp.
func (m *Manager) RecordCatalogRefresh(outcome string, products int, unix float64) {
	if !m.enabled {
		return
	}
	m.catalogRefreshes.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.catalogProducts.Set(float64(products))
		m.catalogRefreshedUnix.Set(unix)
	}
}

func (m *Manager) RecordSnapshotDuration(ms float64) {
	if m.enabled {
		m.snapshotDuration.Observe(ms)
	}
}

func (m *Manager) RecordCacheHit() {
	if m.enabled {
		m.cacheHits.Inc()
	}
}

func (m *Manager) RecordCacheMiss() {
	if m.enabled {
		m.cacheMisses.Inc()
	}
}

func (m *Manager) RecordCacheError(op string) {
	if m.enabled {
		m.cacheErrors.WithLabelValues(op).Inc()
	}
}

func (m *Manager) UpdateCartsActive(n int) {
	if m.enabled {
		m.cartsActive.Set(float64(n))
	}
}

func (m *Manager) RecordCartMutation(op string) {
	if m.enabled {
		m.cartMutations.WithLabelValues(op).Inc()
	}
}

func (m *Manager) RecordIdempotentReplay() {
	if m.enabled {
		m.idempotentReplay.Inc()
	}
}

func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

func (m *Manager) RecordErrorByComponent(component, errorType string) {
	if m.enabled {
		m.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

func (m *Manager) RecordErrorByType(errorType, severity string) {
	if m.enabled {
		m.errorsByType.WithLabelValues(errorType, severity).Inc()
	}
}

func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	if m.enabled {
		m.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

func (m *Manager) RecordErrorLatency(component, errorType string, latencyMs float64) {
	if m.enabled {
		m.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
	}
}

func (m *Manager) UpdateSystem(memBytes uint64, goroutines int, lastPauseMs float64) {
	if !m.enabled {
		return
	}
	m.systemMemoryUsage.Set(float64(memBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
	m.systemGCPauseTime.Observe(lastPauseMs)
}
