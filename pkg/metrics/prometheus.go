// Package metrics provides Prometheus metrics for the ecotrack service.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Level label values published on the level gauge.
var levelLabels = []string{"Expert", "Intermediate", "Beginner"} //nolint:gochecknoglobals // fixed label set

// variableLabels are the per-series label names; constant labels must not
// reuse them.
var variableLabels = map[string]struct{}{ //nolint:gochecknoglobals // fixed label set
	"level": {}, "type": {}, "provider": {}, "endpoint": {}, "method": {},
	"status_code": {}, "component": {}, "error_type": {}, "severity": {},
}

// IsReservedLabel reports whether name is already used as a variable label.
func IsReservedLabel(name string) bool {
	_, ok := variableLabels[name]
	return ok
}

// Manager manages all Prometheus metrics for the ecotrack service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Gamification
	gamificationScore    prometheus.Gauge
	gamificationLevel    *prometheus.GaugeVec
	pointAdjustments     *prometheus.CounterVec
	clampedDeductions    prometheus.Counter
	adjustmentsJournaled prometheus.Counter
	adjustmentsDropped   prometheus.Counter
	journalSize          prometheus.Gauge

	// Footprint providers
	providerReading *prometheus.GaugeVec
	providerLatency *prometheus.HistogramVec
	providerErrors  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec
	idempotentReplays   prometheus.Counter

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager atomic.Pointer[Manager] //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry atomic.Pointer[prometheus.Registry] //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	Configure()
}

// Configure replaces the global manager with one built from opts on a fresh
// custom registry. Call it before handlers capture GetRegistry; values
// recorded on the previous manager are dropped.
func Configure(opts ...Option) {
	reg := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(reg))...)
	customRegistry.Store(reg)
	globalManager.Store(m)
}

func manager() *Manager { return globalManager.Load() }

// NewManager creates a new metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ecotrack",
		subsystem:        "api",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     buckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.gamificationScore = auto.NewGauge(m.gaugeOpts("gamification_score", "Current emission score"))
	m.gamificationLevel = auto.NewGaugeVec(m.gaugeOpts("gamification_level", "1 for the current level, 0 otherwise"), []string{"level"})
	m.pointAdjustments = auto.NewCounterVec(m.counterOpts("point_adjustments_total", "Point adjustments applied by type"), []string{"type"})
	m.clampedDeductions = auto.NewCounter(m.counterOpts("clamped_deductions_total", "Deductions that hit the zero floor"))
	m.adjustmentsJournaled = auto.NewCounter(m.counterOpts("adjustments_journaled_total", "Adjustments written to the journal"))
	m.adjustmentsDropped = auto.NewCounter(m.counterOpts("adjustments_dropped_total", "Adjustments not journaled because the queue rejected them"))
	m.journalSize = auto.NewGauge(m.gaugeOpts("journal_size", "Adjustments currently retained in the journal"))

	m.providerReading = auto.NewGaugeVec(m.gaugeOpts("provider_reading", "Last reading reported by each footprint provider"), []string{"provider"})
	m.providerLatency = auto.NewHistogramVec(m.histogramOpts("provider_latency_milliseconds", "Provider read latency in milliseconds", m.histogramBuckets), []string{"provider"})
	m.providerErrors = auto.NewCounterVec(m.counterOpts("provider_errors_total", "Failed provider reads"), []string{"provider"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets), []string{"endpoint", "method", "status_code"})
	m.rateLimited = auto.NewCounterVec(m.counterOpts("http_rate_limited_total", "Requests rejected by the rate limiter"), []string{"endpoint"})
	m.idempotentReplays = auto.NewCounter(m.counterOpts("http_idempotent_replays_total", "Updates answered from the idempotency cache"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Adjustments waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum adjustments the queue can hold"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Adjustments enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Adjustments dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Rejected enqueue attempts"))
	m.queueProcessingLatency = auto.NewHistogram(m.histogramOpts("queue_processing_latency_milliseconds", "Enqueue latency in milliseconds", m.histogramBuckets))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Journal workers running"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds", "Time to journal one adjustment in milliseconds", m.histogramBuckets))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Worker failures"))

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total", "Errors by component and type"), []string{"component", "error_type"})
	m.errorRateByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total", "Errors by type and severity"), []string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total", "Errors by endpoint"), []string{"endpoint", "method", "error_type"})
	m.errorLatency = auto.NewHistogramVec(m.histogramOpts("error_latency_milliseconds", "Latency of failed operations in milliseconds", m.histogramBuckets), []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// Gamification Metrics Functions.

// UpdateGamificationStatus publishes the current score and level.
func UpdateGamificationStatus(score float64, level string) {
	m := manager()
	m.gamificationScore.Set(score)
	for _, l := range levelLabels {
		v := 0.0
		if l == level {
			v = 1
		}
		m.gamificationLevel.WithLabelValues(l).Set(v)
	}
}

// RecordPointAdjustment increments the adjustment counter for a type.
func RecordPointAdjustment(adjustmentType string) {
	manager().pointAdjustments.WithLabelValues(adjustmentType).Inc()
}

// RecordClampedDeduction counts a deduction that hit the zero floor.
func RecordClampedDeduction() {
	manager().clampedDeductions.Inc()
}

// RecordAdjustmentJournaled counts a journaled adjustment.
func RecordAdjustmentJournaled() {
	manager().adjustmentsJournaled.Inc()
}

// RecordAdjustmentDropped counts an adjustment the queue rejected.
func RecordAdjustmentDropped() {
	manager().adjustmentsDropped.Inc()
}

// UpdateJournalSize sets the number of retained adjustments.
func UpdateJournalSize(size int) {
	manager().journalSize.Set(float64(size))
}

// Provider Metrics Functions.

// UpdateProviderReading sets the last reading of a provider.
func UpdateProviderReading(provider string, value float64) {
	manager().providerReading.WithLabelValues(provider).Set(value)
}

// RecordProviderLatency records a provider read latency.
func RecordProviderLatency(provider string, latencyMs float64) {
	manager().providerLatency.WithLabelValues(provider).Observe(latencyMs)
}

// RecordProviderError counts a failed provider read.
func RecordProviderError(provider string) {
	manager().providerErrors.WithLabelValues(provider).Inc()
	manager().errorRateByComponent.WithLabelValues("provider", provider).Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	manager().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	manager().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited(endpoint string) {
	manager().rateLimited.WithLabelValues(endpoint).Inc()
}

// RecordIdempotentReplay counts an update answered from the idempotency cache.
func RecordIdempotentReplay() {
	manager().idempotentReplays.Inc()
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	manager().queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	manager().queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	manager().queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	manager().queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	manager().queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records enqueue latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	manager().queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the number of journal workers.
func UpdateWorkerCount(count int) {
	manager().workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	manager().workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	manager().workerErrors.Inc()
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	manager().errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	manager().errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	manager().errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	manager().errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	manager().systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	manager().systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	manager().systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry.Load()
}
