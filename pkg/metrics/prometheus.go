// Package metrics provides Prometheus metrics for the spread forecasting service.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Trial stages reported by the search controller.
const (
	StageRating    = "rating"
	StageRegressor = "regressor"
)

// Trial outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Manager manages all Prometheus metrics for the spread service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	lossBuckets      []float64
	registry         prometheus.Registerer

	// Rating engine
	replaysTotal  prometheus.Counter
	replayLatency prometheus.Histogram

	// Feature assembly
	featureRowsBuilt    prometheus.Counter
	featureRowsExcluded *prometheus.CounterVec

	// Search
	trialsTotal      *prometheus.CounterVec
	trialLoss        *prometheus.HistogramVec
	foldLatency      prometheus.Histogram
	searchExhausted  *prometheus.CounterVec
	trainingRuns     *prometheus.CounterVec
	trainingDuration prometheus.Histogram

	// Prediction
	predictionsTotal   prometheus.Counter
	predictionFailures *prometheus.CounterVec

	// Ledger
	matchesIngested   prometheus.Counter
	matchesDuplicate  prometheus.Counter
	ledgerMatches     prometheus.Gauge
	ledgerParticipant prometheus.Gauge

	// Worker pool and trial queue
	workerActiveCount prometheus.Gauge
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueUtilization  prometheus.Gauge

	// Trial store
	storeRecords *prometheus.GaugeVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "spread",
		subsystem:        "forecast",
		histogramBuckets: prometheus.DefBuckets,
		lossBuckets:      []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 1, 2, 5, 10, 15, 20, 30},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.replaysTotal = m.counter("rating_replays_total", "Total number of full-ledger rating replays")
	m.replayLatency = m.histogram("rating_replay_latency_milliseconds",
		"Histogram of rating replay latency in milliseconds", m.histogramBuckets)

	m.featureRowsBuilt = m.counter("feature_rows_built_total", "Total number of feature rows assembled")
	m.featureRowsExcluded = m.counterVec("feature_rows_excluded_total",
		"Feature rows excluded for insufficient history, by reason", "reason")

	m.trialsTotal = m.counterVec("search_trials_total", "Search trials evaluated, by stage and outcome",
		"stage", "outcome")
	m.trialLoss = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "search_trial_loss",
		Help:      "Loss of evaluated trials (1-accuracy for ratings, CV RMSE for regressors)",
		Buckets:   m.lossBuckets,
	}, []string{"stage"})
	m.foldLatency = m.histogram("search_fold_latency_milliseconds",
		"Histogram of single cross-validation fold latency in milliseconds", m.histogramBuckets)
	m.searchExhausted = m.counterVec("search_exhausted_total",
		"Searches whose best candidate failed to beat the baseline", "stage")
	m.trainingRuns = m.counterVec("training_runs_total", "Training runs, by outcome", "outcome")
	m.trainingDuration = m.histogram("training_duration_seconds",
		"Histogram of full training run duration in seconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300})

	m.predictionsTotal = m.counter("predictions_total", "Total number of forecasts produced")
	m.predictionFailures = m.counterVec("prediction_failures_total",
		"Schedule entries that could not be forecast, by reason", "reason")

	m.matchesIngested = m.counter("matches_ingested_total", "Total number of matches accepted into the ledger")
	m.matchesDuplicate = m.counter("matches_duplicate_total", "Total number of duplicate matches rejected")
	m.ledgerMatches = m.gauge("ledger_matches", "Number of matches currently in the ledger")
	m.ledgerParticipant = m.gauge("ledger_participants", "Number of distinct participants in the ledger")

	m.workerActiveCount = m.gauge("worker_active_count", "Number of trial workers currently running")
	m.queueSize = m.gauge("trial_queue_size", "Current number of trials waiting in the queue")
	m.queueCapacity = m.gauge("trial_queue_capacity", "Maximum trial queue capacity")
	m.queueUtilization = m.gauge("trial_queue_utilization_ratio", "Trial queue utilization ratio (0-1)")

	m.storeRecords = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "trial_store_records",
		Help:      "Number of trials recorded in the trial store, by stage",
	}, []string{"stage"})

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and error type",
		"component", "error_type")
	m.errorsByEndpoint = m.counterVec("http_errors_total", "HTTP error responses by endpoint, method and type",
		"endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of running goroutines")
	m.systemGCPauseTime = m.gauge("system_gc_pause_milliseconds", "Average GC pause in milliseconds")
}

// RecordReplay records a completed rating replay and its latency in milliseconds.
func RecordReplay(latencyMs float64) {
	globalManager.replaysTotal.Inc()
	globalManager.replayLatency.Observe(latencyMs)
}

// RecordFeatureRows records assembled rows and exclusions by reason.
func RecordFeatureRows(built int, excluded map[string]int) {
	globalManager.featureRowsBuilt.Add(float64(built))
	for reason, n := range excluded {
		globalManager.featureRowsExcluded.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordTrial records an evaluated trial. Failed trials do not observe a loss.
func RecordTrial(stage, outcome string, loss float64) error {
	if stage != StageRating && stage != StageRegressor {
		return fmt.Errorf("%w: %s", ErrUnknownStage, stage)
	}
	globalManager.trialsTotal.WithLabelValues(stage, outcome).Inc()
	if outcome == OutcomeOK {
		globalManager.trialLoss.WithLabelValues(stage).Observe(loss)
	}
	return nil
}

// RecordFoldLatency records the latency of one cross-validation fold.
func RecordFoldLatency(latencyMs float64) {
	globalManager.foldLatency.Observe(latencyMs)
}

// RecordSearchExhausted counts a stage whose winner did not beat the baseline.
func RecordSearchExhausted(stage string) {
	globalManager.searchExhausted.WithLabelValues(stage).Inc()
}

// RecordTrainingRun records a training run outcome and its duration in seconds.
func RecordTrainingRun(outcome string, seconds float64) {
	globalManager.trainingRuns.WithLabelValues(outcome).Inc()
	globalManager.trainingDuration.Observe(seconds)
}

// RecordPredictions adds n produced forecasts.
func RecordPredictions(n int) {
	globalManager.predictionsTotal.Add(float64(n))
}

// RecordPredictionFailure counts an entry that could not be forecast.
func RecordPredictionFailure(reason string) {
	globalManager.predictionFailures.WithLabelValues(reason).Inc()
}

// RecordMatchesIngested adds n accepted matches.
func RecordMatchesIngested(n int) {
	globalManager.matchesIngested.Add(float64(n))
}

// RecordMatchDuplicate counts a rejected duplicate match.
func RecordMatchDuplicate() {
	globalManager.matchesDuplicate.Inc()
}

// UpdateLedgerSize sets the ledger match and participant gauges.
func UpdateLedgerSize(matches, participants int) {
	globalManager.ledgerMatches.Set(float64(matches))
	globalManager.ledgerParticipant.Set(float64(participants))
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// UpdateStoreRecords sets the number of stored trials for a stage.
func UpdateStoreRecords(stage string, count int) {
	globalManager.storeRecords.WithLabelValues(stage).Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap size in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime sets the average GC pause in milliseconds.
func RecordSystemGCPauseTime(ms float64) {
	globalManager.systemGCPauseTime.Set(ms)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
