// Package metrics provides Prometheus metrics for the QuestForge progression service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus metric exposed by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Submission metrics
	submissionsAccepted  prometheus.Counter
	submissionsRejected  *prometheus.CounterVec
	submissionsDuplicate prometheus.Counter
	submissionLatency    prometheus.Histogram
	xpAwarded            prometheus.Counter
	badgesUnlocked       *prometheus.CounterVec

	// Document store metrics
	storeConflictRetries prometheus.Counter
	storeConflicts       prometheus.Counter
	storeUpdateLatency   prometheus.Histogram
	storeReadLatency     prometheus.Histogram
	storeDocumentsTotal  *prometheus.GaugeVec

	// Leaderboard metrics
	leaderboardUpdates     prometheus.Counter
	leaderboardSubscribers prometheus.Gauge
	leaderboardPlayers     prometheus.Gauge
	snapshotRebuildLatency prometheus.Histogram
	snapshotsPublished     prometheus.Counter
	snapshotsCoalesced     prometheus.Counter

	// Completion journal metrics
	journalQueueDepth    prometheus.Gauge
	journalQueueCapacity prometheus.Gauge
	journalWrites        prometheus.Counter
	journalWriteErrors   prometheus.Counter
	journalDropped       prometheus.Counter
	journalWriteLatency  prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorsByComponent *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
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
		namespace:        "questforge",
		subsystem:        "progression",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all Prometheus metrics on the configured registry.
func (m *Manager) initializeMetrics() { //nolint:funlen // metric declarations are long by nature
	auto := promauto.With(m.registry)

	latencyBuckets := []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

	m.submissionsAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_accepted_total",
		Help:      "Total number of quest submissions that awarded XP",
	})

	m.submissionsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_rejected_total",
		Help:      "Total number of rejected quest submissions by reason",
	}, []string{"reason"})

	m.submissionsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_duplicate_total",
		Help:      "Total number of duplicate quest submissions suppressed",
	})

	m.submissionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submission_latency_milliseconds",
		Help:      "End-to-end quest submission latency in milliseconds",
		Buckets:   latencyBuckets,
	})

	m.xpAwarded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "xp_awarded_total",
		Help:      "Total experience points awarded, including badge bonuses",
	})

	m.badgesUnlocked = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "badges_unlocked_total",
		Help:      "Total badges unlocked by badge id",
	}, []string{"badge_id"})

	m.storeConflictRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_conflict_retries_total",
		Help:      "Total conditional-update retries after a version conflict",
	})

	m.storeConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_conflicts_total",
		Help:      "Total conditional updates that exhausted their retry budget",
	})

	m.storeUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_update_latency_milliseconds",
		Help:      "Document store write latency in milliseconds",
		Buckets:   latencyBuckets,
	})

	m.storeReadLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_read_latency_milliseconds",
		Help:      "Document store read latency in milliseconds",
		Buckets:   latencyBuckets,
	})

	m.storeDocumentsTotal = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_documents",
		Help:      "Number of documents per collection",
	}, []string{"collection"})

	m.leaderboardUpdates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_updates_total",
		Help:      "Total XP updates applied to the leaderboard read model",
	})

	m.leaderboardSubscribers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_subscribers",
		Help:      "Number of active leaderboard subscriptions",
	})

	m.leaderboardPlayers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_players",
		Help:      "Number of users tracked by the leaderboard read model",
	})

	m.snapshotRebuildLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_snapshot_rebuild_milliseconds",
		Help:      "Leaderboard snapshot rebuild duration in milliseconds",
		Buckets:   latencyBuckets,
	})

	m.snapshotsPublished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_snapshots_published_total",
		Help:      "Total leaderboard snapshots delivered to subscribers",
	})

	m.snapshotsCoalesced = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_snapshots_coalesced_total",
		Help:      "Total intermediate snapshots replaced before delivery",
	})

	m.journalQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "journal_queue_depth",
		Help:      "Current number of completion records waiting to be persisted",
	})

	m.journalQueueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "journal_queue_capacity",
		Help:      "Configured capacity of the completion journal queue",
	})

	m.journalWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "journal_writes_total",
		Help:      "Total completion records persisted",
	})

	m.journalWriteErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "journal_write_errors_total",
		Help:      "Total completion-record persistence failures",
	})

	m.journalDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "journal_dropped_total",
		Help:      "Total completion records dropped due to a full queue",
	})

	m.journalWriteLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "journal_write_latency_milliseconds",
		Help:      "Completion-record persistence latency in milliseconds",
		Buckets:   latencyBuckets,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Total errors by component and type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// RecordSubmissionAccepted increments the accepted-submission counter.
func RecordSubmissionAccepted() {
	globalManager.submissionsAccepted.Inc()
}

// RecordSubmissionRejected increments the rejected-submission counter for a reason.
func RecordSubmissionRejected(reason string) {
	globalManager.submissionsRejected.WithLabelValues(reason).Inc()
}

// RecordSubmissionDuplicate increments the duplicate-submission counter.
func RecordSubmissionDuplicate() {
	globalManager.submissionsDuplicate.Inc()
}

// RecordSubmissionLatency records end-to-end submission latency in milliseconds.
func RecordSubmissionLatency(latencyMs float64) {
	globalManager.submissionLatency.Observe(latencyMs)
}

// RecordXPAwarded adds awarded experience points to the running total.
func RecordXPAwarded(xp int64) {
	if xp > 0 {
		globalManager.xpAwarded.Add(float64(xp))
	}
}

// RecordBadgeUnlocked increments the unlock counter for a badge.
func RecordBadgeUnlocked(badgeID string) {
	globalManager.badgesUnlocked.WithLabelValues(badgeID).Inc()
}

// RecordStoreConflictRetry increments the conditional-update retry counter.
func RecordStoreConflictRetry() {
	globalManager.storeConflictRetries.Inc()
}

// RecordStoreConflict increments the exhausted-retries counter.
func RecordStoreConflict() {
	globalManager.storeConflicts.Inc()
}

// RecordStoreUpdateLatency records a document write latency in milliseconds.
func RecordStoreUpdateLatency(latencyMs float64) {
	globalManager.storeUpdateLatency.Observe(latencyMs)
}

// RecordStoreReadLatency records a document read latency in milliseconds.
func RecordStoreReadLatency(latencyMs float64) {
	globalManager.storeReadLatency.Observe(latencyMs)
}

// UpdateStoreDocuments sets the document count gauge for a collection.
func UpdateStoreDocuments(collection string, count int) {
	globalManager.storeDocumentsTotal.WithLabelValues(collection).Set(float64(count))
}

// RecordLeaderboardUpdate increments the leaderboard update counter.
func RecordLeaderboardUpdate() {
	globalManager.leaderboardUpdates.Inc()
}

// UpdateLeaderboardSubscribers sets the active-subscription gauge.
func UpdateLeaderboardSubscribers(count int) {
	globalManager.leaderboardSubscribers.Set(float64(count))
}

// UpdateLeaderboardPlayers sets the tracked-user gauge.
func UpdateLeaderboardPlayers(count int) {
	globalManager.leaderboardPlayers.Set(float64(count))
}

// RecordSnapshotRebuildLatency records snapshot rebuild duration in milliseconds.
func RecordSnapshotRebuildLatency(latencyMs float64) {
	globalManager.snapshotRebuildLatency.Observe(latencyMs)
}

// RecordSnapshotPublished increments the delivered-snapshot counter.
func RecordSnapshotPublished() {
	globalManager.snapshotsPublished.Inc()
}

// RecordSnapshotCoalesced increments the coalesced-snapshot counter.
func RecordSnapshotCoalesced() {
	globalManager.snapshotsCoalesced.Inc()
}

// UpdateJournalQueueDepth sets the journal queue depth gauge.
func UpdateJournalQueueDepth(depth int) {
	globalManager.journalQueueDepth.Set(float64(depth))
}

// UpdateJournalQueueCapacity sets the journal queue capacity gauge.
func UpdateJournalQueueCapacity(capacity int) {
	globalManager.journalQueueCapacity.Set(float64(capacity))
}

// RecordJournalWrite increments the persisted completion-record counter.
func RecordJournalWrite() {
	globalManager.journalWrites.Inc()
}

// RecordJournalWriteError increments the journal write failure counter.
func RecordJournalWriteError() {
	globalManager.journalWriteErrors.Inc()
}

// RecordJournalDropped increments the dropped completion-record counter.
func RecordJournalDropped() {
	globalManager.journalDropped.Inc()
}

// RecordJournalWriteLatency records journal persistence latency in milliseconds.
func RecordJournalWriteLatency(latencyMs float64) {
	globalManager.journalWriteLatency.Observe(latencyMs)
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent increments the error counter for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry backing the global manager, for the
// /metrics handler.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
