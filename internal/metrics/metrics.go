package metrics

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_indexer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "library_indexer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "library_indexer_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_indexer_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "library_indexer_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "library_indexer_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
		[]string{"result"}, // "commit" or "rollback"
	)

	DBConnectionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "library_indexer_db_connections_open",
			Help: "Number of open database connections",
		},
		[]string{"store"}, // "summary" or "sync"
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "library_indexer_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"store", "file"}, // file: "main", "wal", "shm"
	)
)

// Scanner metrics
var (
	ScannerFilesSeen = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "library_indexer_scanner_files_total",
			Help: "Total number of files emitted by library scans",
		},
	)

	ScannerDirsSeen = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "library_indexer_scanner_directories_total",
			Help: "Total number of directories visited by library scans",
		},
	)

	ScannerDirsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "library_indexer_scanner_directories_skipped_total",
			Help: "Total number of directories skipped due to errors",
		},
	)
)

// Reconciler metrics
var (
	ReconcilerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_indexer_reconciler_runs_total",
			Help: "Total number of reconciliation runs",
		},
		[]string{"operation"}, // "rebuild", "checknew", "cleanup"
	)

	ReconcilerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "library_indexer_reconciler_running",
			Help: "Whether a reconciliation run is in progress (1 = running, 0 = idle)",
		},
	)

	ReconcilerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "library_indexer_reconciler_last_run_timestamp",
			Help: "Unix timestamp of the last completed reconciliation run",
		},
	)

	ReconcilerLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "library_indexer_reconciler_last_run_duration_seconds",
			Help: "Duration of the last reconciliation run in seconds",
		},
	)

	ReconcilerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "library_indexer_reconciler_errors_total",
			Help: "Total number of reconciliation errors",
		},
	)

	DocumentsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "library_indexer_documents_inserted_total",
			Help: "Total number of documents inserted into the sync index",
		},
	)

	DocumentsUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "library_indexer_documents_updated_total",
			Help: "Total number of documents updated in the sync index",
		},
	)

	DocumentsRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "library_indexer_documents_removed_total",
			Help: "Total number of stale documents removed from the sync index",
		},
	)

	DocumentsBackfilled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "library_indexer_documents_hash_backfilled_total",
			Help: "Total number of documents whose missing hash was backfilled",
		},
	)

	DocumentsMismatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "library_indexer_documents_hash_mismatched_total",
			Help: "Total number of hash mismatches found during cleanup verification",
		},
	)

	CleanupProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "library_indexer_cleanup_progress",
			Help: "Documents examined so far in the current cleanup pass",
		},
	)
)

// Hashing metrics
var (
	HashOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_indexer_hash_operations_total",
			Help: "Total number of content hash computations",
		},
		[]string{"status"}, // "success", "error", "cached"
	)

	HashDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "library_indexer_hash_duration_seconds",
			Help:    "Content hash computation duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "library_indexer_watcher_events_total",
			Help: "Total number of filesystem events observed on the library roots",
		},
	)

	WatcherRescansTriggered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "library_indexer_watcher_rescans_total",
			Help: "Total number of rescans triggered by filesystem events",
		},
	)
)

// Filesystem retry metrics, labeled by operation and volume
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_indexer_fs_retry_attempts_total",
			Help: "Total number of filesystem operation retries after stale NFS handles",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_indexer_fs_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_indexer_fs_retry_failures_total",
			Help: "Total number of filesystem operations that exhausted their retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_indexer_fs_stale_errors_total",
			Help: "Total number of stale NFS file handle errors observed",
		},
		[]string{"operation", "volume"},
	)
)

// UpdateDBSizeMetrics records the on-disk size of a SQLite database and its
// WAL/SHM side files for the given store label.
func UpdateDBSizeMetrics(store, dbPath string) {
	files := map[string]string{
		"main": dbPath,
		"wal":  dbPath + "-wal",
		"shm":  dbPath + "-shm",
	}
	for label, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			DBSizeBytes.WithLabelValues(store, label).Set(0)
			continue
		}
		DBSizeBytes.WithLabelValues(store, label).Set(float64(info.Size()))
	}
}
