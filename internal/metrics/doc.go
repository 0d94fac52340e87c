// Package metrics provides Prometheus instrumentation for the library
// indexer.
//
// All metrics are prefixed with "library_indexer_" to avoid naming
// collisions with other applications. The metrics fall into five
// categories:
//
//   - HTTP: request counts, durations, and in-flight gauge
//   - Database: query/transaction timings, connection counts, file sizes
//   - Scanner: files and directories seen, directories skipped on error
//   - Reconciler: run counts and durations, per-outcome document counters
//     (inserted, updated, removed, backfilled, mismatched), cleanup progress
//   - Hashing and watcher: content hash operations and filesystem events
//
// Metrics are registered via promauto at package load; the registry is
// exposed by the handlers package on the dedicated metrics port.
package metrics
