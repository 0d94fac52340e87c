// Package handlers implements the HTTP API: book listings and
// summaries from the snapshot, sync and cleanup operations, document
// lookups, and the health/readiness probes.
package handlers
