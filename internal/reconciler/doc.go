// Package reconciler orchestrates the periodic library scans, feeding
// scan results through the sync index and rebuilding the summary
// snapshot, with single-flight protection and health reporting.
package reconciler
