// Package scanner provides recursive discovery and classification of
// documents across the library's declared root directories.
//
// The scanner walks each declared root beneath the library directory,
// classifies every regular file into a (title, type) pair via the doctypes
// package, and emits FileRecords either through a callback (Walk) or as a
// single-pass channel stream (Scan). As a side effect of every scan it
// maintains per-directory file Counters, including zero entries for empty
// directories, from which per-root aggregates are derived.
//
// Unreadable or vanished directories are logged and skipped; a scan never
// fails outright because one subtree was inaccessible.
package scanner
