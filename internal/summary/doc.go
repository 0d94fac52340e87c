// Package summary maintains the disposable book-list snapshot: a SQLite
// table rebuilt wholesale from a library scan, queried for listings and
// per-directory breakdowns, and safe to delete between runs.
package summary
