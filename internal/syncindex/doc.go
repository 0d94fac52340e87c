// Package syncindex maintains the incremental document store: a SQLite
// table reconciled file by file against the library, carrying MD5
// content digests that survive across runs. Documents are identified by
// their (title, type, dir) triple.
package syncindex
