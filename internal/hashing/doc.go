// Package hashing computes MD5 content digests for library files with a
// size+mtime keyed memo cache, so repeated reconciliation passes only
// re-read files that actually changed.
package hashing
