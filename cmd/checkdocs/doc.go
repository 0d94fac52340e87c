// Package main provides the checkdocs command, an offline maintenance
// tool for the document sync index.
//
// checkdocs operates on the same documents.sqlite database as the
// server, but without starting the HTTP stack. It supports three
// operations, which may be combined in a single invocation:
//
//   - --new (-n): walk the library roots and reconcile the index
//     against what is on disk, inserting new documents and updating
//     changed ones
//   - --check (-c): verify that every tracked document still exists
//     and that its content hash matches the recorded one
//   - --dump (-d): print the distinct set of tracked titles, one per
//     line, sorted; the count written is reported on stderr
//
// A file lock under DATABASE_DIR ensures only one checkdocs run
// operates on the index at a time. The server may be running
// concurrently; SQLite's WAL mode handles the shared access.
//
// # Environment Variables
//
//   - LIBRARY_DIR: root directory of the document library (default: /library)
//   - DATABASE_DIR: directory holding the SQLite databases (default: /database)
//   - LIBRARY_ROOTS: comma-separated root subdirectories to scan
//
// # Usage
//
//	checkdocs -n          # index new and changed documents
//	checkdocs -c          # verify tracked documents with hash checks
//	checkdocs -n -c       # reconcile, then verify
//	checkdocs -d > titles.txt
package main
