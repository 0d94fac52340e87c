// Package doctypes provides filename classification for the library
// indexer.
//
// This package exists as a dependency-free foundation that can be imported
// by other packages without creating import cycles. It contains a static
// extension-to-content-type table, the rules for splitting a filename into
// a (title, type) pair, and the escaping scheme that lets logical titles
// carry path separators.
//
// # Classification
//
// Use Classify to split a bare filename:
//
//	title, docType := doctypes.Classify("data.tar.gz")
//	// title = "data", docType = "tar.gz"
//
// A filename with an unknown extension classifies to an empty type with
// the whole filename as title. That is a valid result, not an error.
//
// # Title escaping
//
// A literal "%2f" token in a filename stands for a path separator in the
// logical title. DecodeTitle and EncodeTitle convert between the two forms;
// Filename rebuilds the on-disk name from a stored (title, type) pair.
package doctypes
