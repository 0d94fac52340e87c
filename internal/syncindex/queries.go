package syncindex

import (
	"context"
	"fmt"
	"io"
	"time"

	"library-indexer/internal/sqlite"
)

func (idx *Index) queryDocuments(ctx context.Context, operation, query string, args ...any) ([]Document, error) {
	start := time.Now()
	var err error
	defer func() { sqlite.RecordQuery(operation, start, err) }()

	queryCtx, cancel := context.WithTimeout(ctx, sqlite.DefaultTimeout)
	defer cancel()

	rows, err := idx.db.QueryContext(queryCtx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", operation, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, scanErr := scanDocument(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		docs = append(docs, doc)
	}
	err = rows.Err()
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// All returns every tracked document in insertion order.
func (idx *Index) All(ctx context.Context) ([]Document, error) {
	return idx.queryDocuments(ctx, "all_documents",
		"SELECT "+documentColumns+" FROM documents ORDER BY id ASC")
}

// FindByHash returns the documents whose content digest matches hash.
// Several documents may share one digest when the same file exists in
// more than one directory.
func (idx *Index) FindByHash(ctx context.Context, hash string) ([]Document, error) {
	return idx.queryDocuments(ctx, "find_by_hash",
		"SELECT "+documentColumns+" FROM documents WHERE hash = ? ORDER BY dir ASC, title ASC",
		hash)
}

// FindByTitle returns documents matching title, case-insensitively.
func (idx *Index) FindByTitle(ctx context.Context, title string) ([]Document, error) {
	return idx.queryDocuments(ctx, "find_by_title",
		"SELECT "+documentColumns+" FROM documents WHERE title = ? COLLATE NOCASE ORDER BY dir ASC",
		title)
}

// DumpTitles writes the distinct set of tracked titles to w, one per
// line, sorted, and returns the number written. A title present in
// several directories (or under several types) appears once.
func (idx *Index) DumpTitles(ctx context.Context, w io.Writer) (int, error) {
	start := time.Now()
	var err error
	defer func() { sqlite.RecordQuery("dump_titles", start, err) }()

	queryCtx, cancel := context.WithTimeout(ctx, sqlite.DefaultTimeout)
	defer cancel()

	rows, err := idx.db.QueryContext(queryCtx,
		"SELECT DISTINCT title FROM documents ORDER BY title ASC")
	if err != nil {
		return 0, fmt.Errorf("dump_titles failed: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var title string
		if err = rows.Scan(&title); err != nil {
			return count, err
		}
		if _, err = fmt.Fprintln(w, title); err != nil {
			return count, err
		}
		count++
	}
	err = rows.Err()
	return count, err
}
