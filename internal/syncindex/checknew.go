package syncindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"library-indexer/internal/hashing"
	"library-indexer/internal/logging"
	"library-indexer/internal/metrics"
	"library-indexer/internal/scanner"
	"library-indexer/internal/sqlite"
)

// Report accumulates the outcome counts of a reconciliation pass.
type Report struct {
	Checked    int `json:"checked"`
	Inserted   int `json:"inserted"`
	Updated    int `json:"updated"`
	Backfilled int `json:"backfilled"`
	Removed    int `json:"removed"`
	Mismatched int `json:"mismatched"`
	Errors     int `json:"errors"`
}

func (r *Report) String() string {
	return fmt.Sprintf("checked=%d inserted=%d updated=%d backfilled=%d removed=%d mismatched=%d errors=%d",
		r.Checked, r.Inserted, r.Updated, r.Backfilled, r.Removed, r.Mismatched, r.Errors)
}

// Add folds other's counts into r.
func (r *Report) Add(other Report) {
	r.Checked += other.Checked
	r.Inserted += other.Inserted
	r.Updated += other.Updated
	r.Backfilled += other.Backfilled
	r.Removed += other.Removed
	r.Mismatched += other.Mismatched
	r.Errors += other.Errors
}

// CheckNew reconciles one scanned file against the store. A document
// with the same title and type in the same directory is refreshed in
// place; the same title in a different directory is a distinct document
// and gets its own row. New documents are hashed before insert; a hash
// failure skips the insert and is counted, leaving the rest of the run
// unaffected.
func (idx *Index) CheckNew(ctx context.Context, rec scanner.FileRecord, report *Report) error {
	report.Checked++

	existing, err := idx.getDocument(ctx, rec.Title, rec.Type, rec.Dir)
	switch {
	case err == nil:
		return idx.refreshDocument(ctx, existing, rec, report)
	case errors.Is(err, sql.ErrNoRows):
		return idx.insertDocument(ctx, rec, report)
	default:
		return fmt.Errorf("failed to look up %q: %w", rec.Title, err)
	}
}

func (idx *Index) getDocument(ctx context.Context, title, docType, dir string) (Document, error) {
	queryCtx, cancel := context.WithTimeout(ctx, sqlite.DefaultTimeout)
	defer cancel()

	row := idx.db.QueryRowContext(queryCtx,
		"SELECT "+documentColumns+" FROM documents WHERE title = ? AND type = ? AND dir = ?",
		title, docType, dir)
	return scanDocument(row)
}

// refreshDocument re-examines the live file behind an existing row. The
// file is re-stat'ed rather than trusted from the scan record, so a file
// deleted mid-run is caught here and removed instead of updated.
func (idx *Index) refreshDocument(ctx context.Context, doc Document, rec scanner.FileRecord, report *Report) error {
	info, err := os.Stat(rec.Path)
	if err != nil {
		if hashing.IsNotExist(err) {
			logging.Info("Document vanished, removing: %s", rec.Path)
			if err := idx.deleteDocument(ctx, doc.ID); err != nil {
				return err
			}
			report.Removed++
			metrics.DocumentsRemoved.Inc()
			return nil
		}
		logging.Warn("Cannot stat %s: %v", rec.Path, err)
		report.Errors++
		return nil
	}

	changed := info.Size() != doc.Size || info.ModTime().Unix() != doc.MTime.Unix()
	if !changed && doc.Hash != "" {
		return nil
	}

	digest, err := idx.hasher.HashFile(rec.Path)
	if err != nil {
		logging.Warn("Cannot hash %s: %v", rec.Path, err)
		report.Errors++
		return nil
	}

	if !changed {
		// Size and mtime agree; only the missing hash needs filling in.
		if err := idx.updateHash(ctx, doc.ID, digest); err != nil {
			return err
		}
		report.Backfilled++
		metrics.DocumentsBackfilled.Inc()
		return nil
	}

	if err := idx.updateDocument(ctx, doc.ID, info.Size(), info.ModTime(), digest); err != nil {
		return err
	}
	logging.Debug("Updated %s/%s (size %d -> %d)", rec.Dir, rec.Title, doc.Size, info.Size())
	report.Updated++
	metrics.DocumentsUpdated.Inc()
	return nil
}

func (idx *Index) insertDocument(ctx context.Context, rec scanner.FileRecord, report *Report) error {
	digest, err := idx.hasher.HashFile(rec.Path)
	if err != nil {
		logging.Warn("Skipping insert of %s, hash failed: %v", rec.Path, err)
		report.Errors++
		return nil
	}

	start := time.Now()
	defer func() { sqlite.RecordQuery("insert_document", start, err) }()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	execCtx, cancel := context.WithTimeout(ctx, sqlite.DefaultTimeout)
	defer cancel()

	_, err = idx.db.ExecContext(execCtx, `
		INSERT INTO documents (title, type, dir, size, mtime, hash)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Title, rec.Type, rec.Dir, rec.Size, rec.MTime.Unix(), nullable(digest))
	if err != nil {
		return fmt.Errorf("failed to insert %q: %w", rec.Title, err)
	}

	logging.Debug("Inserted %s/%s (%s)", rec.Dir, rec.Title, digest)
	report.Inserted++
	metrics.DocumentsInserted.Inc()
	return nil
}

func (idx *Index) updateDocument(ctx context.Context, id int64, size int64, mtime time.Time, hash string) error {
	start := time.Now()
	var err error
	defer func() { sqlite.RecordQuery("update_document", start, err) }()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	execCtx, cancel := context.WithTimeout(ctx, sqlite.DefaultTimeout)
	defer cancel()

	_, err = idx.db.ExecContext(execCtx, `
		UPDATE documents
		SET size = ?, mtime = ?, hash = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?`,
		size, mtime.Unix(), nullable(hash), id)
	return err
}

func (idx *Index) updateHash(ctx context.Context, id int64, hash string) error {
	start := time.Now()
	var err error
	defer func() { sqlite.RecordQuery("backfill_hash", start, err) }()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	execCtx, cancel := context.WithTimeout(ctx, sqlite.DefaultTimeout)
	defer cancel()

	_, err = idx.db.ExecContext(execCtx, `
		UPDATE documents
		SET hash = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?`,
		nullable(hash), id)
	return err
}

func (idx *Index) deleteDocument(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { sqlite.RecordQuery("delete_document", start, err) }()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	execCtx, cancel := context.WithTimeout(ctx, sqlite.DefaultTimeout)
	defer cancel()

	_, err = idx.db.ExecContext(execCtx, "DELETE FROM documents WHERE id = ?", id)
	return err
}

// nullable maps an empty digest to NULL so "never hashed" is
// distinguishable from any real digest value.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
