package summary

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"library-indexer/internal/logging"
	"library-indexer/internal/metrics"
	"library-indexer/internal/scanner"
	"library-indexer/internal/sqlite"
)

// Book is one row of the summary snapshot: the classified identity of a
// file as observed at the last rebuild.
type Book struct {
	ID    int64     `json:"id"`
	Title string    `json:"title"`
	Type  string    `json:"type"`
	Dir   string    `json:"dir"`
	Size  int64     `json:"size"`
	MTime time.Time `json:"mtime"`
}

// Index is the disposable summary snapshot. It is rebuilt wholesale
// from a filesystem scan and never patched incrementally; the database
// file can be deleted at any time and regenerated on the next query.
type Index struct {
	db      *sql.DB
	dbPath  string
	scanner *scanner.Scanner

	mu    sync.RWMutex // serializes rebuilds against reads
	built bool

	countersMu sync.RWMutex
	counters   *scanner.Counters // per-directory counts from the last rebuild
}

// New opens (creating if needed) the summary database at dbPath. The
// snapshot is not populated here; the first List or Summarize call, or
// an explicit Rebuild, fills it.
func New(ctx context.Context, dbPath string, sc *scanner.Scanner) (*Index, error) {
	db, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		db:      db,
		dbPath:  dbPath,
		scanner: sc,
	}

	if err := idx.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close summary database after init failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize summary schema: %w", err)
	}

	logging.Info("Summary index ready at %s", dbPath)
	return idx, nil
}

func (idx *Index) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		type TEXT NOT NULL,
		dir TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		mtime INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);
	CREATE INDEX IF NOT EXISTS idx_books_dir ON books(dir);
	CREATE INDEX IF NOT EXISTS idx_books_type ON books(type);
	`
	_, err := idx.db.ExecContext(ctx, schema)
	return err
}

// Close closes the underlying database.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Path returns the database file path.
func (idx *Index) Path() string {
	return idx.dbPath
}

// Rebuild scans the library and replaces the entire snapshot with the
// result. The new rows are staged in a shadow table and swapped in at
// commit, so concurrent readers see either the old snapshot or the new
// one, never a half-built mix. Returns the number of books indexed.
func (idx *Index) Rebuild(ctx context.Context) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	logging.Info("Rebuilding summary index from %s", idx.scanner.LibraryDir())
	start := time.Now()

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin rebuild transaction: %w", err)
	}

	count, counters, err := idx.rebuildInto(ctx, tx)
	if err = sqlite.EndBatch(tx, start, err); err != nil {
		metrics.ReconcilerErrors.Inc()
		return 0, err
	}

	idx.built = true
	idx.countersMu.Lock()
	idx.counters = counters
	idx.countersMu.Unlock()

	metrics.ReconcilerRunsTotal.WithLabelValues("rebuild").Inc()
	metrics.UpdateDBSizeMetrics("summary", idx.dbPath)
	logging.Info("Summary rebuild complete: %d books in %d directories (%v)",
		count, counters.Len(), time.Since(start).Round(time.Millisecond))
	return count, nil
}

func (idx *Index) rebuildInto(ctx context.Context, tx *sql.Tx) (int, *scanner.Counters, error) {
	stage := `
	DROP TABLE IF EXISTS books_new;
	CREATE TABLE books_new (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		type TEXT NOT NULL,
		dir TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		mtime INTEGER NOT NULL
	);
	`
	if _, err := tx.ExecContext(ctx, stage); err != nil {
		return 0, nil, fmt.Errorf("failed to stage shadow table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO books_new (title, type, dir, size, mtime) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return 0, nil, err
	}
	defer stmt.Close()

	count := 0
	counters, err := idx.scanner.Walk(ctx, func(rec scanner.FileRecord) error {
		if _, err := stmt.ExecContext(ctx, rec.Title, rec.Type, rec.Dir, rec.Size, rec.MTime.Unix()); err != nil {
			return fmt.Errorf("failed to insert %q: %w", rec.Title, err)
		}
		count++
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	swap := `
	DROP TABLE IF EXISTS books;
	ALTER TABLE books_new RENAME TO books;
	CREATE INDEX idx_books_title ON books(title);
	CREATE INDEX idx_books_dir ON books(dir);
	CREATE INDEX idx_books_type ON books(type);
	`
	if _, err := tx.ExecContext(ctx, swap); err != nil {
		return 0, nil, fmt.Errorf("failed to swap in new snapshot: %w", err)
	}

	return count, counters, nil
}

// ensureBuilt makes read operations work on a fresh database. A
// non-empty snapshot persisted by a previous run is served as-is;
// only an empty (or deleted-and-recreated) database triggers a scan.
func (idx *Index) ensureBuilt(ctx context.Context) error {
	idx.mu.RLock()
	built := idx.built
	idx.mu.RUnlock()
	if built {
		return nil
	}

	idx.mu.Lock()
	if idx.built {
		idx.mu.Unlock()
		return nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, sqlite.DefaultTimeout)
	var persisted int
	err := idx.db.QueryRowContext(queryCtx, "SELECT COUNT(*) FROM books").Scan(&persisted)
	cancel()
	if err == nil && persisted > 0 {
		// Counters stay nil: summaries for a reused snapshot come from
		// the persisted rows, not a filesystem walk.
		logging.Info("Reusing persisted summary snapshot (%d books)", persisted)
		idx.built = true
		idx.mu.Unlock()
		return nil
	}
	idx.mu.Unlock()

	_, err = idx.Rebuild(ctx)
	return err
}
