package syncindex

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"library-indexer/internal/doctypes"
	"library-indexer/internal/hashing"
	"library-indexer/internal/logging"
	"library-indexer/internal/sqlite"
)

// Document is one tracked file in the sync index. A document's identity
// is the (title, type, dir) triple, so the same title may exist in
// several directories as distinct documents. Hash is the hex MD5 of the
// file content, or empty when it has not been computed yet.
type Document struct {
	ID    int64     `json:"id"`
	Title string    `json:"title"`
	Type  string    `json:"type"`
	Dir   string    `json:"dir"`
	Size  int64     `json:"size"`
	MTime time.Time `json:"mtime"`
	Hash  string    `json:"hash,omitempty"`
}

// Index is the incremental document store. Unlike the summary snapshot
// it is never rebuilt wholesale: reconciliation patches it document by
// document, so content hashes survive across runs.
type Index struct {
	db         *sql.DB
	dbPath     string
	libraryDir string
	hasher     *hashing.Service

	mu sync.Mutex // serializes writes
}

// New opens (creating if needed) the sync database at dbPath. libraryDir
// is the root under which document paths are resolved.
func New(ctx context.Context, dbPath, libraryDir string, hasher *hashing.Service) (*Index, error) {
	db, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		db:         db,
		dbPath:     dbPath,
		libraryDir: libraryDir,
		hasher:     hasher,
	}

	if err := idx.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close sync database after init failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize sync schema: %w", err)
	}

	logging.Info("Sync index ready at %s", dbPath)
	return idx, nil
}

func (idx *Index) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		type TEXT NOT NULL,
		dir TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		mtime INTEGER NOT NULL,
		hash TEXT,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		UNIQUE(title, type, dir)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_title_type ON documents(title, type);
	CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(hash);
	CREATE INDEX IF NOT EXISTS idx_documents_title_nocase ON documents(title COLLATE NOCASE);
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

// LibraryDir returns the root under which document paths resolve.
func (idx *Index) LibraryDir() string {
	return idx.libraryDir
}

// DocPath resolves a document back to its absolute filesystem path,
// re-encoding the title's slash token and re-joining the type suffix.
func (idx *Index) DocPath(doc Document) string {
	name := doctypes.Filename(doc.Title, doc.Type)
	return filepath.Join(idx.libraryDir, filepath.FromSlash(doc.Dir), name)
}

// Count reports the number of tracked documents.
func (idx *Index) Count(ctx context.Context) (int, error) {
	start := time.Now()
	var err error
	defer func() { sqlite.RecordQuery("sync_count", start, err) }()

	queryCtx, cancel := context.WithTimeout(ctx, sqlite.DefaultTimeout)
	defer cancel()

	var count int
	err = idx.db.QueryRowContext(queryCtx, "SELECT COUNT(*) FROM documents").Scan(&count)
	return count, err
}

func scanDocument(row interface{ Scan(...any) error }) (Document, error) {
	var doc Document
	var mtime int64
	var hash sql.NullString
	err := row.Scan(&doc.ID, &doc.Title, &doc.Type, &doc.Dir, &doc.Size, &mtime, &hash)
	if err != nil {
		return Document{}, err
	}
	doc.MTime = time.Unix(mtime, 0)
	doc.Hash = hash.String
	return doc, nil
}

const documentColumns = "id, title, type, dir, size, mtime, hash"
