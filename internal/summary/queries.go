package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"library-indexer/internal/scanner"
	"library-indexer/internal/sqlite"
)

// ListOptions filters and pages a List call. Zero values mean "no
// filter" / "no limit".
type ListOptions struct {
	FilterType string
	FilterDir  string
	Limit      int
	Offset     int
}

// List returns books from the snapshot ordered by title ascending,
// rebuilding the snapshot first if it has not been built this run.
func (idx *Index) List(ctx context.Context, opts ListOptions) ([]Book, error) {
	if err := idx.ensureBuilt(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	var err error
	defer func() { sqlite.RecordQuery("list_books", start, err) }()

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	query := "SELECT id, title, type, dir, size, mtime FROM books"
	var conds []string
	var args []any
	if opts.FilterType != "" {
		conds = append(conds, "type = ?")
		args = append(args, opts.FilterType)
	}
	if opts.FilterDir != "" {
		// Match the directory itself and everything beneath it.
		conds = append(conds, "(dir = ? OR dir LIKE ?)")
		args = append(args, opts.FilterDir, opts.FilterDir+"/%")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY title ASC"
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	queryCtx, cancel := context.WithTimeout(ctx, sqlite.DefaultTimeout)
	defer cancel()

	rows, err := idx.db.QueryContext(queryCtx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		var mtime int64
		if err = rows.Scan(&b.ID, &b.Title, &b.Type, &b.Dir, &b.Size, &mtime); err != nil {
			return nil, err
		}
		b.MTime = time.Unix(mtime, 0)
		books = append(books, b)
	}
	err = rows.Err()
	return books, err
}

// DirSummary is one directory's share of the library.
type DirSummary struct {
	Dir     string  `json:"dir"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Summary is the per-directory breakdown of the snapshot. Directories
// that were visited but hold no files appear with a zero count.
type Summary struct {
	Total int          `json:"total"`
	Dirs  []DirSummary `json:"dirs"`
}

// Summarize reports per-directory file counts. The counters gathered
// during the last rebuild are used when available; otherwise they are
// recomputed from the snapshot (losing the zero-count entries for empty
// directories, which only a scan can observe).
func (idx *Index) Summarize(ctx context.Context) (*Summary, error) {
	if err := idx.ensureBuilt(ctx); err != nil {
		return nil, err
	}

	idx.countersMu.RLock()
	counters := idx.counters
	idx.countersMu.RUnlock()

	if counters != nil {
		return summarizeCounters(counters), nil
	}
	return idx.summarizeFromDB(ctx)
}

func summarizeCounters(counters *scanner.Counters) *Summary {
	total := counters.Total()
	s := &Summary{Total: total}
	for _, dir := range counters.Dirs() {
		count := counters.Get(dir)
		s.Dirs = append(s.Dirs, DirSummary{
			Dir:     dir,
			Count:   count,
			Percent: percent(count, total),
		})
	}
	return s
}

func (idx *Index) summarizeFromDB(ctx context.Context) (*Summary, error) {
	start := time.Now()
	var err error
	defer func() { sqlite.RecordQuery("summarize", start, err) }()

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	queryCtx, cancel := context.WithTimeout(ctx, sqlite.DefaultTimeout)
	defer cancel()

	rows, err := idx.db.QueryContext(queryCtx,
		"SELECT dir, COUNT(*) FROM books GROUP BY dir ORDER BY dir ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to summarize: %w", err)
	}
	defer rows.Close()

	s := &Summary{}
	for rows.Next() {
		var d DirSummary
		if err = rows.Scan(&d.Dir, &d.Count); err != nil {
			return nil, err
		}
		s.Total += d.Count
		s.Dirs = append(s.Dirs, d)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	for i := range s.Dirs {
		s.Dirs[i].Percent = percent(s.Dirs[i].Count, s.Total)
	}
	return s, nil
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

// Stats describes the snapshot as a whole.
type Stats struct {
	TotalBooks  int            `json:"total_books"`
	TotalSize   int64          `json:"total_size"`
	CountByType map[string]int `json:"count_by_type"`
}

// Stats reports snapshot-wide totals and the per-type breakdown.
func (idx *Index) Stats(ctx context.Context) (*Stats, error) {
	if err := idx.ensureBuilt(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	var err error
	defer func() { sqlite.RecordQuery("summary_stats", start, err) }()

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	queryCtx, cancel := context.WithTimeout(ctx, sqlite.DefaultTimeout)
	defer cancel()

	st := &Stats{CountByType: make(map[string]int)}
	err = idx.db.QueryRowContext(queryCtx,
		"SELECT COUNT(*), COALESCE(SUM(size), 0) FROM books").
		Scan(&st.TotalBooks, &st.TotalSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot totals: %w", err)
	}

	rows, err := idx.db.QueryContext(queryCtx,
		"SELECT type, COUNT(*) FROM books GROUP BY type")
	if err != nil {
		return nil, fmt.Errorf("failed to read type breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var typ string
		var count int
		if err = rows.Scan(&typ, &count); err != nil {
			return nil, err
		}
		st.CountByType[typ] = count
	}
	err = rows.Err()
	return st, err
}
