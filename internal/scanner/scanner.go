package scanner

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"time"

	"library-indexer/internal/doctypes"
	"library-indexer/internal/logging"
	"library-indexer/internal/metrics"
)

// scanChannelBuffer is the buffer size of the channel returned by Scan.
const scanChannelBuffer = 64

// FileRecord describes one classified file found during a scan. Records are
// produced fresh on every scan and are never persisted as-is.
type FileRecord struct {
	// Dir is the slash-separated path of the containing directory,
	// relative to the library root and starting with a declared root
	// name (e.g. "Documents/Archive").
	Dir string
	// Title is the logical document title: the filename with its type
	// suffix removed and the %2f separator token decoded.
	Title string
	// Type is the lowercase extension tag, possibly multi-part
	// ("tar.gz"). Empty when the filename could not be classified.
	Type string
	// Size is the file size in bytes.
	Size int64
	// MTime is the file modification time.
	MTime time.Time
	// Path is the absolute path used to re-open the file for hashing.
	Path string
}

// Scanner walks a set of declared root directories beneath a library root
// and produces classified FileRecords.
type Scanner struct {
	libraryDir string
	roots      []string
}

// New creates a Scanner for the given library directory and declared roots.
// Roots are scanned in the order given; each is resolved relative to the
// library directory.
func New(libraryDir string, roots []string) *Scanner {
	return &Scanner{
		libraryDir: libraryDir,
		roots:      roots,
	}
}

// Roots returns the declared root directory names.
func (s *Scanner) Roots() []string {
	return s.roots
}

// LibraryDir returns the library root directory.
func (s *Scanner) LibraryDir() string {
	return s.libraryDir
}

// Walk visits every regular file beneath the declared roots, calling fn for
// each classified record, and returns the per-directory counters gathered
// along the way.
//
// Traversal order: within a directory all files are emitted before any
// subdirectory is entered, and subdirectories are entered in sorted name
// order, so the directory sequence is reproducible across runs. The order
// of files within one directory follows the underlying enumeration and is
// not part of the contract.
//
// A directory that cannot be read is logged and skipped; the walk carries
// on with its siblings and the remaining roots. An error returned by fn
// stops the walk and is returned as-is.
func (s *Scanner) Walk(ctx context.Context, fn func(FileRecord) error) (*Counters, error) {
	counters := NewCounters()
	return counters, s.walkAll(ctx, counters, fn)
}

func (s *Scanner) walkAll(ctx context.Context, counters *Counters, fn func(FileRecord) error) error {
	for _, root := range s.roots {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.walkDir(ctx, root, counters, fn); err != nil {
			return err
		}
	}
	return nil
}

// walkDir scans one directory, emitting its files and then recursing into
// its subdirectories. dir is the slash-separated logical path of the
// directory relative to the library root.
func (s *Scanner) walkDir(ctx context.Context, dir string, counters *Counters, fn func(FileRecord) error) error {
	absDir := filepath.Join(s.libraryDir, filepath.FromSlash(dir))
	logging.Debug("Scanning %s", absDir)

	// Every visited directory is registered, even when it holds no files.
	counters.Register(dir)
	metrics.ScannerDirsSeen.Inc()

	entries, err := os.ReadDir(absDir)
	if err != nil {
		logging.Warn("Skipping unreadable directory %s: %v", absDir, err)
		metrics.ScannerDirsSkipped.Inc()
		return nil
	}

	var subdirs []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		if entry.IsDir() {
			subdirs = append(subdirs, entry.Name())
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			logging.Warn("Skipping %s: %v", filepath.Join(absDir, entry.Name()), err)
			continue
		}

		title, docType := doctypes.Classify(entry.Name())

		counters.Add(dir, 1)
		metrics.ScannerFilesSeen.Inc()

		rec := FileRecord{
			Dir:   dir,
			Title: doctypes.DecodeTitle(title),
			Type:  docType,
			Size:  info.Size(),
			MTime: info.ModTime(),
			Path:  filepath.Join(absDir, entry.Name()),
		}
		if err := fn(rec); err != nil {
			return err
		}
	}

	// os.ReadDir returns entries sorted by name, so subdirs is already in
	// the traversal order the contract requires.
	for _, sub := range subdirs {
		if err := s.walkDir(ctx, path.Join(dir, sub), counters, fn); err != nil {
			return err
		}
	}

	return nil
}

// Scan streams all records over a channel. The channel is closed when the
// scan completes or the context is cancelled; the sequence is single-pass
// and not restartable. The returned Counters are filled in as a side effect
// of the scan and are complete only once the channel has been closed.
func (s *Scanner) Scan(ctx context.Context) (<-chan FileRecord, *Counters) {
	out := make(chan FileRecord, scanChannelBuffer)
	counters := NewCounters()

	go func() {
		defer close(out)
		err := s.walkAll(ctx, counters, func(rec FileRecord) error {
			select {
			case out <- rec:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("Scan aborted: %v", err)
		}
	}()

	return out, counters
}
