package syncindex

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"library-indexer/internal/logging"
	"library-indexer/internal/metrics"
)

// progressStep is how often (in documents) cleanup progress is reported.
const progressStep = 100

// CleanupOptions configures a Cleanup pass.
type CleanupOptions struct {
	// CheckHash re-reads every surviving file and compares its digest
	// against the stored one. Mismatches are reported and counted but
	// the stored hash is left alone, so a later investigation can still
	// see what the content used to be.
	CheckHash bool
	// Workers bounds concurrent file reads. Zero or less means 1.
	Workers int
	// Progress, when set, is called periodically with the number of
	// documents examined so far and the total.
	Progress func(done, total int)
}

// Cleanup walks the store (not the filesystem) and removes documents
// whose file no longer exists on disk. With CheckHash set it also
// verifies content integrity of the files that do exist, bypassing the
// hash memo cache so stale cache entries cannot mask corruption.
func (idx *Index) Cleanup(ctx context.Context, opts CleanupOptions) (*Report, error) {
	docs, err := idx.All(ctx)
	if err != nil {
		return nil, err
	}
	total := len(docs)
	logging.Info("Cleanup pass over %d documents (check_hash=%v)", total, opts.CheckHash)
	start := time.Now()

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	report := &Report{Checked: total}
	var reportMu sync.Mutex
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome, err := idx.cleanupOne(gctx, doc, opts.CheckHash)
			if err != nil {
				return err
			}

			reportMu.Lock()
			report.Add(outcome)
			reportMu.Unlock()

			if n := done.Add(1); n%progressStep == 0 || int(n) == total {
				metrics.CleanupProgress.Set(float64(n) / float64(max(total, 1)))
				if opts.Progress != nil {
					opts.Progress(int(n), total)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		metrics.ReconcilerErrors.Inc()
		return report, err
	}

	metrics.ReconcilerRunsTotal.WithLabelValues("cleanup").Inc()
	metrics.CleanupProgress.Set(1)
	logging.Info("Cleanup complete in %v: %s", time.Since(start).Round(time.Millisecond), report)
	return report, nil
}

// cleanupOne examines one document and returns the counts to fold into
// the run's report. Only the disappearance of the file mutates the
// store.
func (idx *Index) cleanupOne(ctx context.Context, doc Document, checkHash bool) (Report, error) {
	var outcome Report
	path := idx.DocPath(doc)

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("Cannot stat %s: %v", path, err)
			outcome.Errors++
			return outcome, nil
		}
		logging.Info("Removing stale document %s/%s (file gone: %s)", doc.Dir, doc.Title, path)
		if err := idx.deleteDocument(ctx, doc.ID); err != nil {
			return outcome, err
		}
		outcome.Removed++
		metrics.DocumentsRemoved.Inc()
		return outcome, nil
	}

	if !checkHash || doc.Hash == "" {
		return outcome, nil
	}

	digest, err := idx.hasher.HashFileUncached(path)
	if err != nil {
		logging.Warn("Cannot verify %s: %v", path, err)
		outcome.Errors++
		return outcome, nil
	}
	if digest != doc.Hash {
		logging.Error("Hash mismatch for %s: stored %s, on disk %s", path, doc.Hash, digest)
		outcome.Mismatched++
		metrics.DocumentsMismatched.Inc()
	}
	return outcome, nil
}
