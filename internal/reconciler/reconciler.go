package reconciler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"library-indexer/internal/logging"
	"library-indexer/internal/metrics"
	"library-indexer/internal/scanner"
	"library-indexer/internal/summary"
	"library-indexer/internal/syncindex"
)

// Minimum documents to reconcile before marking the server ready.
const minDocsForReady = 100

// Reconciler drives the periodic library scans: each run walks the
// declared roots once, feeding every record through the sync index's
// CheckNew, then rebuilds the summary snapshot from a second walk.
type Reconciler struct {
	scanner     *scanner.Scanner
	summary     *summary.Index
	sync        *syncindex.Index
	interval    time.Duration
	hashWorkers int

	stopChan chan struct{}

	runMu               sync.Mutex
	isRunning           bool
	lastRunTime         time.Time
	initialSyncComplete bool
	initialSyncError    error
	startTime           time.Time

	docsChecked atomic.Int64
	progress    atomic.Value // Progress
	lastReport  atomic.Value // syncindex.Report

	onSyncComplete func()
}

// Progress tracks a reconciliation run in flight.
type Progress struct {
	DocsChecked int64     `json:"docsChecked"`
	Running     bool      `json:"running"`
	StartedAt   time.Time `json:"startedAt,omitempty"`
}

// New creates a Reconciler. interval is the period between automatic
// runs; hashWorkers bounds concurrent file reads during cleanup.
func New(sc *scanner.Scanner, sum *summary.Index, syn *syncindex.Index, interval time.Duration, hashWorkers int) *Reconciler {
	r := &Reconciler{
		scanner:     sc,
		summary:     sum,
		sync:        syn,
		interval:    interval,
		hashWorkers: hashWorkers,
		stopChan:    make(chan struct{}),
		startTime:   time.Now(),
	}
	r.progress.Store(Progress{})
	r.lastReport.Store(syncindex.Report{})
	return r
}

// SetOnSyncComplete sets a callback invoked after each completed run.
func (r *Reconciler) SetOnSyncComplete(callback func()) {
	r.onSyncComplete = callback
}

// Start launches the initial reconciliation in the background and the
// periodic re-run loop.
func (r *Reconciler) Start() {
	go func() {
		logging.Info("Starting initial reconciliation in background...")
		if err := r.Sync(context.Background()); err != nil {
			logging.Error("Initial reconciliation error: %v", err)
			r.runMu.Lock()
			r.initialSyncError = err
			r.runMu.Unlock()
		}
	}()

	go r.periodicSync()
}

// Stop stops the periodic loop. In-flight runs finish on their own.
func (r *Reconciler) Stop() {
	close(r.stopChan)
}

func (r *Reconciler) periodicSync() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logging.Debug("Periodic reconciliation triggered")
			if err := r.Sync(context.Background()); err != nil {
				logging.Error("periodic reconciliation failed: %v", err)
			}
		case <-r.stopChan:
			return
		}
	}
}

// Sync performs one full reconciliation run. A run already in progress
// makes this a no-op.
func (r *Reconciler) Sync(ctx context.Context) error {
	if !r.tryStartRun() {
		logging.Info("Reconciliation already in progress, skipping...")
		return nil
	}
	defer r.finishRun()

	metrics.ReconcilerIsRunning.Set(1)
	defer metrics.ReconcilerIsRunning.Set(0)

	startTime := time.Now()
	logging.Info("Starting reconciliation...")
	r.docsChecked.Store(0)
	r.progress.Store(Progress{Running: true, StartedAt: startTime})

	report := &syncindex.Report{}
	_, err := r.scanner.Walk(ctx, func(rec scanner.FileRecord) error {
		if err := r.sync.CheckNew(ctx, rec, report); err != nil {
			return err
		}
		if n := r.docsChecked.Add(1); n%500 == 0 {
			r.progress.Store(Progress{DocsChecked: n, Running: true, StartedAt: startTime})
		}
		return nil
	})
	if err != nil {
		metrics.ReconcilerErrors.Inc()
		return err
	}

	// The summary snapshot follows the same scan results, so rebuild it
	// while the directory tree is still warm in the page cache.
	if _, err := r.summary.Rebuild(ctx); err != nil {
		logging.Error("Summary rebuild after reconciliation failed: %v", err)
		metrics.ReconcilerErrors.Inc()
	}

	r.finalizeRun(startTime, report)
	return nil
}

// Cleanup runs a store-driven cleanup pass over the sync index.
func (r *Reconciler) Cleanup(ctx context.Context, checkHash bool) (*syncindex.Report, error) {
	return r.sync.Cleanup(ctx, syncindex.CleanupOptions{
		CheckHash: checkHash,
		Workers:   r.hashWorkers,
		Progress: func(done, total int) {
			logging.Info("Cleanup progress: %d/%d documents", done, total)
		},
	})
}

// TriggerSync starts a reconciliation run in the background.
func (r *Reconciler) TriggerSync() {
	go func() {
		if err := r.Sync(context.Background()); err != nil {
			logging.Error("manually triggered reconciliation failed: %v", err)
		}
	}()
}

func (r *Reconciler) tryStartRun() bool {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.isRunning {
		return false
	}
	r.isRunning = true
	return true
}

func (r *Reconciler) finishRun() {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	r.isRunning = false
	r.initialSyncComplete = true
}

func (r *Reconciler) finalizeRun(startTime time.Time, report *syncindex.Report) {
	duration := time.Since(startTime)

	r.runMu.Lock()
	r.lastRunTime = time.Now()
	r.runMu.Unlock()

	r.lastReport.Store(*report)
	r.progress.Store(Progress{DocsChecked: r.docsChecked.Load()})

	metrics.ReconcilerRunsTotal.WithLabelValues("checknew").Inc()
	metrics.ReconcilerLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.ReconcilerLastRunDuration.Set(duration.Seconds())

	logging.Info("Reconciliation complete in %v: %s", duration.Round(time.Millisecond), report)

	if r.onSyncComplete != nil {
		r.onSyncComplete()
	}
}

// IsRunning reports whether a run is currently in progress.
func (r *Reconciler) IsRunning() bool {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	return r.isRunning
}

// IsReady reports whether the server can serve meaningful answers: the
// initial run has finished, or enough documents have been checked that
// partial answers are useful.
func (r *Reconciler) IsReady() bool {
	if r.docsChecked.Load() >= minDocsForReady {
		return true
	}
	r.runMu.Lock()
	defer r.runMu.Unlock()
	return r.initialSyncComplete
}

// LastRunTime returns the completion time of the last run.
func (r *Reconciler) LastRunTime() time.Time {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	return r.lastRunTime
}

// LastReport returns the outcome counts of the last completed run.
func (r *Reconciler) LastReport() syncindex.Report {
	if rep, ok := r.lastReport.Load().(syncindex.Report); ok {
		return rep
	}
	return syncindex.Report{}
}

// GetProgress returns the progress of the run in flight, if any.
func (r *Reconciler) GetProgress() Progress {
	if p, ok := r.progress.Load().(Progress); ok {
		return p
	}
	return Progress{}
}

// HealthStatus contains health check information.
type HealthStatus struct {
	Ready            bool             `json:"ready"`
	Reconciling      bool             `json:"reconciling"`
	StartTime        time.Time        `json:"startTime"`
	Uptime           string           `json:"uptime"`
	LastRun          time.Time        `json:"lastRun,omitempty"`
	InitialSyncError string           `json:"initialSyncError,omitempty"`
	DocsChecked      int64            `json:"docsChecked"`
	LastReport       syncindex.Report `json:"lastReport"`
	Progress         *Progress        `json:"progress,omitempty"`
}

// GetHealthStatus returns detailed health information.
func (r *Reconciler) GetHealthStatus() HealthStatus {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	status := HealthStatus{
		Ready:       r.initialSyncComplete || r.docsChecked.Load() >= minDocsForReady,
		Reconciling: r.isRunning,
		StartTime:   r.startTime,
		Uptime:      time.Since(r.startTime).String(),
		LastRun:     r.lastRunTime,
		DocsChecked: r.docsChecked.Load(),
		LastReport:  r.LastReport(),
	}

	if r.isRunning {
		p := r.GetProgress()
		status.Progress = &p
	}
	if r.initialSyncError != nil {
		status.InitialSyncError = r.initialSyncError.Error()
	}

	return status
}
