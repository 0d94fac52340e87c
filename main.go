package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"library-indexer/internal/filesystem"
	"library-indexer/internal/handlers"
	"library-indexer/internal/hashing"
	"library-indexer/internal/logging"
	"library-indexer/internal/memory"
	"library-indexer/internal/metrics"
	"library-indexer/internal/middleware"
	"library-indexer/internal/reconciler"
	"library-indexer/internal/scanner"
	"library-indexer/internal/startup"
	"library-indexer/internal/summary"
	"library-indexer/internal/syncindex"
	"library-indexer/internal/watcher"
	"library-indexer/internal/workers"
)

func main() {
	startTime := time.Now()

	// Set GOMEMLIMIT before anything allocates in earnest.
	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"library":  config.LibraryDir,
		"database": config.DatabaseDir,
	}))

	sc := scanner.New(config.LibraryDir, config.Roots)

	// Open both stores.
	dbStart := time.Now()
	ctx := context.Background()

	sum, err := summary.New(ctx, config.SummaryDBPath, sc)
	if err != nil {
		logging.Fatal("Failed to open summary index: %v", err)
	}
	defer sum.Close()

	hasher, err := hashing.NewService(config.HashCacheSize)
	if err != nil {
		logging.Fatal("Failed to create hashing service: %v", err)
	}

	syn, err := syncindex.New(ctx, config.SyncDBPath, config.LibraryDir, hasher)
	if err != nil {
		logging.Fatal("Failed to open sync index: %v", err)
	}
	defer syn.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Reconciler runs the initial sync in the background and re-runs on
	// the configured interval.
	startup.LogReconcilerInit(config.SyncInterval)
	rec := reconciler.New(sc, sum, syn, config.SyncInterval, workers.ForMixed(8))
	rec.SetOnSyncComplete(func() {
		metrics.UpdateDBSizeMetrics("summary", config.SummaryDBPath)
		metrics.UpdateDBSizeMetrics("sync", config.SyncDBPath)
	})
	rec.Start()
	defer rec.Stop()
	startup.LogReconcilerStarted()

	// Filesystem watcher folds change bursts into sync triggers.
	var w *watcher.Watcher
	if config.WatchEnabled {
		w, err = watcher.New(config.LibraryDir, config.Roots, watcher.DefaultDebounce, rec.TriggerSync)
		if err != nil {
			logging.Error("Failed to create filesystem watcher: %v", err)
		} else if err := w.Start(); err != nil {
			logging.Error("Failed to start filesystem watcher: %v", err)
			w = nil
		}
	}

	h := handlers.New(sum, syn, rec, config)

	router := mux.NewRouter()
	h.RegisterRoutes(router)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(
		middleware.Metrics(middleware.DefaultMetricsConfig())(router))

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = startMetricsServer(config.MetricsPort)
	}

	go handleShutdown(srv, metricsSrv, rec, w)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error: %v", err)
	}
}

// startMetricsServer exposes /metrics on its own port so operational
// traffic never mixes with API traffic.
func startMetricsServer(port string) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error("Metrics server error: %v", err)
		}
	}()

	return srv
}

func handleShutdown(srv, metricsSrv *http.Server, rec *reconciler.Reconciler, w *watcher.Watcher) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if w != nil {
		startup.LogShutdownStep("Stopping filesystem watcher")
		w.Stop()
		startup.LogShutdownStepComplete("Filesystem watcher stopped")
	}

	startup.LogShutdownStep("Stopping reconciler")
	rec.Stop()
	startup.LogShutdownStepComplete("Reconciler stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
