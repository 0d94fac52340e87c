package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"library-indexer/internal/hashing"
	"library-indexer/internal/scanner"
	"library-indexer/internal/syncindex"
	"library-indexer/internal/workers"
)

const (
	// Default timeout for a full maintenance pass over a large library.
	defaultTimeout = 4 * time.Hour

	defaultLibraryDir   = "/library"
	defaultDatabaseDir  = "/database"
	defaultLibraryRoots = "Documents,PROC,Books,Papers,Slides"
)

var (
	flagNew   bool
	flagCheck bool
	flagDump  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "checkdocs",
		Short: "Offline maintenance for the document sync index",
		Long: `checkdocs runs sync-index maintenance without the HTTP server:
reconcile the index against the library, verify tracked documents,
or dump the distinct tracked titles.

The library and database locations are taken from LIBRARY_DIR,
DATABASE_DIR and LIBRARY_ROOTS, matching the server.`,
		SilenceUsage: true,
		RunE:         run,
	}

	rootCmd.Flags().BoolVarP(&flagNew, "new", "n", false, "scan the library and index new or changed documents")
	rootCmd.Flags().BoolVarP(&flagCheck, "check", "c", false, "verify tracked documents exist and their hashes still match")
	rootCmd.Flags().BoolVarP(&flagDump, "dump", "d", false, "print the distinct tracked titles, one per line")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	if !flagNew && !flagCheck && !flagDump {
		return cmd.Usage()
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	libraryDir := envOr("LIBRARY_DIR", defaultLibraryDir)
	databaseDir := envOr("DATABASE_DIR", defaultDatabaseDir)
	roots := splitRoots(envOr("LIBRARY_ROOTS", defaultLibraryRoots))

	// One maintenance pass at a time, also across processes.
	lock := flock.New(filepath.Join(databaseDir, "checkdocs.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another checkdocs run holds %s", lock.Path())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to release lock: %v\n", err)
		}
	}()

	hasher, err := hashing.NewService(hashing.DefaultCacheSize)
	if err != nil {
		return fmt.Errorf("creating hashing service: %w", err)
	}

	idx, err := syncindex.New(ctx, filepath.Join(databaseDir, "documents.sqlite"), libraryDir, hasher)
	if err != nil {
		return fmt.Errorf("opening sync index: %w", err)
	}
	defer func() {
		if err := idx.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close sync index: %v\n", err)
		}
	}()

	if flagDump {
		n, err := idx.DumpTitles(ctx, os.Stdout)
		if err != nil {
			return fmt.Errorf("dumping titles: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Dumped %d titles\n", n)
	}

	if flagNew {
		if err := runCheckNew(ctx, libraryDir, roots, idx); err != nil {
			return err
		}
	}

	if flagCheck {
		if err := runCleanup(ctx, idx); err != nil {
			return err
		}
	}

	return nil
}

func runCheckNew(ctx context.Context, libraryDir string, roots []string, idx *syncindex.Index) error {
	sc := scanner.New(libraryDir, roots)

	start := time.Now()
	report := &syncindex.Report{}
	if _, err := sc.Walk(ctx, func(rec scanner.FileRecord) error {
		return idx.CheckNew(ctx, rec, report)
	}); err != nil {
		return fmt.Errorf("scanning library: %w", err)
	}

	fmt.Printf("Scan complete in %s: %s\n", time.Since(start).Round(time.Millisecond), report)
	return nil
}

func runCleanup(ctx context.Context, idx *syncindex.Index) error {
	start := time.Now()
	report, err := idx.Cleanup(ctx, syncindex.CleanupOptions{
		CheckHash: true,
		Workers:   workers.ForMixed(8),
		Progress: func(done, total int) {
			fmt.Fprintf(os.Stderr, "Verified %d/%d documents\n", done, total)
		},
	})
	if err != nil {
		return fmt.Errorf("verifying documents: %w", err)
	}

	fmt.Printf("Verification complete in %s: %s\n", time.Since(start).Round(time.Millisecond), report)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitRoots(value string) []string {
	var roots []string
	for _, root := range strings.Split(value, ",") {
		if root = strings.TrimSpace(root); root != "" {
			roots = append(roots, root)
		}
	}
	return roots
}
