package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/gofrs/flock"

	"library-indexer/internal/hashing"
	"library-indexer/internal/syncindex"
)

func TestSplitRoots(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "default roots",
			input: defaultLibraryRoots,
			want:  []string{"Documents", "PROC", "Books", "Papers", "Slides"},
		},
		{
			name:  "whitespace and empties trimmed",
			input: " A, B ,,C",
			want:  []string{"A", "B", "C"},
		},
		{
			name:  "single root",
			input: "Documents",
			want:  []string{"Documents"},
		},
		{
			name:  "only separators",
			input: ",,,",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitRoots(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitRoots(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("CHECKDOCS_TEST_VAR", "set")

	if got := envOr("CHECKDOCS_TEST_VAR", "fallback"); got != "set" {
		t.Errorf("envOr with set variable = %q, want %q", got, "set")
	}
	if got := envOr("CHECKDOCS_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("envOr with unset variable = %q, want %q", got, "fallback")
	}
}

// setupTestIndex creates a small library and an open sync index for
// integration tests.
func setupTestIndex(t *testing.T) (libraryDir string, idx *syncindex.Index) {
	t.Helper()

	libraryDir = t.TempDir()
	docs := filepath.Join(libraryDir, "Documents")
	if err := os.MkdirAll(docs, 0o755); err != nil {
		t.Fatalf("failed to create Documents root: %v", err)
	}
	if err := os.WriteFile(filepath.Join(docs, "report.pdf"), []byte("report body"), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	hasher, err := hashing.NewService(hashing.DefaultCacheSize)
	if err != nil {
		t.Fatalf("failed to create hashing service: %v", err)
	}

	dbPath := filepath.Join(t.TempDir(), "documents.sqlite")
	idx, err = syncindex.New(context.Background(), dbPath, libraryDir, hasher)
	if err != nil {
		t.Fatalf("failed to open sync index: %v", err)
	}
	t.Cleanup(func() {
		if err := idx.Close(); err != nil {
			t.Logf("failed to close sync index: %v", err)
		}
	})

	return libraryDir, idx
}

func TestRunCheckNewIntegration(t *testing.T) {
	libraryDir, idx := setupTestIndex(t)
	ctx := context.Background()

	if err := runCheckNew(ctx, libraryDir, []string{"Documents"}, idx); err != nil {
		t.Fatalf("runCheckNew failed: %v", err)
	}

	count, err := idx.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("tracked documents = %d, want 1", count)
	}
}

func TestRunCleanupIntegration(t *testing.T) {
	libraryDir, idx := setupTestIndex(t)
	ctx := context.Background()

	if err := runCheckNew(ctx, libraryDir, []string{"Documents"}, idx); err != nil {
		t.Fatalf("runCheckNew failed: %v", err)
	}

	// Remove the file behind the index's back; cleanup should drop it.
	if err := os.Remove(filepath.Join(libraryDir, "Documents", "report.pdf")); err != nil {
		t.Fatalf("failed to remove test file: %v", err)
	}

	if err := runCleanup(ctx, idx); err != nil {
		t.Fatalf("runCleanup failed: %v", err)
	}

	count, err := idx.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("tracked documents after cleanup = %d, want 0", count)
	}
}

func TestDumpAfterCheckNewIntegration(t *testing.T) {
	libraryDir, idx := setupTestIndex(t)
	ctx := context.Background()

	if err := runCheckNew(ctx, libraryDir, []string{"Documents"}, idx); err != nil {
		t.Fatalf("runCheckNew failed: %v", err)
	}

	var buf bytes.Buffer
	n, err := idx.DumpTitles(ctx, &buf)
	if err != nil {
		t.Fatalf("DumpTitles failed: %v", err)
	}
	if n != 1 {
		t.Errorf("DumpTitles count = %d, want 1", n)
	}
	if got, want := buf.String(), "report\n"; got != want {
		t.Errorf("dump output = %q, want %q", got, want)
	}
}

func TestLockExcludesSecondRun(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "checkdocs.lock")

	first := flock.New(lockPath)
	locked, err := first.TryLock()
	if err != nil {
		t.Fatalf("first TryLock failed: %v", err)
	}
	if !locked {
		t.Fatal("first TryLock did not acquire the lock")
	}
	defer first.Unlock()

	second := flock.New(lockPath)
	locked, err = second.TryLock()
	if err != nil {
		t.Fatalf("second TryLock failed: %v", err)
	}
	if locked {
		second.Unlock()
		t.Error("second TryLock acquired the lock while the first held it")
	}
}
