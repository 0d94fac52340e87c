package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func TestVolumeResolver(t *testing.T) {
	vr := NewVolumeResolver(map[string]string{
		"library":  "/library",
		"database": "/database",
		"nested":   "/library/special",
	})

	tests := []struct {
		name string
		path string
		want string
	}{
		{"library file", "/library/Documents/report.pdf", "library"},
		{"database file", "/database/documents.sqlite", "database"},
		{"longest prefix wins", "/library/special/data.bin", "nested"},
		{"exact volume root", "/library", "library"},
		{"unmatched path", "/tmp/other", "unknown"},
		{"sibling with shared prefix", "/librarytwo/file", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vr.Resolve(tt.path); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestVolumeResolverNil(t *testing.T) {
	var vr *VolumeResolver
	if got := vr.Resolve("/library/file"); got != "unknown" {
		t.Errorf("nil resolver Resolve = %q, want %q", got, "unknown")
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"ESTALE", syscall.ESTALE, true},
		{"wrapped ESTALE", &os.PathError{Op: "stat", Path: "/x", Err: syscall.ESTALE}, true},
		{"ENOENT", syscall.ENOENT, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestStatWithRetrySuccess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	config := DefaultRetryConfig()
	config.VolumeResolver = NewVolumeResolver(map[string]string{"test": dir})

	info, err := StatWithRetry(path, config)
	if err != nil {
		t.Fatalf("StatWithRetry failed: %v", err)
	}
	if info.Size() != 7 {
		t.Errorf("Size = %d, want 7", info.Size())
	}
}

func TestStatWithRetryMissingFileNoRetry(t *testing.T) {
	config := DefaultRetryConfig()
	config.VolumeResolver = NewVolumeResolver(map[string]string{"test": t.TempDir()})

	// ENOENT is not retryable; the call should return promptly.
	start := time.Now()
	_, err := StatWithRetry(filepath.Join(t.TempDir(), "missing"), config)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > config.InitialBackoff {
		t.Errorf("non-retryable error took %v, expected no backoff sleeps", elapsed)
	}
}

func TestOpenWithRetry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	config := DefaultRetryConfig()
	config.VolumeResolver = NewVolumeResolver(map[string]string{"test": dir})

	f, err := OpenWithRetry(path, config)
	if err != nil {
		t.Fatalf("OpenWithRetry failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	if _, err := OpenWithRetry(filepath.Join(dir, "missing"), config); err == nil {
		t.Error("expected error opening missing file")
	}
}
