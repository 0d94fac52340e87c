package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcherTriggersOnNewFile(t *testing.T) {
	libDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(libDir, "Documents"), 0o755); err != nil {
		t.Fatalf("failed to create root: %v", err)
	}

	triggered := make(chan struct{}, 1)
	w, err := New(libDir, []string{"Documents"}, 50*time.Millisecond, func() {
		select {
		case triggered <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(libDir, "Documents", "new.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	select {
	case <-triggered:
	case <-time.After(5 * time.Second):
		t.Fatal("rescan not triggered after file creation")
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	libDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(libDir, "Documents"), 0o755); err != nil {
		t.Fatalf("failed to create root: %v", err)
	}

	var triggers atomic.Int64
	done := make(chan struct{}, 16)
	w, err := New(libDir, []string{"Documents"}, 200*time.Millisecond, func() {
		triggers.Add(1)
		done <- struct{}{}
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	// A burst of writes inside one debounce window.
	for i := 0; i < 5; i++ {
		name := filepath.Join(libDir, "Documents", "burst.txt")
		if err := os.WriteFile(name, []byte{byte(i)}, 0o644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("no trigger after burst")
	}

	// Allow a moment for any spurious extra triggers to land.
	time.Sleep(300 * time.Millisecond)
	if got := triggers.Load(); got != 1 {
		t.Errorf("burst caused %d triggers, want 1", got)
	}
}

func TestWatcherMissingRootIsNotFatal(t *testing.T) {
	libDir := t.TempDir()
	w, err := New(libDir, []string{"DoesNotExist"}, 50*time.Millisecond, func() {})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed on missing root: %v", err)
	}
	w.Stop()
}
