package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(ScannerFilesSeen)
	ScannerFilesSeen.Inc()
	after := testutil.ToFloat64(ScannerFilesSeen)
	if after != before+1 {
		t.Errorf("ScannerFilesSeen = %v, want %v", after, before+1)
	}
}

func TestReconcilerRunsLabels(t *testing.T) {
	for _, op := range []string{"rebuild", "checknew", "cleanup"} {
		ReconcilerRunsTotal.WithLabelValues(op).Inc()
		if got := testutil.ToFloat64(ReconcilerRunsTotal.WithLabelValues(op)); got < 1 {
			t.Errorf("ReconcilerRunsTotal[%s] = %v, want >= 1", op, got)
		}
	}
}

func TestUpdateDBSizeMetrics(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	if err := os.WriteFile(dbPath, []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("failed to write test db file: %v", err)
	}

	UpdateDBSizeMetrics("summary", dbPath)

	if got := testutil.ToFloat64(DBSizeBytes.WithLabelValues("summary", "main")); got != 10 {
		t.Errorf("main db size = %v, want 10", got)
	}
	// Missing WAL and SHM files report zero rather than an error.
	if got := testutil.ToFloat64(DBSizeBytes.WithLabelValues("summary", "wal")); got != 0 {
		t.Errorf("wal db size = %v, want 0", got)
	}
}
