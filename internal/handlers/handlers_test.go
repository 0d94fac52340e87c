package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"library-indexer/internal/hashing"
	"library-indexer/internal/reconciler"
	"library-indexer/internal/scanner"
	"library-indexer/internal/startup"
	"library-indexer/internal/summary"
	"library-indexer/internal/syncindex"
)

type testStack struct {
	router     *mux.Router
	reconciler *reconciler.Reconciler
	libDir     string
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	libDir := t.TempDir()
	for rel, content := range map[string]string{
		filepath.Join("Documents", "report.pdf"):             "report body",
		filepath.Join("Documents", "Archive", "data.tar.gz"): "archived data",
		filepath.Join("Books", "guide.epub"):                 "guide content",
	} {
		path := filepath.Join(libDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}

	sc := scanner.New(libDir, []string{"Documents", "Books"})
	dbDir := t.TempDir()
	ctx := context.Background()

	sum, err := summary.New(ctx, filepath.Join(dbDir, "book-list.sqlite"), sc)
	if err != nil {
		t.Fatalf("failed to open summary index: %v", err)
	}
	t.Cleanup(func() { _ = sum.Close() })

	hasher, err := hashing.NewService(64)
	if err != nil {
		t.Fatalf("failed to create hashing service: %v", err)
	}
	syn, err := syncindex.New(ctx, filepath.Join(dbDir, "documents.sqlite"), libDir, hasher)
	if err != nil {
		t.Fatalf("failed to open sync index: %v", err)
	}
	t.Cleanup(func() { _ = syn.Close() })

	rec := reconciler.New(sc, sum, syn, time.Hour, 2)
	h := New(sum, syn, rec, &startup.Config{LibraryDir: libDir})

	router := mux.NewRouter()
	h.RegisterRoutes(router)

	return &testStack{router: router, reconciler: rec, libDir: libDir}
}

func (s *testStack) sync(t *testing.T) {
	t.Helper()
	if err := s.reconciler.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
}

func (s *testStack) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (s *testStack) post(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestListBooks(t *testing.T) {
	s := newTestStack(t)

	rec := s.get(t, "/api/books")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Books []summary.Book `json:"books"`
		Count int            `json:"count"`
	}
	decode(t, rec, &resp)
	if resp.Count != 3 {
		t.Errorf("count = %d, want 3", resp.Count)
	}
	// Title-ascending order.
	if resp.Books[0].Title != "data" || resp.Books[2].Title != "report" {
		t.Errorf("unexpected order: %v", resp.Books)
	}
}

func TestListBooksFiltered(t *testing.T) {
	s := newTestStack(t)

	rec := s.get(t, "/api/books?type=pdf")
	var resp struct {
		Books []summary.Book `json:"books"`
		Count int            `json:"count"`
	}
	decode(t, rec, &resp)
	if resp.Count != 1 || resp.Books[0].Title != "report" {
		t.Errorf("type filter returned %+v", resp)
	}
}

func TestGetSummary(t *testing.T) {
	s := newTestStack(t)

	rec := s.get(t, "/api/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp summary.Summary
	decode(t, rec, &resp)
	if resp.Total != 3 {
		t.Errorf("total = %d, want 3", resp.Total)
	}
}

func TestTriggerRescan(t *testing.T) {
	s := newTestStack(t)

	rec := s.post(t, "/api/rescan")
	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
}

func TestTriggerSync(t *testing.T) {
	s := newTestStack(t)

	rec := s.post(t, "/api/sync")
	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
}

func TestSyncReport(t *testing.T) {
	s := newTestStack(t)
	s.sync(t)

	rec := s.get(t, "/api/sync/report")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Running    bool             `json:"running"`
		LastReport syncindex.Report `json:"lastReport"`
	}
	decode(t, rec, &resp)
	if resp.Running {
		t.Error("running = true after completed sync")
	}
	if resp.LastReport.Inserted != 3 {
		t.Errorf("lastReport.Inserted = %d, want 3", resp.LastReport.Inserted)
	}
}

func TestRunCleanup(t *testing.T) {
	s := newTestStack(t)
	s.sync(t)

	if err := os.Remove(filepath.Join(s.libDir, "Books", "guide.epub")); err != nil {
		t.Fatalf("failed to remove file: %v", err)
	}

	rec := s.post(t, "/api/sync/cleanup")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var report syncindex.Report
	decode(t, rec, &report)
	if report.Removed != 1 {
		t.Errorf("removed = %d, want 1 (%s)", report.Removed, &report)
	}
}

func TestFindDocumentsByTitle(t *testing.T) {
	s := newTestStack(t)
	s.sync(t)

	rec := s.get(t, "/api/documents/by-title/"+url.PathEscape("report"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Documents []documentView `json:"documents"`
		Count     int            `json:"count"`
	}
	decode(t, rec, &resp)
	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	doc := resp.Documents[0]
	if doc.Type != "pdf" || doc.Dir != "Documents" {
		t.Errorf("unexpected document: %+v", doc)
	}
	wantPath := filepath.Join(s.libDir, "Documents", "report.pdf")
	if doc.Path != wantPath {
		t.Errorf("path = %q, want %q", doc.Path, wantPath)
	}
}

func TestFindDocumentsByTitleNotFound(t *testing.T) {
	s := newTestStack(t)
	s.sync(t)

	rec := s.get(t, "/api/documents/by-title/no-such-title")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestFindDocumentsByHash(t *testing.T) {
	s := newTestStack(t)
	s.sync(t)

	// md5("report body")
	rec := s.get(t, "/api/documents/by-hash/c9bf9a1b32aac38ee1dac883d7025297")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Count int `json:"count"`
	}
	decode(t, rec, &resp)
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}
}

func TestGetStats(t *testing.T) {
	s := newTestStack(t)
	s.sync(t)

	rec := s.get(t, "/api/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp StatsResponse
	decode(t, rec, &resp)
	if resp.TotalBooks != 3 {
		t.Errorf("totalBooks = %d, want 3", resp.TotalBooks)
	}
	if resp.TrackedDocs != 3 {
		t.Errorf("trackedDocs = %d, want 3", resp.TrackedDocs)
	}
	if resp.TotalSizeHuman == "" {
		t.Error("totalSizeHuman is empty")
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestStack(t)

	if rec := s.get(t, "/healthz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("healthz before sync = %d, want 503", rec.Code)
	}
	if rec := s.get(t, "/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz before sync = %d, want 503", rec.Code)
	}
	if rec := s.get(t, "/livez"); rec.Code != http.StatusOK {
		t.Errorf("livez = %d, want 200", rec.Code)
	}

	s.sync(t)

	if rec := s.get(t, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz after sync = %d, want 200", rec.Code)
	}
	if rec := s.get(t, "/readyz"); rec.Code != http.StatusOK {
		t.Errorf("readyz after sync = %d, want 200", rec.Code)
	}
}

func TestGetVersion(t *testing.T) {
	s := newTestStack(t)

	rec := s.get(t, "/api/version")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var info startup.BuildInfo
	decode(t, rec, &info)
	if info.Version == "" {
		t.Error("version is empty")
	}
}
