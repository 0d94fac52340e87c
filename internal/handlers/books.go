package handlers

import (
	"context"
	"net/http"

	"library-indexer/internal/logging"
	"library-indexer/internal/summary"
)

// maxListLimit caps a single page of book listings.
const maxListLimit = 1000

// ListBooks returns books from the summary snapshot, optionally
// filtered by type and directory and paged with limit/offset.
func (h *Handlers) ListBooks(w http.ResponseWriter, r *http.Request) {
	opts := summary.ListOptions{
		FilterType: r.URL.Query().Get("type"),
		FilterDir:  r.URL.Query().Get("dir"),
		Limit:      queryInt(r, "limit", 0),
		Offset:     queryInt(r, "offset", 0),
	}
	if opts.Limit > maxListLimit {
		opts.Limit = maxListLimit
	}

	books, err := h.summary.List(r.Context(), opts)
	if err != nil {
		logging.Error("Failed to list books: %v", err)
		writeJSONError(w, "failed to list books", http.StatusInternalServerError)
		return
	}
	if books == nil {
		books = []summary.Book{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"books": books,
		"count": len(books),
	})
}

// GetSummary returns the per-directory breakdown of the snapshot.
func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.summary.Summarize(r.Context())
	if err != nil {
		logging.Error("Failed to summarize: %v", err)
		writeJSONError(w, "failed to summarize", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s)
}

// TriggerRescan rebuilds the summary snapshot in the background.
func (h *Handlers) TriggerRescan(w http.ResponseWriter, _ *http.Request) {
	// The request context dies with the response; the rebuild must not.
	go func() {
		if _, err := h.summary.Rebuild(context.Background()); err != nil {
			logging.Error("Rescan failed: %v", err)
		}
	}()
	writeJSONStatus(w, "rescan started", http.StatusAccepted)
}
