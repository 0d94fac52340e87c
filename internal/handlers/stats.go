package handlers

import (
	"net/http"

	"library-indexer/internal/format"
	"library-indexer/internal/logging"
)

// StatsResponse combines snapshot and sync store statistics.
type StatsResponse struct {
	TotalBooks     int            `json:"totalBooks"`
	TotalSize      int64          `json:"totalSize"`
	TotalSizeHuman string         `json:"totalSizeHuman"`
	CountByType    map[string]int `json:"countByType"`
	TrackedDocs    int            `json:"trackedDocs"`
	LibraryDir     string         `json:"libraryDir"`
}

// GetStats reports library-wide statistics from both stores.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.summary.Stats(r.Context())
	if err != nil {
		logging.Error("Failed to read summary stats: %v", err)
		writeJSONError(w, "failed to read stats", http.StatusInternalServerError)
		return
	}

	tracked, err := h.sync.Count(r.Context())
	if err != nil {
		logging.Error("Failed to count documents: %v", err)
		writeJSONError(w, "failed to read stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, StatsResponse{
		TotalBooks:     st.TotalBooks,
		TotalSize:      st.TotalSize,
		TotalSizeHuman: format.HumanBytes(st.TotalSize, true, 1),
		CountByType:    st.CountByType,
		TrackedDocs:    tracked,
		LibraryDir:     h.libraryDir,
	})
}
