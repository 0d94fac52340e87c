package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"library-indexer/internal/logging"
	"library-indexer/internal/syncindex"
)

// TriggerSync starts a reconciliation run in the background.
func (h *Handlers) TriggerSync(w http.ResponseWriter, _ *http.Request) {
	if h.reconciler.IsRunning() {
		writeJSONStatus(w, "sync already running", http.StatusConflict)
		return
	}
	h.reconciler.TriggerSync()
	writeJSONStatus(w, "sync started", http.StatusAccepted)
}

// RunCleanup runs a cleanup pass synchronously and returns its report.
// With ?check_hash=true every surviving file is re-read and verified.
func (h *Handlers) RunCleanup(w http.ResponseWriter, r *http.Request) {
	checkHash := queryBool(r, "check_hash", false)

	report, err := h.reconciler.Cleanup(r.Context(), checkHash)
	if err != nil {
		logging.Error("Cleanup failed: %v", err)
		writeJSONError(w, "cleanup failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, report)
}

// GetSyncReport returns the outcome of the last reconciliation run and
// the progress of any run in flight.
func (h *Handlers) GetSyncReport(w http.ResponseWriter, _ *http.Request) {
	response := map[string]interface{}{
		"running":    h.reconciler.IsRunning(),
		"lastReport": h.reconciler.LastReport(),
	}
	if last := h.reconciler.LastRunTime(); !last.IsZero() {
		response["lastRun"] = last
	}
	if h.reconciler.IsRunning() {
		response["progress"] = h.reconciler.GetProgress()
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// FindDocumentsByTitle looks up documents by exact title,
// case-insensitively. The same title may match in several directories.
func (h *Handlers) FindDocumentsByTitle(w http.ResponseWriter, r *http.Request) {
	title := mux.Vars(r)["title"]
	if title == "" {
		writeJSONError(w, "title is required", http.StatusBadRequest)
		return
	}

	docs, err := h.sync.FindByTitle(r.Context(), title)
	if err != nil {
		logging.Error("FindByTitle %q failed: %v", title, err)
		writeJSONError(w, "lookup failed", http.StatusInternalServerError)
		return
	}

	h.writeDocuments(w, docs)
}

// FindDocumentsByHash looks up documents by content digest.
func (h *Handlers) FindDocumentsByHash(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]
	if hash == "" {
		writeJSONError(w, "hash is required", http.StatusBadRequest)
		return
	}

	docs, err := h.sync.FindByHash(r.Context(), hash)
	if err != nil {
		logging.Error("FindByHash %q failed: %v", hash, err)
		writeJSONError(w, "lookup failed", http.StatusInternalServerError)
		return
	}

	h.writeDocuments(w, docs)
}

// documentView augments a stored document with its resolved filesystem
// path.
type documentView struct {
	syncindex.Document
	Path string `json:"path"`
}

func (h *Handlers) writeDocuments(w http.ResponseWriter, docs []syncindex.Document) {
	views := make([]documentView, 0, len(docs))
	for _, doc := range docs {
		views = append(views, documentView{Document: doc, Path: h.sync.DocPath(doc)})
	}

	w.Header().Set("Content-Type", "application/json")
	if len(views) == 0 {
		w.WriteHeader(http.StatusNotFound)
	}
	writeJSON(w, map[string]interface{}{
		"documents": views,
		"count":     len(views),
	})
}
