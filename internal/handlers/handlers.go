package handlers

import (
	"library-indexer/internal/reconciler"
	"library-indexer/internal/startup"
	"library-indexer/internal/summary"
	"library-indexer/internal/syncindex"
)

type Handlers struct {
	summary    *summary.Index
	sync       *syncindex.Index
	reconciler *reconciler.Reconciler
	libraryDir string
}

func New(sum *summary.Index, syn *syncindex.Index, rec *reconciler.Reconciler, config *startup.Config) *Handlers {
	return &Handlers{
		summary:    sum,
		sync:       syn,
		reconciler: rec,
		libraryDir: config.LibraryDir,
	}
}
