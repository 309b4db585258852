package ui

import (
	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/pbilens/internal/ui/resources"
)

// SetupRoutes registers the static assets, pages, upload endpoint, JSON
// API and update stream.
func SetupRoutes(router chi.Router, h *Handlers) {
	router.Handle("/static/*", resources.Handler())

	router.Get("/", h.HomePage)
	router.Get("/table-view", h.TableView)
	router.Get("/lineage-view", h.LineageView)
	router.Get("/dax-expressions", h.DAXExpressions)
	router.Get("/source-explorer", h.SourceExplorer)
	router.Get("/unused-measures", h.UnusedMeasures)

	router.Post("/upload", h.Upload)
	router.Get("/updates", h.Updates)

	router.Route("/api", func(r chi.Router) {
		r.Get("/documents", h.APIDocuments)
		r.Get("/visuals", h.APIVisuals)
		r.Get("/lineage", h.APILineage)
		r.Get("/dax", h.APIDAX)
		r.Get("/sources", h.APISources)
		r.Get("/unused", h.APIUnused)
	})
}
