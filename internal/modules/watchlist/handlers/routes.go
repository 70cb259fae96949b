package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all watchlist routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/watchlist", func(r chi.Router) {
		// Composition
		r.Get("/", h.HandleGetWatchlist)
		r.Post("/", h.HandleAddStock)
		r.Delete("/{symbol}", h.HandleRemoveStock)
		r.Post("/reorder", h.HandleReorder)
		r.Post("/sort", h.HandleSort)
		r.Put("/active", h.HandleSelect)

		// Derived data
		r.Get("/stats", h.HandleGetStats)
		r.Post("/history", h.HandleLoadHistory)
		r.Post("/refresh", h.HandleRefresh)
		r.Get("/search", h.HandleSearch)
		r.Post("/analysis", h.HandleAnalyze)
	})
}
