package ui

import "net/http"

// RegisterRoutes registers all UI routes to the provided mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ui", h.Dashboard)
	mux.HandleFunc("GET /ui/{$}", h.Dashboard)

	// fragment reloaded by the page on window.updated
	mux.HandleFunc("GET /ui/sections/window", h.WindowSection)
}
