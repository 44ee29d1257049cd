package routes

import (
	"github.com/go-chi/chi/v5"

	"Headshot/internal/web"
)

// RegisterWebRoutes registers the landing page.
func RegisterWebRoutes(r chi.Router, handlers *web.Handlers) {
	r.Get("/", handlers.IndexHandler)
}
