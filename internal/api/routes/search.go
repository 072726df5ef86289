package routes

import (
	"github.com/go-chi/chi/v5"

	"Wire/internal/api/handlers/search"
	"Wire/internal/api/middleware"
)

// RegisterSearchRoutes mounts the search endpoint.
func RegisterSearchRoutes(r chi.Router, h *search.Handler, authMW *middleware.Auth) {
	r.With(authMW.OptionalAuth).Get("/api/search", h.HandleSearch)
}
