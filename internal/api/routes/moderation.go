package routes

import (
	"github.com/go-chi/chi/v5"

	"Wire/internal/api/handlers/moderation"
	"Wire/internal/api/middleware"
)

// RegisterModerationRoutes mounts the admin surface behind the auth
// and admin gates.
func RegisterModerationRoutes(r chi.Router, h *moderation.Handler, authMW *middleware.Auth, admins middleware.AdminChecker) {
	r.Route("/api/moderation", func(r chi.Router) {
		r.Use(authMW.RequireAuth)
		r.Use(middleware.RequireAdmin(admins))

		r.Post("/users/{handle}/ban", h.HandleBan)
		r.Post("/users/{handle}/unban", h.HandleUnban)
		r.Post("/posts/{id}/takedown", h.HandleTakedown)
	})
}
