package routes

import (
	"github.com/go-chi/chi/v5"

	"Wire/internal/api/handlers/media"
	"Wire/internal/api/middleware"
)

// RegisterMediaRoutes mounts upload behind auth and blob serving in
// the open.
func RegisterMediaRoutes(r chi.Router, h *media.Handler, authMW *middleware.Auth) {
	r.With(authMW.RequireAuth).Post("/api/media/upload", h.HandleUpload)
	r.With(authMW.RequireAuth).Put("/api/media/users/me/avatar", h.HandleSetAvatar)
	r.With(authMW.RequireAuth).Put("/api/media/users/me/banner", h.HandleSetBanner)

	r.Get("/media/{key}", h.HandleServe)
}
