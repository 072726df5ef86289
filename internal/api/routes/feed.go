package routes

import (
	"github.com/go-chi/chi/v5"

	"Wire/internal/api/handlers/feed"
	"Wire/internal/api/middleware"
)

// RegisterFeedRoutes mounts the timeline endpoints. Both require a
// signed-in viewer; there is no anonymous home feed.
func RegisterFeedRoutes(r chi.Router, h *feed.Handler, authMW *middleware.Auth) {
	r.With(authMW.RequireAuth).Get("/api/feed/home", h.HandleHome)
	r.With(authMW.RequireAuth).Get("/api/feed/chronological", h.HandleChronological)
}
