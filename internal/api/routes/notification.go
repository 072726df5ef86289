package routes

import (
	"github.com/go-chi/chi/v5"

	"Wire/internal/api/handlers/notification"
	"Wire/internal/api/middleware"
)

// RegisterNotificationRoutes mounts the inbox endpoints.
func RegisterNotificationRoutes(r chi.Router, h *notification.Handler, authMW *middleware.Auth) {
	r.With(authMW.RequireAuth).Get("/api/notifications", h.HandleList)
	r.With(authMW.RequireAuth).Get("/api/notifications/unread-count", h.HandleUnreadCount)
	r.With(authMW.RequireAuth).Put("/api/notifications/read-all", h.HandleMarkAllRead)
	r.With(authMW.RequireAuth).Put("/api/notifications/{id}/read", h.HandleMarkRead)
}
