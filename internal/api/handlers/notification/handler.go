// Package notification exposes the inbox endpoints.
package notification

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"Wire/internal/api/handlers"
	"Wire/internal/api/middleware"
	"Wire/internal/core/notifications"
)

// Handler serves the notification endpoints.
type Handler struct {
	notifications notifications.Service
	log           zerolog.Logger
}

func NewHandler(service notifications.Service, log zerolog.Logger) *Handler {
	return &Handler{
		notifications: service,
		log:           log.With().Str("component", "notification-api").Logger(),
	}
}

// HandleList pages through the authenticated user's inbox, newest
// first.
// GET /api/notifications
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, cursor := handlers.PageParams(r)
	page, err := h.notifications.List(r.Context(), middleware.UserID(r), limit, cursor)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, page)
}

// HandleUnreadCount returns the unread badge count.
// GET /api/notifications/unread-count
func (h *Handler) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notifications.UnreadCount(r.Context(), middleware.UserID(r))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, map[string]int{"count": count})
}

// HandleMarkRead marks one notification read.
// PUT /api/notifications/{id}/read
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.MarkRead(r.Context(), middleware.UserID(r), chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, map[string]bool{"read": true})
}

// HandleMarkAllRead marks the whole inbox read.
// PUT /api/notifications/read-all
func (h *Handler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.MarkAllRead(r.Context(), middleware.UserID(r)); err != nil {
		h.handleServiceError(w, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, map[string]bool{"read": true})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notifications.ErrNotificationNotFound):
		handlers.WriteError(w, http.StatusNotFound, "Notification not found")
	case errors.Is(err, notifications.ErrInvalidCursor):
		handlers.WriteError(w, http.StatusBadRequest, "The provided cursor is invalid")
	default:
		h.log.Error().Err(err).Msg("unexpected notification error")
		handlers.WriteError(w, http.StatusInternalServerError, "An internal error occurred")
	}
}
