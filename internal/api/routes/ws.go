package routes

import (
	"github.com/go-chi/chi/v5"

	"Wire/internal/api/handlers/ws"
)

// RegisterWSRoutes mounts the websocket upgrade endpoint. The handler
// does its own token and ban checks; bearer middleware cannot see a
// websocket dial's query token.
func RegisterWSRoutes(r chi.Router, h *ws.Handler) {
	r.Get("/api/ws", h.HandleConnect)
}
