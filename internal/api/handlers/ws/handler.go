// Package ws exposes the websocket upgrade endpoint. Browsers cannot
// attach an Authorization header to a websocket dial, so the token
// rides the query string; it is verified, and the ban gate consulted,
// before the connection is handed to the realtime gateway.
package ws

import (
	"net/http"

	"github.com/rs/zerolog"

	"Wire/internal/api/handlers"
	"Wire/internal/api/middleware"
	"Wire/internal/realtime"
)

// Handler serves the websocket endpoint.
type Handler struct {
	verifier middleware.TokenVerifier
	bans     middleware.BanChecker
	gateway  *realtime.Gateway
	log      zerolog.Logger
}

func NewHandler(verifier middleware.TokenVerifier, bans middleware.BanChecker, gateway *realtime.Gateway, log zerolog.Logger) *Handler {
	return &Handler{
		verifier: verifier,
		bans:     bans,
		gateway:  gateway,
		log:      log.With().Str("component", "ws-api").Logger(),
	}
}

// HandleConnect validates the query token and upgrades the connection.
// GET /api/ws?token=…
func (h *Handler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		handlers.WriteError(w, http.StatusUnauthorized, "token query parameter is required")
		return
	}

	claims, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		handlers.WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	banned, err := h.bans.Banned(r.Context(), claims.Subject)
	if err != nil {
		h.log.Error().Err(err).Str("userId", claims.Subject).Msg("ban check unavailable")
		handlers.WriteError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
		return
	}
	if banned {
		handlers.WriteError(w, http.StatusForbidden, "Account suspended")
		return
	}

	h.gateway.Serve(w, r, claims.Subject)
}
