// Package user exposes the /api/users surface: profiles, settings,
// the follow and block edges, and the per-user content listings.
package user

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"Wire/internal/api/handlers"
	"Wire/internal/api/middleware"
	"Wire/internal/core/posts"
	"Wire/internal/core/users"
)

// Handler serves the user endpoints.
type Handler struct {
	users users.Service
	posts posts.Service
	log   zerolog.Logger
}

func NewHandler(userService users.Service, postService posts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		users: userService,
		posts: postService,
		log:   log.With().Str("component", "user-api").Logger(),
	}
}

// HandleGetProfile returns a public profile. When the viewer is
// authenticated the card carries isFollowing and isBlocked.
// GET /api/users/{handle}
func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	view, err := h.users.Profile(r.Context(), chi.URLParam(r, "handle"), middleware.UserID(r))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, view)
}

// HandleUpdateProfile applies a partial profile edit to the
// authenticated user.
// PUT /api/users/me
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd users.ProfileUpdate
	if !handlers.DecodeJSON(w, r, &upd) {
		return
	}

	view, err := h.users.UpdateProfile(r.Context(), middleware.UserID(r), upd)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, view)
}

// resolve turns the handle path parameter into a user id.
func (h *Handler) resolve(r *http.Request) (string, error) {
	return h.users.ResolveHandle(r.Context(), chi.URLParam(r, "handle"))
}
