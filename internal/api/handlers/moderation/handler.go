// Package moderation exposes the admin-only moderation endpoints. The
// routes are mounted behind the admin middleware; handlers assume the
// caller is vetted.
package moderation

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"Wire/internal/api/handlers"
	"Wire/internal/api/middleware"
	"Wire/internal/core/posts"
	"Wire/internal/core/users"
)

// Handler serves the moderation endpoints.
type Handler struct {
	users users.Service
	posts posts.Service
	log   zerolog.Logger
}

func NewHandler(userService users.Service, postService posts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		users: userService,
		posts: postService,
		log:   log.With().Str("component", "moderation-api").Logger(),
	}
}

type reasonBody struct {
	Reason string `json:"reason"`
}

// HandleBan suspends an account. Banned users fail the ban gate on
// their next request; their tokens become useless without revocation.
// POST /api/moderation/users/{handle}/ban
func (h *Handler) HandleBan(w http.ResponseWriter, r *http.Request) {
	var body reasonBody
	if !handlers.DecodeJSON(w, r, &body) {
		return
	}

	id, err := h.users.ResolveHandle(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if id == middleware.UserID(r) {
		handlers.WriteError(w, http.StatusBadRequest, "Cannot ban yourself")
		return
	}

	if err := h.users.Ban(r.Context(), id, body.Reason); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.log.Info().Str("userId", id).Str("admin", middleware.UserID(r)).Msg("user banned")
	handlers.WriteData(w, http.StatusOK, map[string]bool{"banned": true})
}

// HandleUnban lifts a suspension.
// POST /api/moderation/users/{handle}/unban
func (h *Handler) HandleUnban(w http.ResponseWriter, r *http.Request) {
	id, err := h.users.ResolveHandle(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if err := h.users.Unban(r.Context(), id); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.log.Info().Str("userId", id).Str("admin", middleware.UserID(r)).Msg("user unbanned")
	handlers.WriteData(w, http.StatusOK, map[string]bool{"banned": false})
}

// HandleTakedown tombstones a post without touching the author's post
// count.
// POST /api/moderation/posts/{id}/takedown
func (h *Handler) HandleTakedown(w http.ResponseWriter, r *http.Request) {
	var body reasonBody
	if !handlers.DecodeJSON(w, r, &body) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.posts.Takedown(r.Context(), id, middleware.UserID(r), body.Reason); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.log.Info().Str("postId", id).Str("admin", middleware.UserID(r)).Msg("post taken down")
	handlers.WriteData(w, http.StatusOK, map[string]bool{"takenDown": true})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, users.ErrUserNotFound):
		handlers.WriteError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, posts.ErrPostNotFound):
		handlers.WriteError(w, http.StatusNotFound, "Post not found")
	default:
		h.log.Error().Err(err).Msg("unexpected moderation error")
		handlers.WriteError(w, http.StatusInternalServerError, "An internal error occurred")
	}
}
