// Package post exposes the /api/posts surface: create, read, thread,
// delete and the like/repost edges.
package post

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"Wire/internal/api/handlers"
	"Wire/internal/api/middleware"
	"Wire/internal/core/posts"
)

// Handler serves the post endpoints.
type Handler struct {
	posts posts.Service
	log   zerolog.Logger
}

func NewHandler(postService posts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		posts: postService,
		log:   log.With().Str("component", "post-api").Logger(),
	}
}

// HandleCreate creates a post, reply, quote or repost. The author is
// always the authenticated user; the body cannot name someone else.
// POST /api/posts
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req posts.CreateRequest
	if !handlers.DecodeJSON(w, r, &req) {
		return
	}

	view, err := h.posts.Create(r.Context(), middleware.UserID(r), req)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusCreated, view)
}

// HandleGet returns one post with referenced posts joined one level
// deep.
// GET /api/posts/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.posts.Get(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, view)
}

// HandleThread returns a post with its ancestor chain and direct
// replies.
// GET /api/posts/{id}/thread
func (h *Handler) HandleThread(w http.ResponseWriter, r *http.Request) {
	thread, err := h.posts.Thread(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, thread)
}

// HandleDelete soft-deletes an authored post.
// DELETE /api/posts/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.Delete(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r)); err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, map[string]bool{"deleted": true})
}
