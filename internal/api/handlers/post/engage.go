package post

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"Wire/internal/api/handlers"
	"Wire/internal/api/middleware"
)

// HandleLike adds the viewer's like. Liking twice is a no-op; the
// response carries the resulting count either way.
// POST /api/posts/{id}/like
func (h *Handler) HandleLike(w http.ResponseWriter, r *http.Request) {
	count, err := h.posts.Like(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, map[string]any{"liked": true, "likeCount": count})
}

// HandleUnlike removes the viewer's like.
// DELETE /api/posts/{id}/like
func (h *Handler) HandleUnlike(w http.ResponseWriter, r *http.Request) {
	count, err := h.posts.Unlike(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, map[string]any{"liked": false, "likeCount": count})
}

// HandleRepost creates a repost of the target post.
// POST /api/posts/{id}/repost
func (h *Handler) HandleRepost(w http.ResponseWriter, r *http.Request) {
	view, err := h.posts.Repost(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusCreated, view)
}
