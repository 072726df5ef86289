package user

import (
	"context"
	"net/http"

	"Wire/internal/api/handlers"
	"Wire/internal/api/middleware"
	"Wire/internal/core/posts"
)

// HandlePosts pages through a user's authored posts, newest first.
// GET /api/users/{handle}/posts
func (h *Handler) HandlePosts(w http.ResponseWriter, r *http.Request) {
	h.authored(w, r, h.posts.Authored)
}

// HandleReplies pages through a user's replies only.
// GET /api/users/{handle}/replies
func (h *Handler) HandleReplies(w http.ResponseWriter, r *http.Request) {
	h.authored(w, r, h.posts.AuthoredReplies)
}

// HandleMedia pages through a user's posts that carry media.
// GET /api/users/{handle}/media
func (h *Handler) HandleMedia(w http.ResponseWriter, r *http.Request) {
	h.authored(w, r, h.posts.AuthoredMedia)
}

// authored is the shared shape of the three authored-index listings.
func (h *Handler) authored(w http.ResponseWriter, r *http.Request,
	list func(ctx context.Context, userID string, limit int, cursor string) (*posts.Page, error)) {
	id, err := h.resolve(r)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}

	limit, cursor := handlers.PageParams(r)
	page, err := list(r.Context(), id, limit, cursor)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, page)
}

// HandleLikes lists a user's recently liked posts, newest like first.
// GET /api/users/{handle}/likes
func (h *Handler) HandleLikes(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolve(r)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}

	limit, _ := handlers.PageParams(r)
	ids, err := h.users.LikedPosts(r.Context(), id, limit)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}

	views, err := h.posts.Liked(r.Context(), ids, middleware.UserID(r))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, posts.Page{Posts: views, HasMore: false})
}
