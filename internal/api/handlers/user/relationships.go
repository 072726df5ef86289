package user

import (
	"net/http"

	"Wire/internal/api/handlers"
	"Wire/internal/api/middleware"
)

// HandleFollow adds a follow edge from the authenticated user to the
// handle in the path.
// POST /api/users/{handle}/follow
func (h *Handler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	targetID, err := h.resolve(r)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}

	if err := h.users.Follow(r.Context(), middleware.UserID(r), targetID); err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, map[string]bool{"following": true})
}

// HandleUnfollow removes the follow edge.
// DELETE /api/users/{handle}/follow
func (h *Handler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	targetID, err := h.resolve(r)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}

	if err := h.users.Unfollow(r.Context(), middleware.UserID(r), targetID); err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, map[string]bool{"following": false})
}

// HandleBlock records a block and severs every follow edge between the
// pair.
// POST /api/users/{handle}/block
func (h *Handler) HandleBlock(w http.ResponseWriter, r *http.Request) {
	targetID, err := h.resolve(r)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}

	if err := h.users.Block(r.Context(), middleware.UserID(r), targetID); err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, map[string]bool{"blocked": true})
}

// HandleUnblock lifts a block.
// DELETE /api/users/{handle}/block
func (h *Handler) HandleUnblock(w http.ResponseWriter, r *http.Request) {
	targetID, err := h.resolve(r)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}

	if err := h.users.Unblock(r.Context(), middleware.UserID(r), targetID); err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, map[string]bool{"blocked": false})
}

// HandleFollowers lists a user's followers as profile cards.
// GET /api/users/{handle}/followers
func (h *Handler) HandleFollowers(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolve(r)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}

	limit, cursor := handlers.PageParams(r)
	page, err := h.users.Followers(r.Context(), id, limit, cursor)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, page)
}

// HandleFollowing lists who a user follows.
// GET /api/users/{handle}/following
func (h *Handler) HandleFollowing(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolve(r)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}

	limit, cursor := handlers.PageParams(r)
	page, err := h.users.Following(r.Context(), id, limit, cursor)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, page)
}

// HandleBlocked lists the authenticated user's blocked accounts.
// GET /api/users/me/blocked
func (h *Handler) HandleBlocked(w http.ResponseWriter, r *http.Request) {
	cards, err := h.users.BlockedUsers(r.Context(), middleware.UserID(r))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, map[string]any{"users": cards})
}
