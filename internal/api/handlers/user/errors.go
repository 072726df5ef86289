package user

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"Wire/internal/api/handlers"
	"Wire/internal/core/posts"
	"Wire/internal/core/users"
)

// handleServiceError maps user-surface service errors to HTTP
// responses.
func handleServiceError(w http.ResponseWriter, log zerolog.Logger, err error) {
	switch {
	case users.IsValidation(err) || posts.IsValidation(err):
		handlers.WriteError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, users.ErrUserNotFound):
		handlers.WriteError(w, http.StatusNotFound, "User not found")

	case errors.Is(err, users.ErrSelfUnfollow):
		handlers.WriteError(w, http.StatusBadRequest, "Cannot unfollow yourself")

	case errors.Is(err, users.ErrSelfBlock):
		handlers.WriteError(w, http.StatusBadRequest, "Cannot block yourself")

	case errors.Is(err, users.ErrBlocked):
		handlers.WriteError(w, http.StatusForbidden, "Blocked relationship")

	case errors.Is(err, users.ErrUserBanned):
		handlers.WriteError(w, http.StatusForbidden, "Account suspended")

	case errors.Is(err, posts.ErrPostNotFound):
		handlers.WriteError(w, http.StatusNotFound, "Post not found")

	default:
		log.Error().Err(err).Msg("unexpected user-surface error")
		handlers.WriteError(w, http.StatusInternalServerError, "An internal error occurred")
	}
}
