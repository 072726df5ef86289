package post

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"Wire/internal/api/handlers"
	"Wire/internal/core/posts"
	"Wire/internal/core/users"
)

// handleServiceError maps post service errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, log zerolog.Logger, err error) {
	switch {
	case posts.IsValidation(err):
		handlers.WriteError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, posts.ErrPostNotFound):
		handlers.WriteError(w, http.StatusNotFound, "Post not found")

	case errors.Is(err, posts.ErrNotAuthorized):
		handlers.WriteError(w, http.StatusForbidden, "Not authorized")

	case errors.Is(err, posts.ErrAlreadyReposted):
		handlers.WriteError(w, http.StatusConflict, "Already reposted")

	case errors.Is(err, posts.ErrSelfRepost):
		handlers.WriteError(w, http.StatusBadRequest, "Cannot repost your own post")

	case errors.Is(err, posts.ErrRepostWithContent):
		handlers.WriteError(w, http.StatusBadRequest, "A repost cannot carry content; use a quote")

	case errors.Is(err, users.ErrUserNotFound):
		handlers.WriteError(w, http.StatusNotFound, "User not found")

	default:
		log.Error().Err(err).Msg("unexpected post error")
		handlers.WriteError(w, http.StatusInternalServerError, "An internal error occurred")
	}
}
