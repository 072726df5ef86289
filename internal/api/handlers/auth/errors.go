package auth

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"Wire/internal/api/handlers"
	"Wire/internal/core/auth"
	"Wire/internal/core/users"
)

// handleServiceError maps auth service errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, log zerolog.Logger, err error) {
	switch {
	case auth.IsValidation(err):
		handlers.WriteError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, auth.ErrHandleTaken):
		handlers.WriteError(w, http.StatusConflict, "Handle already taken")

	case errors.Is(err, auth.ErrEmailTaken):
		handlers.WriteError(w, http.StatusConflict, "Email already registered")

	case errors.Is(err, auth.ErrInvalidCredentials):
		handlers.WriteError(w, http.StatusUnauthorized, "Invalid credentials")

	case errors.Is(err, auth.ErrAccountLocked):
		handlers.WriteError(w, http.StatusTooManyRequests, "Too many failed attempts. Try again later.")

	case errors.Is(err, auth.ErrBanned):
		handlers.WriteError(w, http.StatusForbidden, "Account suspended")

	case errors.Is(err, auth.ErrInvalidToken):
		handlers.WriteError(w, http.StatusUnauthorized, "Invalid or expired token")

	case errors.Is(err, auth.ErrResetInvalid):
		handlers.WriteError(w, http.StatusBadRequest, "Invalid or expired reset token")

	case errors.Is(err, auth.ErrBanCheckUnavailable):
		handlers.WriteError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")

	case errors.Is(err, users.ErrUserNotFound):
		handlers.WriteError(w, http.StatusNotFound, "User not found")

	default:
		log.Error().Err(err).Msg("unexpected auth error")
		handlers.WriteError(w, http.StatusInternalServerError, "An internal error occurred")
	}
}
