package routes

import (
	"time"

	"github.com/go-chi/chi/v5"

	"Wire/internal/api/handlers/user"
	"Wire/internal/api/middleware"
	authCore "Wire/internal/core/auth"
)

// RegisterUserRoutes mounts the /api/users surface. The static /me
// paths are registered alongside the {handle} wildcard; chi prefers
// the literal match.
func RegisterUserRoutes(r chi.Router, h *user.Handler, authMW *middleware.Auth, rl *middleware.RateLimit) {
	following := rl.LimitUser(authCore.BucketFollowUser, 100, time.Hour)

	r.With(authMW.RequireAuth).Put("/api/users/me", h.HandleUpdateProfile)
	r.With(authMW.RequireAuth).Get("/api/users/me/settings", h.HandleGetSettings)
	r.With(authMW.RequireAuth).Put("/api/users/me/settings", h.HandleUpdateSettings)
	r.With(authMW.RequireAuth).Get("/api/users/me/blocked", h.HandleBlocked)

	r.With(authMW.OptionalAuth).Get("/api/users/{handle}", h.HandleGetProfile)

	r.With(authMW.RequireAuth, following).Post("/api/users/{handle}/follow", h.HandleFollow)
	r.With(authMW.RequireAuth).Delete("/api/users/{handle}/follow", h.HandleUnfollow)
	r.With(authMW.RequireAuth).Post("/api/users/{handle}/block", h.HandleBlock)
	r.With(authMW.RequireAuth).Delete("/api/users/{handle}/block", h.HandleUnblock)

	r.With(authMW.OptionalAuth).Get("/api/users/{handle}/followers", h.HandleFollowers)
	r.With(authMW.OptionalAuth).Get("/api/users/{handle}/following", h.HandleFollowing)
	r.With(authMW.OptionalAuth).Get("/api/users/{handle}/posts", h.HandlePosts)
	r.With(authMW.OptionalAuth).Get("/api/users/{handle}/replies", h.HandleReplies)
	r.With(authMW.OptionalAuth).Get("/api/users/{handle}/media", h.HandleMedia)
	r.With(authMW.OptionalAuth).Get("/api/users/{handle}/likes", h.HandleLikes)
}
