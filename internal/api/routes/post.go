package routes

import (
	"time"

	"github.com/go-chi/chi/v5"

	"Wire/internal/api/handlers/post"
	"Wire/internal/api/middleware"
	authCore "Wire/internal/core/auth"
)

// RegisterPostRoutes mounts the /api/posts surface. Creating actions
// carry per-user buckets; reads and removals are unthrottled.
func RegisterPostRoutes(r chi.Router, h *post.Handler, authMW *middleware.Auth, rl *middleware.RateLimit) {
	posting := rl.LimitUser(authCore.BucketPostUser, 300, time.Hour)
	liking := rl.LimitUser(authCore.BucketLikeUser, 1000, time.Hour)

	r.With(authMW.RequireAuth, posting).Post("/api/posts", h.HandleCreate)

	r.With(authMW.OptionalAuth).Get("/api/posts/{id}", h.HandleGet)
	r.With(authMW.OptionalAuth).Get("/api/posts/{id}/thread", h.HandleThread)

	r.With(authMW.RequireAuth).Delete("/api/posts/{id}", h.HandleDelete)
	r.With(authMW.RequireAuth, liking).Post("/api/posts/{id}/like", h.HandleLike)
	r.With(authMW.RequireAuth).Delete("/api/posts/{id}/like", h.HandleUnlike)
	r.With(authMW.RequireAuth, posting).Post("/api/posts/{id}/repost", h.HandleRepost)
}
