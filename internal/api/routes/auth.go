// Package routes mounts every API surface on the chi router.
package routes

import (
	"time"

	"github.com/go-chi/chi/v5"

	"Wire/internal/api/handlers/auth"
	"Wire/internal/api/middleware"
	authCore "Wire/internal/core/auth"
)

// RegisterAuthRoutes mounts the /api/auth surface. Signup and login
// carry their own per-IP buckets; the reset flow is enumeration-safe
// and stays open.
func RegisterAuthRoutes(r chi.Router, h *auth.Handler, authMW *middleware.Auth, rl *middleware.RateLimit) {
	r.With(rl.Limit(authCore.BucketSignupIP, 10, time.Hour)).
		Post("/api/auth/signup", h.HandleSignup)
	r.With(rl.Limit(authCore.BucketLoginIP, 5, time.Minute)).
		Post("/api/auth/login", h.HandleLogin)

	r.With(authMW.RequireAuth).Post("/api/auth/refresh", h.HandleRefresh)
	r.With(authMW.RequireAuth).Post("/api/auth/logout", h.HandleLogout)
	r.With(authMW.RequireAuth).Get("/api/auth/me", h.HandleMe)

	r.Post("/api/auth/reset/request", h.HandleResetRequest)
	r.Post("/api/auth/reset/confirm", h.HandleResetConfirm)
}
