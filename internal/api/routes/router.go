package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"Wire/internal/api/handlers"
	"Wire/internal/api/handlers/auth"
	"Wire/internal/api/handlers/feed"
	"Wire/internal/api/handlers/media"
	"Wire/internal/api/handlers/moderation"
	"Wire/internal/api/handlers/notification"
	"Wire/internal/api/handlers/post"
	"Wire/internal/api/handlers/search"
	"Wire/internal/api/handlers/user"
	"Wire/internal/api/handlers/ws"
	"Wire/internal/api/middleware"
	"Wire/internal/metrics"
)

// Deps carries everything the router mounts.
type Deps struct {
	Log       zerolog.Logger
	AuthMW    *middleware.Auth
	RateLimit *middleware.RateLimit
	Admins    middleware.AdminChecker

	Auth         *auth.Handler
	User         *user.Handler
	Post         *post.Handler
	Feed         *feed.Handler
	Notification *notification.Handler
	Search       *search.Handler
	Moderation   *moderation.Handler
	Media        *media.Handler
	WS           *ws.Handler

	// Ping probes the kv tier for the health endpoint. Optional.
	Ping func(ctx context.Context) error
}

// New assembles the full router: the global middleware chain, every
// API surface, and the operational endpoints.
func New(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(middleware.Recoverer(d.Log))
	r.Use(middleware.Metrics)

	RegisterAuthRoutes(r, d.Auth, d.AuthMW, d.RateLimit)
	RegisterUserRoutes(r, d.User, d.AuthMW, d.RateLimit)
	RegisterPostRoutes(r, d.Post, d.AuthMW, d.RateLimit)
	RegisterFeedRoutes(r, d.Feed, d.AuthMW)
	RegisterNotificationRoutes(r, d.Notification, d.AuthMW)
	RegisterSearchRoutes(r, d.Search, d.AuthMW)
	RegisterModerationRoutes(r, d.Moderation, d.AuthMW, d.Admins)
	RegisterMediaRoutes(r, d.Media, d.AuthMW)
	RegisterWSRoutes(r, d.WS)

	r.Get("/health", healthHandler(d.Ping))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				handlers.WriteError(w, http.StatusServiceUnavailable, "kv unreachable")
				return
			}
		}
		handlers.WriteData(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
