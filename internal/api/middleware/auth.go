// Package middleware carries the request chain for the API: bearer
// authentication with the ban gate, kv-backed rate limits, request
// logging and instrumentation.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"Wire/internal/api/handlers"
	"Wire/internal/core/auth"
)

type contextKey string

const (
	userIDKey     contextKey = "userId"
	userHandleKey contextKey = "userHandle"
)

// TokenVerifier validates bearer tokens; auth.Service satisfies it.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

// BanChecker answers whether a user may act; auth.BanGate satisfies it.
type BanChecker interface {
	Banned(ctx context.Context, userID string) (bool, error)
}

// AdminChecker reports whether a user holds the admin flag.
type AdminChecker interface {
	IsAdmin(ctx context.Context, id string) (bool, error)
}

// Auth authenticates requests and enforces bans on every authenticated
// surface.
type Auth struct {
	verifier TokenVerifier
	bans     BanChecker
	log      zerolog.Logger
}

func NewAuth(verifier TokenVerifier, bans BanChecker, log zerolog.Logger) *Auth {
	return &Auth{
		verifier: verifier,
		bans:     bans,
		log:      log.With().Str("component", "auth-middleware").Logger(),
	}
}

// RequireAuth rejects requests without a valid bearer token, then runs
// the ban gate before letting the request through.
func (m *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			handlers.WriteError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		claims, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			handlers.WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		if !m.admit(w, r, claims.Subject) {
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), claims)))
	})
}

// OptionalAuth loads the user when a valid token is attached and
// continues anonymously otherwise. A valid token still goes through
// the ban gate: a token never grants a banned account anything.
func (m *Auth) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		if !m.admit(w, r, claims.Subject) {
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), claims)))
	})
}

// admit runs the ban gate and writes the refusal when the user may not
// proceed. The gate fails closed: an unreachable store is a 503, not a
// pass.
func (m *Auth) admit(w http.ResponseWriter, r *http.Request, userID string) bool {
	banned, err := m.bans.Banned(r.Context(), userID)
	if err != nil {
		m.log.Error().Err(err).Str("userId", userID).Msg("ban check unavailable")
		handlers.WriteError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
		return false
	}
	if banned {
		handlers.WriteError(w, http.StatusForbidden, "Account suspended")
		return false
	}
	return true
}

// RequireAdmin gates moderation surfaces. It expects RequireAuth
// earlier in the chain.
func RequireAdmin(users AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserID(r)
			if userID == "" {
				handlers.WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			admin, err := users.IsAdmin(r.Context(), userID)
			if err != nil || !admin {
				handlers.WriteError(w, http.StatusForbidden, "Admin privileges required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func withUser(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, userIDKey, claims.Subject)
	return context.WithValue(ctx, userHandleKey, claims.Handle)
}

// UserID extracts the authenticated user id; empty when anonymous.
func UserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

// UserHandle extracts the authenticated handle; empty when anonymous.
func UserHandle(r *http.Request) string {
	h, _ := r.Context().Value(userHandleKey).(string)
	return h
}

// SetTestUser injects a user id into the context. Tests only.
func SetTestUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
