package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"Wire/internal/api/handlers"
	"Wire/internal/core/auth"
)

// RateLimit applies fixed-window per-IP limits backed by the shared kv
// counters, so every instance enforces the same windows.
type RateLimit struct {
	limiter *auth.Limiter
	log     zerolog.Logger
}

func NewRateLimit(limiter *auth.Limiter, log zerolog.Logger) *RateLimit {
	return &RateLimit{
		limiter: limiter,
		log:     log.With().Str("component", "ratelimit").Logger(),
	}
}

// Limit caps requests per client IP for one bucket. An unreachable
// counter store lets the request through: rate limiting protects the
// API, it must not take it down.
func (rl *RateLimit) Limit(bucket string, max int, window time.Duration) func(http.Handler) http.Handler {
	return rl.limit(bucket, max, window, clientIP)
}

// LimitUser caps requests per authenticated user. Mount after
// RequireAuth; anonymous requests fall back to the client IP.
func (rl *RateLimit) LimitUser(bucket string, max int, window time.Duration) func(http.Handler) http.Handler {
	return rl.limit(bucket, max, window, func(r *http.Request) string {
		if id := UserID(r); id != "" {
			return id
		}
		return clientIP(r)
	})
}

func (rl *RateLimit) limit(bucket string, max int, window time.Duration, key func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := rl.limiter.Allow(r.Context(), bucket, key(r), max, window)
			if err != nil {
				rl.log.Warn().Err(err).Str("bucket", bucket).Msg("rate limit check failed")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				handlers.WriteError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP picks the client address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the client when the proxy appends.
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
