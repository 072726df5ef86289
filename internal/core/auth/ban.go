package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"Wire/internal/core/users"
	"Wire/internal/kv"
)

const (
	banCacheTTL     = 60 * time.Second
	banStatusBanned = "banned"
	banStatusActive = "active"
)

// BanSource answers the authoritative ban question. users.Service
// satisfies it.
type BanSource interface {
	IsBanned(ctx context.Context, id string) (bool, error)
}

// BanGate fronts the per-request ban check with a 60-second cache.
// When neither the cache nor the coordinator can answer, it denies:
// a banned user slipping through is worse than a stale 503.
type BanGate struct {
	store kv.Store
	users BanSource
	log   zerolog.Logger
}

func NewBanGate(store kv.Store, src BanSource, log zerolog.Logger) *BanGate {
	return &BanGate{store: store, users: src, log: log}
}

// Banned resolves the user's ban status. ErrBanCheckUnavailable means
// the answer is unknown and access must be denied with a retryable
// status.
func (g *BanGate) Banned(ctx context.Context, userID string) (bool, error) {
	cached, err := g.store.Get(ctx, users.KeyBanStatus(userID))
	if err == nil {
		return cached == banStatusBanned, nil
	}
	if !errors.Is(err, kv.ErrNotFound) {
		return true, ErrBanCheckUnavailable
	}

	banned, err := g.users.IsBanned(ctx, userID)
	if errors.Is(err, users.ErrUserNotFound) {
		// A token for an account that no longer exists gets nothing.
		return true, nil
	}
	if err != nil {
		return true, ErrBanCheckUnavailable
	}

	status := banStatusActive
	if banned {
		status = banStatusBanned
	}
	if err := g.store.Set(ctx, users.KeyBanStatus(userID), status, banCacheTTL); err != nil {
		g.log.Warn().Err(err).Str("userId", userID).Msg("ban cache write failed")
	}
	return banned, nil
}
