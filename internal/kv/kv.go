// Package kv defines the key-value tier used for coordinator state,
// denormalized snapshots, indexes, sessions and rate-limit windows.
//
// The contract is an eventually consistent string→string map with per-key
// TTL and bounded prefix listing. All coordinator writes go through this
// interface; nothing else in the system persists state.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// NoTTL marks a key that should not expire.
const NoTTL time.Duration = 0

// Store is the key-value contract.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// MGet returns the values for the given keys. Missing keys are absent
	// from the result; the call succeeds even if none exist.
	MGet(ctx context.Context, keys []string) (map[string]string, error)

	// Set writes key to value with the given TTL (NoTTL for none).
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX writes key only if it does not exist. Returns true if the
	// write happened. Used for uniqueness reservations.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// GetDel returns the value for key and removes it atomically, or
	// ErrNotFound. Used for single-use tokens.
	GetDel(ctx context.Context, key string) (string, error)

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Incr atomically increments the integer at key, creating it at 1.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire sets the TTL of an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Keys lists up to limit keys beginning with prefix. Ordering is
	// unspecified. limit <= 0 means no bound.
	Keys(ctx context.Context, prefix string, limit int) ([]string, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	Close() error
}
