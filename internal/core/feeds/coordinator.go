package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"Wire/internal/coord"
	"Wire/internal/kv"
)

// Coordinator owns the entry lists. All writes to one user's feed
// serialize on that user's key; reads go straight to the store since a
// list blob is swapped atomically.
type Coordinator struct {
	store kv.Store
	group *coord.Group
	log   zerolog.Logger
	cap   int
}

func NewCoordinator(store kv.Store, group *coord.Group, log zerolog.Logger) *Coordinator {
	return &Coordinator{store: store, group: group, log: log, cap: feedCap}
}

// Add inserts e keeping descending (timestamp, postId) order. Duplicate
// postIds are a no-op. Past capacity the oldest entries fall off.
func (c *Coordinator) Add(ctx context.Context, userID string, e Entry) error {
	return c.update(ctx, userID, func(entries []Entry) ([]Entry, bool) {
		for _, have := range entries {
			if have.PostID == e.PostID {
				return entries, false
			}
		}

		at := len(entries)
		for i, have := range entries {
			if have.before(e.Timestamp.UnixMilli(), e.PostID) {
				at = i
				break
			}
		}
		entries = append(entries, Entry{})
		copy(entries[at+1:], entries[at:])
		entries[at] = e

		if len(entries) > c.cap {
			entries = entries[:c.cap]
		}
		return entries, true
	})
}

// Remove drops every entry carrying postID.
func (c *Coordinator) Remove(ctx context.Context, userID, postID string) error {
	return c.update(ctx, userID, func(entries []Entry) ([]Entry, bool) {
		kept := entries[:0]
		for _, e := range entries {
			if e.PostID != postID {
				kept = append(kept, e)
			}
		}
		return kept, len(kept) != len(entries)
	})
}

// Clear wipes the feed.
func (c *Coordinator) Clear(ctx context.Context, userID string) error {
	return c.group.Do(ctx, KeyFeed(userID), func(ctx context.Context) error {
		return c.store.Delete(ctx, KeyFeed(userID))
	})
}

// Entries returns the stored list, newest first.
func (c *Coordinator) Entries(ctx context.Context, userID string) ([]Entry, error) {
	return c.load(ctx, userID)
}

func (c *Coordinator) update(ctx context.Context, userID string, fn func([]Entry) ([]Entry, bool)) error {
	return c.group.Do(ctx, KeyFeed(userID), func(ctx context.Context) error {
		entries, err := c.load(ctx, userID)
		if err != nil {
			return err
		}
		next, changed := fn(entries)
		if !changed {
			return nil
		}
		return c.save(ctx, userID, next)
	})
}

func (c *Coordinator) load(ctx context.Context, userID string) ([]Entry, error) {
	raw, err := c.store.Get(ctx, KeyFeed(userID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode feed %s: %w", userID, err)
	}
	return entries, nil
}

func (c *Coordinator) save(ctx context.Context, userID string, entries []Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode feed %s: %w", userID, err)
	}
	return c.store.Set(ctx, KeyFeed(userID), string(raw), kv.NoTTL)
}
