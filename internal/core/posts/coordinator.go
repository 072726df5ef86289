package posts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"Wire/internal/coord"
	"Wire/internal/kv"
)

// Coordinator owns the authoritative post blobs. Every mutation runs
// under the per-post lock as load-mutate-save and refreshes the
// denormalized snapshot in the same call, so feeds never read counters
// the coordinator has not written.
type Coordinator struct {
	store kv.Store
	group *coord.Group
	log   zerolog.Logger
}

func NewCoordinator(store kv.Store, group *coord.Group, log zerolog.Logger) *Coordinator {
	return &Coordinator{store: store, group: group, log: log}
}

func (c *Coordinator) Initialize(ctx context.Context, st State) error {
	return c.group.Do(ctx, KeyState(st.ID), func(ctx context.Context) error {
		if _, err := c.load(ctx, st.ID); err == nil {
			return ErrAlreadyInitialized
		} else if !errors.Is(err, ErrPostNotFound) {
			return err
		}

		if st.CreatedAt.IsZero() {
			st.CreatedAt = time.Now().UTC()
		}
		if st.Likes == nil {
			st.Likes = []string{}
		}
		if st.Reposts == nil {
			st.Reposts = []string{}
		}
		return c.save(ctx, &st)
	})
}

func (c *Coordinator) Get(ctx context.Context, id string) (*State, error) {
	var st *State
	err := c.group.Do(ctx, KeyState(id), func(ctx context.Context) error {
		var err error
		st, err = c.load(ctx, id)
		return err
	})
	return st, err
}

// Like adds userID to the like set and returns the new count. Liking
// twice is a no-op success returning the unchanged count; added tells
// the caller whether this call created the edge.
func (c *Coordinator) Like(ctx context.Context, id, userID string) (count int, added bool, err error) {
	_, err = c.update(ctx, id, func(st *State) (bool, error) {
		if st.IsDeleted || st.IsTakenDown {
			return false, ErrPostNotFound
		}
		added = addID(&st.Likes, userID)
		if added {
			st.Counters.Likes++
		}
		count = st.Counters.Likes
		return added, nil
	})
	return count, added, err
}

// Unlike removes userID from the like set and returns the new count.
// Unliking a post never liked is a no-op success.
func (c *Coordinator) Unlike(ctx context.Context, id, userID string) (count int, removed bool, err error) {
	_, err = c.update(ctx, id, func(st *State) (bool, error) {
		if st.IsDeleted || st.IsTakenDown {
			return false, ErrPostNotFound
		}
		removed = removeID(&st.Likes, userID)
		if removed && st.Counters.Likes > 0 {
			st.Counters.Likes--
		}
		count = st.Counters.Likes
		return removed, nil
	})
	return count, removed, err
}

// AddRepost records userID in the repost set. A repeated repost is a
// conflict, unlike the like path.
func (c *Coordinator) AddRepost(ctx context.Context, id, userID string) (int, error) {
	var count int
	_, err := c.update(ctx, id, func(st *State) (bool, error) {
		if st.IsDeleted || st.IsTakenDown {
			return false, ErrPostNotFound
		}
		if containsID(st.Reposts, userID) {
			return false, ErrAlreadyReposted
		}
		st.Reposts = append(st.Reposts, userID)
		st.Counters.Reposts++
		count = st.Counters.Reposts
		return true, nil
	})
	return count, err
}

func (c *Coordinator) RemoveRepost(ctx context.Context, id, userID string) (int, error) {
	var count int
	_, err := c.update(ctx, id, func(st *State) (bool, error) {
		removed := removeID(&st.Reposts, userID)
		if removed && st.Counters.Reposts > 0 {
			st.Counters.Reposts--
		}
		count = st.Counters.Reposts
		return removed, nil
	})
	return count, err
}

func (c *Coordinator) IncrementReplyCount(ctx context.Context, id string) error {
	_, err := c.update(ctx, id, func(st *State) (bool, error) {
		st.Counters.Replies++
		return true, nil
	})
	return err
}

func (c *Coordinator) DecrementReplyCount(ctx context.Context, id string) error {
	_, err := c.update(ctx, id, func(st *State) (bool, error) {
		if st.Counters.Replies == 0 {
			return false, nil
		}
		st.Counters.Replies--
		return true, nil
	})
	return err
}

func (c *Coordinator) IncrementQuoteCount(ctx context.Context, id string) error {
	_, err := c.update(ctx, id, func(st *State) (bool, error) {
		st.Counters.Quotes++
		return true, nil
	})
	return err
}

func (c *Coordinator) DecrementQuoteCount(ctx context.Context, id string) error {
	_, err := c.update(ctx, id, func(st *State) (bool, error) {
		if st.Counters.Quotes == 0 {
			return false, nil
		}
		st.Counters.Quotes--
		return true, nil
	})
	return err
}

func (c *Coordinator) HasLiked(ctx context.Context, id, userID string) (bool, error) {
	st, err := c.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return containsID(st.Likes, userID), nil
}

func (c *Coordinator) HasReposted(ctx context.Context, id, userID string) (bool, error) {
	st, err := c.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return containsID(st.Reposts, userID), nil
}

// Delete marks the author tombstone. Content stays in the state blob
// for audit; the snapshot is blanked and zeroed by save.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	_, err := c.update(ctx, id, func(st *State) (bool, error) {
		if st.IsDeleted {
			return false, nil
		}
		now := time.Now().UTC()
		st.IsDeleted = true
		st.DeletedAt = &now
		return true, nil
	})
	return err
}

// Takedown marks the moderation tombstone, independent of Delete.
func (c *Coordinator) Takedown(ctx context.Context, id, adminID, reason string) error {
	_, err := c.update(ctx, id, func(st *State) (bool, error) {
		if st.IsTakenDown {
			return false, nil
		}
		now := time.Now().UTC()
		st.IsTakenDown = true
		st.TakenDownAt = &now
		st.TakenDownReason = reason
		st.TakenDownBy = adminID
		return true, nil
	})
	return err
}

// AddAuthored prepends postID to the author's authored index.
func (c *Coordinator) AddAuthored(ctx context.Context, authorID, postID string) error {
	return c.prependToList(ctx, KeyUserPosts(authorID), postID)
}

func (c *Coordinator) RemoveAuthored(ctx context.Context, authorID, postID string) error {
	return c.removeFromList(ctx, KeyUserPosts(authorID), postID)
}

// ListAuthored returns the author's post ids, newest first.
func (c *Coordinator) ListAuthored(ctx context.Context, authorID string) ([]string, error) {
	return c.loadList(ctx, KeyUserPosts(authorID))
}

// AddReply prepends replyID to the parent's reply index.
func (c *Coordinator) AddReply(ctx context.Context, parentID, replyID string) error {
	return c.prependToList(ctx, KeyReplies(parentID), replyID)
}

func (c *Coordinator) RemoveReply(ctx context.Context, parentID, replyID string) error {
	return c.removeFromList(ctx, KeyReplies(parentID), replyID)
}

func (c *Coordinator) ListReplies(ctx context.Context, parentID string) ([]string, error) {
	return c.loadList(ctx, KeyReplies(parentID))
}

func (c *Coordinator) update(ctx context.Context, id string, fn func(st *State) (bool, error)) (*State, error) {
	var st *State
	err := c.group.Do(ctx, KeyState(id), func(ctx context.Context) error {
		var err error
		st, err = c.load(ctx, id)
		if err != nil {
			return err
		}

		changed, err := fn(st)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		return c.save(ctx, st)
	})
	return st, err
}

func (c *Coordinator) load(ctx context.Context, id string) (*State, error) {
	raw, err := c.store.Get(ctx, KeyState(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading post %s: %w", id, err)
	}

	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, &CorruptStateError{ID: id, Err: err}
	}
	return &st, nil
}

// save writes the state blob and the snapshot in one call so the read
// model never lags a completed mutation.
func (c *Coordinator) save(ctx context.Context, st *State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding post %s: %w", st.ID, err)
	}
	if err := c.store.Set(ctx, KeyState(st.ID), string(raw), kv.NoTTL); err != nil {
		return fmt.Errorf("saving post %s: %w", st.ID, err)
	}

	snap, err := json.Marshal(st.snapshot())
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", st.ID, err)
	}
	if err := c.store.Set(ctx, KeySnapshot(st.ID), string(snap), kv.NoTTL); err != nil {
		return fmt.Errorf("saving snapshot %s: %w", st.ID, err)
	}
	return nil
}

func (c *Coordinator) prependToList(ctx context.Context, key, id string) error {
	return c.group.Do(ctx, key, func(ctx context.Context) error {
		ids, err := c.loadList(ctx, key)
		if err != nil {
			return err
		}
		if containsID(ids, id) {
			return nil
		}
		ids = append([]string{id}, ids...)
		return c.saveList(ctx, key, ids)
	})
}

func (c *Coordinator) removeFromList(ctx context.Context, key, id string) error {
	return c.group.Do(ctx, key, func(ctx context.Context) error {
		ids, err := c.loadList(ctx, key)
		if err != nil {
			return err
		}
		if !removeID(&ids, id) {
			return nil
		}
		return c.saveList(ctx, key, ids)
	})
}

func (c *Coordinator) loadList(ctx context.Context, key string) ([]string, error) {
	raw, err := c.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", key, err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	return ids, nil
}

func (c *Coordinator) saveList(ctx context.Context, key string, ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := c.store.Set(ctx, key, string(raw), kv.NoTTL); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func addID(ids *[]string, id string) bool {
	if containsID(*ids, id) {
		return false
	}
	*ids = append(*ids, id)
	return true
}

func removeID(ids *[]string, id string) bool {
	out := (*ids)[:0]
	removed := false
	for _, v := range *ids {
		if v == id {
			removed = true
			continue
		}
		out = append(out, v)
	}
	*ids = out
	return removed
}
