package users

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

const (
	// banCacheTTL bounds how stale the middleware's ban verdict can be.
	banCacheTTL = 60 * time.Second

	profileSnapshotTTL = time.Hour
)

// Coordinator owns the authoritative user blobs. Every operation runs
// under the per-user lock and follows load-at-start, save-before-return;
// nothing holds state across calls.
type Coordinator struct {
	store kv.Store
	group *coord.Group
	log   zerolog.Logger
}

func NewCoordinator(store kv.Store, group *coord.Group, log zerolog.Logger) *Coordinator {
	return &Coordinator{store: store, group: group, log: log}
}

// Initialize writes the blob for a brand-new user. The self-follow edge
// is established here and never removed.
func (c *Coordinator) Initialize(ctx context.Context, st State) error {
	return c.group.Do(ctx, KeyUser(st.ID), func(ctx context.Context) error {
		if _, err := c.load(ctx, st.ID); err == nil {
			return ErrAlreadyInitialized
		} else if !errors.Is(err, ErrUserNotFound) {
			return err
		}

		now := time.Now().UTC()
		if st.CreatedAt.IsZero() {
			st.CreatedAt = now
		}
		if st.Profile.JoinedAt.IsZero() {
			st.Profile.JoinedAt = st.CreatedAt
		}

		st.Following = []string{st.ID}
		st.Followers = []string{st.ID}
		st.Counters = Counters{Followers: 1, Following: 1, Posts: 0}
		if st.Settings.MutedWords == nil {
			st.Settings.MutedWords = []string{}
		}
		if st.Blocked == nil {
			st.Blocked = []string{}
		}

		return c.save(ctx, &st)
	})
}

// Get reads the blob under the user's lock, so a read issued after a
// mutation observes it.
func (c *Coordinator) Get(ctx context.Context, id string) (*State, error) {
	var st *State
	err := c.group.Do(ctx, KeyUser(id), func(ctx context.Context) error {
		var err error
		st, err = c.load(ctx, id)
		return err
	})
	return st, err
}

// UpdateProfile applies a whitelisted partial edit. It reports whether
// the display name changed so the caller can re-index search.
func (c *Coordinator) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (st *State, nameChanged bool, prevName string, err error) {
	if err := validateProfileUpdate(upd); err != nil {
		return nil, false, "", err
	}

	st, err = c.update(ctx, id, func(st *State) (bool, error) {
		prevName = st.Profile.DisplayName
		if upd.DisplayName != nil && *upd.DisplayName != st.Profile.DisplayName {
			st.Profile.DisplayName = *upd.DisplayName
			nameChanged = true
		}
		if upd.Bio != nil {
			st.Profile.Bio = *upd.Bio
		}
		if upd.Location != nil {
			st.Profile.Location = *upd.Location
		}
		if upd.Website != nil {
			st.Profile.Website = *upd.Website
		}
		if upd.AvatarURL != nil {
			st.Profile.AvatarURL = *upd.AvatarURL
		}
		if upd.BannerURL != nil {
			st.Profile.BannerURL = *upd.BannerURL
		}
		return true, nil
	})
	return st, nameChanged, prevName, err
}

func (c *Coordinator) UpdateSettings(ctx context.Context, id string, upd SettingsUpdate) (*State, error) {
	if upd.MutedWords != nil && len(*upd.MutedWords) > 100 {
		return nil, &ValidationError{Field: "mutedWords", Reason: "at most 100 entries"}
	}

	return c.update(ctx, id, func(st *State) (bool, error) {
		if upd.EmailNotifications != nil {
			st.Settings.EmailNotifications = *upd.EmailNotifications
		}
		if upd.PrivateAccount != nil {
			st.Settings.PrivateAccount = *upd.PrivateAccount
		}
		if upd.MutedWords != nil {
			st.Settings.MutedWords = append([]string{}, *upd.MutedWords...)
		}
		return true, nil
	})
}

// Follow adds targetID to the actor's following set. Duplicate follows
// are no-op successes.
func (c *Coordinator) Follow(ctx context.Context, userID, targetID string) (bool, error) {
	var added bool
	_, err := c.update(ctx, userID, func(st *State) (bool, error) {
		added = addID(&st.Following, targetID)
		if added {
			st.Counters.Following++
		}
		return added, nil
	})
	return added, err
}

// Unfollow removes targetID from the actor's following set. Removing a
// non-followed user is a no-op success; the self-follow edge is fixed.
func (c *Coordinator) Unfollow(ctx context.Context, userID, targetID string) (bool, error) {
	if userID == targetID {
		return false, ErrSelfUnfollow
	}
	var removed bool
	_, err := c.update(ctx, userID, func(st *State) (bool, error) {
		removed = removeID(&st.Following, targetID)
		if removed && st.Counters.Following > 0 {
			st.Counters.Following--
		}
		return removed, nil
	})
	return removed, err
}

// AddFollower mirrors a follow on the target's side.
func (c *Coordinator) AddFollower(ctx context.Context, userID, followerID string) (bool, error) {
	var added bool
	_, err := c.update(ctx, userID, func(st *State) (bool, error) {
		added = addID(&st.Followers, followerID)
		if added {
			st.Counters.Followers++
		}
		return added, nil
	})
	return added, err
}

// RemoveFollower mirrors an unfollow on the target's side.
func (c *Coordinator) RemoveFollower(ctx context.Context, userID, followerID string) (bool, error) {
	if userID == followerID {
		return false, ErrSelfUnfollow
	}
	var removed bool
	_, err := c.update(ctx, userID, func(st *State) (bool, error) {
		removed = removeID(&st.Followers, followerID)
		if removed && st.Counters.Followers > 0 {
			st.Counters.Followers--
		}
		return removed, nil
	})
	return removed, err
}

// AddBlock records the block and severs the actor's own follow edges to
// the target in the same write. The target's mirror edges are severed by
// the service through SeverEdges.
func (c *Coordinator) AddBlock(ctx context.Context, userID, targetID string) error {
	_, err := c.update(ctx, userID, func(st *State) (bool, error) {
		changed := addID(&st.Blocked, targetID)
		if removeID(&st.Following, targetID) {
			changed = true
			if st.Counters.Following > 0 {
				st.Counters.Following--
			}
		}
		if removeID(&st.Followers, targetID) {
			changed = true
			if st.Counters.Followers > 0 {
				st.Counters.Followers--
			}
		}
		return changed, nil
	})
	return err
}

func (c *Coordinator) RemoveBlock(ctx context.Context, userID, targetID string) (bool, error) {
	var removed bool
	_, err := c.update(ctx, userID, func(st *State) (bool, error) {
		removed = removeID(&st.Blocked, targetID)
		return removed, nil
	})
	return removed, err
}

// SeverEdges drops otherID from both directed sets of userID. Used on
// the blocked side so that after a block no follow edges exist between
// the pair anywhere.
func (c *Coordinator) SeverEdges(ctx context.Context, userID, otherID string) error {
	if userID == otherID {
		return nil
	}
	_, err := c.update(ctx, userID, func(st *State) (bool, error) {
		changed := false
		if removeID(&st.Following, otherID) {
			changed = true
			if st.Counters.Following > 0 {
				st.Counters.Following--
			}
		}
		if removeID(&st.Followers, otherID) {
			changed = true
			if st.Counters.Followers > 0 {
				st.Counters.Followers--
			}
		}
		return changed, nil
	})
	return err
}

func (c *Coordinator) IncrementPostCount(ctx context.Context, id string) error {
	_, err := c.update(ctx, id, func(st *State) (bool, error) {
		st.Counters.Posts++
		return true, nil
	})
	return err
}

func (c *Coordinator) DecrementPostCount(ctx context.Context, id string) error {
	_, err := c.update(ctx, id, func(st *State) (bool, error) {
		if st.Counters.Posts == 0 {
			return false, nil
		}
		st.Counters.Posts--
		return true, nil
	})
	return err
}

// Ban flags the account and refreshes the middleware's ban cache so the
// verdict takes effect without waiting out the old entry.
func (c *Coordinator) Ban(ctx context.Context, id, reason string) error {
	_, err := c.update(ctx, id, func(st *State) (bool, error) {
		now := time.Now().UTC()
		st.Profile.IsBanned = true
		st.Profile.BannedAt = &now
		st.Profile.BannedReason = reason
		return true, nil
	})
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, KeyBanStatus(id), "banned", banCacheTTL); err != nil {
		c.log.Warn().Err(err).Str("userId", id).Msg("ban cache refresh failed")
	}
	return nil
}

func (c *Coordinator) Unban(ctx context.Context, id string) error {
	_, err := c.update(ctx, id, func(st *State) (bool, error) {
		st.Profile.IsBanned = false
		st.Profile.BannedAt = nil
		st.Profile.BannedReason = ""
		return true, nil
	})
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, KeyBanStatus(id), "active", banCacheTTL); err != nil {
		c.log.Warn().Err(err).Str("userId", id).Msg("ban cache refresh failed")
	}
	return nil
}

func (c *Coordinator) SetAdmin(ctx context.Context, id string, admin bool) error {
	_, err := c.update(ctx, id, func(st *State) (bool, error) {
		if st.Profile.IsAdmin == admin {
			return false, nil
		}
		st.Profile.IsAdmin = admin
		return true, nil
	})
	return err
}

func (c *Coordinator) RecordLogin(ctx context.Context, id string) error {
	_, err := c.update(ctx, id, func(st *State) (bool, error) {
		st.LastLogin = time.Now().UTC()
		return true, nil
	})
	return err
}

// UpdatePassword swaps the stored verifier. Raw passwords never reach
// this layer; the auth service hashes before calling.
func (c *Coordinator) UpdatePassword(ctx context.Context, id string, v Verifier) error {
	_, err := c.update(ctx, id, func(st *State) (bool, error) {
		st.Verifier = v
		return true, nil
	})
	return err
}

// RecordLike prepends postID to the user's recent-likes index, bounded
// at the cap. Re-liking moves the post back to the front.
func (c *Coordinator) RecordLike(ctx context.Context, userID, postID string) error {
	return c.group.Do(ctx, KeyUser(userID), func(ctx context.Context) error {
		ids, err := c.loadLikes(ctx, userID)
		if err != nil {
			return err
		}
		removeID(&ids, postID)
		ids = append([]string{postID}, ids...)
		if len(ids) > likedCap {
			ids = ids[:likedCap]
		}
		return c.saveLikes(ctx, userID, ids)
	})
}

func (c *Coordinator) ForgetLike(ctx context.Context, userID, postID string) error {
	return c.group.Do(ctx, KeyUser(userID), func(ctx context.Context) error {
		ids, err := c.loadLikes(ctx, userID)
		if err != nil {
			return err
		}
		if !removeID(&ids, postID) {
			return nil
		}
		return c.saveLikes(ctx, userID, ids)
	})
}

// LikedPosts returns the most recent liked post ids, newest first.
func (c *Coordinator) LikedPosts(ctx context.Context, id string, limit int) ([]string, error) {
	var ids []string
	err := c.group.Do(ctx, KeyUser(id), func(ctx context.Context) error {
		var err error
		ids, err = c.loadLikes(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// update is the load-mutate-save cycle every mutation goes through. The
// mutator returns false to skip the write for no-op calls. Any change
// invalidates the profile snapshot, since counters are part of the card.
func (c *Coordinator) update(ctx context.Context, id string, fn func(st *State) (bool, error)) (*State, error) {
	var st *State
	err := c.group.Do(ctx, KeyUser(id), func(ctx context.Context) error {
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
	raw, err := c.store.Get(ctx, KeyUser(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", id, err)
	}

	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, &CorruptStateError{ID: id, Err: err}
	}
	return &st, nil
}

func (c *Coordinator) save(ctx context.Context, st *State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding user %s: %w", st.ID, err)
	}
	if err := c.store.Set(ctx, KeyUser(st.ID), string(raw), kv.NoTTL); err != nil {
		return fmt.Errorf("saving user %s: %w", st.ID, err)
	}

	if err := c.store.Delete(ctx, KeyProfile(st.Handle)); err != nil {
		c.log.Warn().Err(err).Str("handle", st.Handle).Msg("profile snapshot invalidation failed")
	}
	return nil
}

func (c *Coordinator) loadLikes(ctx context.Context, id string) ([]string, error) {
	raw, err := c.store.Get(ctx, KeyLikes(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading likes for %s: %w", id, err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, &CorruptStateError{ID: id, Err: err}
	}
	return ids, nil
}

func (c *Coordinator) saveLikes(ctx context.Context, id string, ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encoding likes for %s: %w", id, err)
	}
	if err := c.store.Set(ctx, KeyLikes(id), string(raw), kv.NoTTL); err != nil {
		return fmt.Errorf("saving likes for %s: %w", id, err)
	}
	return nil
}

func validateProfileUpdate(upd ProfileUpdate) error {
	if upd.DisplayName != nil && len(*upd.DisplayName) > 50 {
		return &ValidationError{Field: "displayName", Reason: "at most 50 characters"}
	}
	if upd.Bio != nil && len(*upd.Bio) > 160 {
		return &ValidationError{Field: "bio", Reason: "at most 160 characters"}
	}
	if upd.Location != nil && len(*upd.Location) > 100 {
		return &ValidationError{Field: "location", Reason: "at most 100 characters"}
	}
	if upd.Website != nil && len(*upd.Website) > 200 {
		return &ValidationError{Field: "website", Reason: "at most 200 characters"}
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

// addID appends id if absent, reporting whether the set changed.
func addID(ids *[]string, id string) bool {
	if containsID(*ids, id) {
		return false
	}
	*ids = append(*ids, id)
	return true
}

// removeID drops every occurrence of id, reporting whether any existed.
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
