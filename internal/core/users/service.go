package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"Wire/internal/kv"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type userService struct {
	coord    *Coordinator
	store    kv.Store
	indexer  DirectoryIndexer
	notifier Notifier
	log      zerolog.Logger
}

// NewService wires the user domain. indexer and notifier may be nil in
// tests; both are best-effort collaborators.
func NewService(coordinator *Coordinator, store kv.Store, indexer DirectoryIndexer, notifier Notifier, log zerolog.Logger) Service {
	return &userService{
		coord:    coordinator,
		store:    store,
		indexer:  indexer,
		notifier: notifier,
		log:      log,
	}
}

func (s *userService) Initialize(ctx context.Context, st State) error {
	if err := s.coord.Initialize(ctx, st); err != nil {
		return err
	}

	if s.indexer != nil {
		if err := s.indexer.IndexUser(ctx, st.ID, st.Handle, st.Profile.DisplayName); err != nil {
			s.log.Warn().Err(err).Str("userId", st.ID).Msg("user search indexing failed")
		}
	}
	return nil
}

func (s *userService) Get(ctx context.Context, id string) (*State, error) {
	return s.coord.Get(ctx, id)
}

func (s *userService) ResolveHandle(ctx context.Context, handle string) (string, error) {
	handle = strings.TrimSpace(strings.ToLower(handle))
	if handle == "" {
		return "", ErrUserNotFound
	}

	id, err := s.store.Get(ctx, KeyHandle(handle))
	if errors.Is(err, kv.ErrNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolving handle %s: %w", handle, err)
	}
	return id, nil
}

func (s *userService) Profile(ctx context.Context, handle, viewerID string) (*ProfileView, error) {
	handle = strings.TrimSpace(strings.ToLower(handle))

	view, err := s.profileSnapshot(ctx, handle)
	if err != nil {
		return nil, err
	}

	if viewerID != "" && viewerID != view.ID {
		if following, err := s.IsFollowing(ctx, viewerID, view.ID); err == nil {
			view.IsFollowing = &following
		}
		if blocked, err := s.IsBlocked(ctx, viewerID, view.ID); err == nil {
			view.IsBlocked = &blocked
		}
	}
	return view, nil
}

// profileSnapshot serves profile:{handle}, rebuilding it from the
// authoritative blob on a miss. Viewer-dependent fields are never cached.
func (s *userService) profileSnapshot(ctx context.Context, handle string) (*ProfileView, error) {
	if raw, err := s.store.Get(ctx, KeyProfile(handle)); err == nil {
		var view ProfileView
		if err := json.Unmarshal([]byte(raw), &view); err == nil {
			return &view, nil
		}
		// Undecodable snapshot: fall through and rebuild.
	}

	id, err := s.ResolveHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	st, err := s.coord.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	view := st.View()
	if raw, err := json.Marshal(view); err == nil {
		if err := s.store.Set(ctx, KeyProfile(handle), string(raw), profileSnapshotTTL); err != nil {
			s.log.Warn().Err(err).Str("handle", handle).Msg("profile snapshot write failed")
		}
	}
	return &view, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*ProfileView, error) {
	st, nameChanged, prevName, err := s.coord.UpdateProfile(ctx, id, upd)
	if err != nil {
		return nil, err
	}

	if nameChanged && s.indexer != nil {
		if err := s.indexer.ReindexDisplayName(ctx, id, prevName, st.Profile.DisplayName); err != nil {
			s.log.Warn().Err(err).Str("userId", id).Msg("display name reindex failed")
		}
	}

	view := st.View()
	return &view, nil
}

func (s *userService) GetSettings(ctx context.Context, id string) (*Settings, error) {
	st, err := s.coord.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	settings := st.Settings
	settings.MutedWords = append([]string{}, st.Settings.MutedWords...)
	return &settings, nil
}

func (s *userService) UpdateSettings(ctx context.Context, id string, upd SettingsUpdate) (*Settings, error) {
	st, err := s.coord.UpdateSettings(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	settings := st.Settings
	return &settings, nil
}

// Follow adds the edge on both sides and notifies the target. Following
// an account that blocks you, or that you block, is rejected.
func (s *userService) Follow(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		// The self-follow edge exists from creation; treat as duplicate.
		return nil
	}

	actor, err := s.coord.Get(ctx, userID)
	if err != nil {
		return err
	}
	target, err := s.coord.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if containsID(actor.Blocked, targetID) || containsID(target.Blocked, userID) {
		return ErrBlocked
	}

	added, err := s.coord.Follow(ctx, userID, targetID)
	if err != nil {
		return err
	}
	if !added {
		return nil
	}

	if _, err := s.coord.AddFollower(ctx, targetID, userID); err != nil {
		return fmt.Errorf("mirroring follow on %s: %w", targetID, err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyFollow(ctx, targetID, userID); err != nil {
			s.log.Warn().Err(err).Str("actor", userID).Str("target", targetID).Msg("follow notification failed")
		}
	}
	return nil
}

func (s *userService) Unfollow(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		return ErrSelfUnfollow
	}

	removed, err := s.coord.Unfollow(ctx, userID, targetID)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	if _, err := s.coord.RemoveFollower(ctx, targetID, userID); err != nil {
		return fmt.Errorf("mirroring unfollow on %s: %w", targetID, err)
	}
	return nil
}

// Block severs all follow edges between the pair and records the block
// on the actor's side.
func (s *userService) Block(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		return ErrSelfBlock
	}
	if _, err := s.coord.Get(ctx, targetID); err != nil {
		return err
	}

	if err := s.coord.AddBlock(ctx, userID, targetID); err != nil {
		return err
	}
	if err := s.coord.SeverEdges(ctx, targetID, userID); err != nil {
		return fmt.Errorf("severing edges on %s: %w", targetID, err)
	}
	return nil
}

func (s *userService) Unblock(ctx context.Context, userID, targetID string) error {
	_, err := s.coord.RemoveBlock(ctx, userID, targetID)
	return err
}

func (s *userService) IsFollowing(ctx context.Context, userID, targetID string) (bool, error) {
	st, err := s.coord.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return containsID(st.Following, targetID), nil
}

func (s *userService) IsBlocked(ctx context.Context, userID, targetID string) (bool, error) {
	st, err := s.coord.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return containsID(st.Blocked, targetID), nil
}

func (s *userService) IsBanned(ctx context.Context, id string) (bool, error) {
	st, err := s.coord.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return st.Profile.IsBanned, nil
}

func (s *userService) IsAdmin(ctx context.Context, id string) (bool, error) {
	st, err := s.coord.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return st.Profile.IsAdmin, nil
}

func (s *userService) Relations(ctx context.Context, id string) (*Relations, error) {
	st, err := s.coord.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Relations{
		Following:  append([]string{}, st.Following...),
		Blocked:    append([]string{}, st.Blocked...),
		MutedWords: append([]string{}, st.Settings.MutedWords...),
	}, nil
}

func (s *userService) FollowerIDs(ctx context.Context, id string) ([]string, error) {
	st, err := s.coord.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return append([]string{}, st.Followers...), nil
}

func (s *userService) Followers(ctx context.Context, id string, limit int, cursor string) (*CardPage, error) {
	st, err := s.coord.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.cardPage(ctx, st.Followers, limit, cursor)
}

func (s *userService) Following(ctx context.Context, id string, limit int, cursor string) (*CardPage, error) {
	st, err := s.coord.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.cardPage(ctx, st.Following, limit, cursor)
}

func (s *userService) BlockedUsers(ctx context.Context, id string) ([]ProfileView, error) {
	st, err := s.coord.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Cards(ctx, st.Blocked)
}

// cardPage slices an id set by positional cursor and joins the window
// with profile cards.
func (s *userService) cardPage(ctx context.Context, ids []string, limit int, cursor string) (*CardPage, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return nil, &ValidationError{Field: "cursor", Reason: "malformed"}
		}
		offset = n
	}
	if offset > len(ids) {
		offset = len(ids)
	}

	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}

	cards, err := s.Cards(ctx, ids[offset:end])
	if err != nil {
		return nil, err
	}

	page := &CardPage{Users: cards, HasMore: end < len(ids)}
	if page.HasMore {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

// Cards resolves user ids to public cards in input order, silently
// skipping ids that no longer resolve.
func (s *userService) Cards(ctx context.Context, ids []string) ([]ProfileView, error) {
	if len(ids) == 0 {
		return []ProfileView{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = KeyUser(id)
	}
	blobs, err := s.store.MGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("loading user cards: %w", err)
	}

	views := make([]ProfileView, 0, len(ids))
	for i, id := range ids {
		raw, ok := blobs[keys[i]]
		if !ok {
			continue
		}
		var st State
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			s.log.Warn().Err(err).Str("userId", id).Msg("skipping undecodable user blob")
			continue
		}
		views = append(views, st.View())
	}
	return views, nil
}

func (s *userService) IncrementPostCount(ctx context.Context, id string) error {
	return s.coord.IncrementPostCount(ctx, id)
}

func (s *userService) DecrementPostCount(ctx context.Context, id string) error {
	return s.coord.DecrementPostCount(ctx, id)
}

func (s *userService) Ban(ctx context.Context, id, reason string) error {
	return s.coord.Ban(ctx, id, reason)
}

func (s *userService) Unban(ctx context.Context, id string) error {
	return s.coord.Unban(ctx, id)
}

func (s *userService) SetAdmin(ctx context.Context, id string, admin bool) error {
	return s.coord.SetAdmin(ctx, id, admin)
}

func (s *userService) RecordLogin(ctx context.Context, id string) error {
	return s.coord.RecordLogin(ctx, id)
}

func (s *userService) UpdatePassword(ctx context.Context, id string, v Verifier) error {
	return s.coord.UpdatePassword(ctx, id, v)
}

func (s *userService) RecordLike(ctx context.Context, userID, postID string) error {
	return s.coord.RecordLike(ctx, userID, postID)
}

func (s *userService) ForgetLike(ctx context.Context, userID, postID string) error {
	return s.coord.ForgetLike(ctx, userID, postID)
}

func (s *userService) LikedPosts(ctx context.Context, id string, limit int) ([]string, error) {
	return s.coord.LikedPosts(ctx, id, limit)
}
