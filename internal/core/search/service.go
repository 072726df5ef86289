package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"Wire/internal/coord"
	"Wire/internal/core/posts"
	"Wire/internal/core/ranking"
	"Wire/internal/core/users"
	"Wire/internal/kv"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type searchService struct {
	store kv.Store
	group *coord.Group
	posts PostReader
	users UserReader
	log   zerolog.Logger
}

// NewService wires the search domain. The group serializes appends to
// shared prefix lists; word keys are per-post and need no lock.
func NewService(store kv.Store, group *coord.Group, postReader PostReader, userReader UserReader, log zerolog.Logger) Service {
	return &searchService{store: store, group: group, posts: postReader, users: userReader, log: log}
}

func (s *searchService) IndexPost(ctx context.Context, postID, content string, createdAt time.Time) error {
	tokens := Tokenize(content)
	if len(tokens) == 0 {
		return nil
	}

	ms := strconv.FormatInt(createdAt.UnixMilli(), 10)
	for _, tok := range tokens {
		if err := s.store.Set(ctx, KeyWord(tok, postID), ms, kv.NoTTL); err != nil {
			return fmt.Errorf("index post %s: %w", postID, err)
		}
	}

	raw, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("index post %s: %w", postID, err)
	}
	return s.store.Set(ctx, KeyPostTokens(postID), string(raw), kv.NoTTL)
}

func (s *searchService) RemovePost(ctx context.Context, postID string) error {
	raw, err := s.store.Get(ctx, KeyPostTokens(postID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("unindex post %s: %w", postID, err)
	}

	var tokens []string
	if err := json.Unmarshal([]byte(raw), &tokens); err != nil {
		return fmt.Errorf("unindex post %s: %w", postID, err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, tok := range tokens {
		keys = append(keys, KeyWord(tok, postID))
	}
	keys = append(keys, KeyPostTokens(postID))
	return s.store.Delete(ctx, keys...)
}

func (s *searchService) IndexUser(ctx context.Context, userID, handle, displayName string) error {
	for _, p := range prefixes(strings.ToLower(handle)) {
		if err := s.appendUser(ctx, KeyHandlePrefix(p), userID); err != nil {
			return fmt.Errorf("index user %s: %w", userID, err)
		}
	}
	for _, p := range namePrefixes(displayName) {
		if err := s.appendUser(ctx, KeyNamePrefix(p), userID); err != nil {
			return fmt.Errorf("index user %s: %w", userID, err)
		}
	}
	return nil
}

func (s *searchService) ReindexDisplayName(ctx context.Context, userID, oldName, newName string) error {
	for _, p := range namePrefixes(oldName) {
		if err := s.removeUser(ctx, KeyNamePrefix(p), userID); err != nil {
			return fmt.Errorf("reindex user %s: %w", userID, err)
		}
	}
	for _, p := range namePrefixes(newName) {
		if err := s.appendUser(ctx, KeyNamePrefix(p), userID); err != nil {
			return fmt.Errorf("reindex user %s: %w", userID, err)
		}
	}
	return nil
}

// SearchPosts intersects the per-term postings (AND semantics), joins
// live snapshots and orders by hot score with a term-frequency boost.
func (s *searchService) SearchPosts(ctx context.Context, query string, limit int) ([]posts.Snapshot, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	terms := QueryTerms(query)
	if len(terms) == 0 {
		return []posts.Snapshot{}, nil
	}

	var matched map[string]bool
	for _, term := range terms {
		scan := keyWordScan(term)
		keys, err := s.store.Keys(ctx, scan, maxKeysPerTerm)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", term, err)
		}
		ids := make(map[string]bool, len(keys))
		for _, key := range keys {
			ids[strings.TrimPrefix(key, scan)] = true
		}

		if matched == nil {
			matched = ids
		} else {
			for id := range matched {
				if !ids[id] {
					delete(matched, id)
				}
			}
		}
		if len(matched) == 0 {
			return []posts.Snapshot{}, nil
		}
	}

	ids := make([]string, 0, len(matched))
	for id := range matched {
		ids = append(ids, id)
	}
	snaps, err := s.posts.Snapshots(ctx, ids)
	if err != nil {
		return nil, err
	}

	type hit struct {
		snap  posts.Snapshot
		score float64
	}
	hits := make([]hit, 0, len(snaps))
	for _, snap := range snaps {
		base := ranking.Score(snap.LikeCount, snap.ReplyCount, snap.RepostCount, time.Since(snap.CreatedAt))
		lower := strings.ToLower(snap.Content)
		tf := 0
		for _, term := range terms {
			tf += strings.Count(lower, term)
		}
		hits = append(hits, hit{snap: snap, score: ranking.SearchScore(base, tf)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].snap.ID > hits[j].snap.ID
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]posts.Snapshot, len(hits))
	for i, h := range hits {
		out[i] = h.snap
	}
	return out, nil
}

// SearchUsers unions the handle and display-name prefix lists, handle
// hits first.
func (s *searchService) SearchUsers(ctx context.Context, query string, limit int) ([]users.ProfileView, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if runes := []rune(q); len(runes) > maxPrefixLen {
		q = string(runes[:maxPrefixLen])
	}
	if len([]rune(q)) < minPrefixLen {
		return []users.ProfileView{}, nil
	}

	byHandle, err := s.loadList(ctx, KeyHandlePrefix(q))
	if err != nil {
		return nil, err
	}
	byName, err := s.loadList(ctx, KeyNamePrefix(q))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(byHandle)+len(byName))
	ids := make([]string, 0, len(byHandle)+len(byName))
	for _, id := range append(byHandle, byName...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	if len(ids) == 0 {
		return []users.ProfileView{}, nil
	}
	return s.users.Cards(ctx, ids)
}

// namePrefixes expands a display name into the indexed prefixes of its
// words of three or more runes.
func namePrefixes(displayName string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Fields(strings.ToLower(displayName)) {
		for _, p := range prefixes(part) {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

func (s *searchService) appendUser(ctx context.Context, key, userID string) error {
	return s.group.Do(ctx, key, func(ctx context.Context) error {
		ids, err := s.loadList(ctx, key)
		if err != nil {
			return err
		}
		for _, have := range ids {
			if have == userID {
				return nil
			}
		}
		return s.saveList(ctx, key, append(ids, userID))
	})
}

func (s *searchService) removeUser(ctx context.Context, key, userID string) error {
	return s.group.Do(ctx, key, func(ctx context.Context) error {
		ids, err := s.loadList(ctx, key)
		if err != nil {
			return err
		}
		kept := ids[:0]
		for _, have := range ids {
			if have != userID {
				kept = append(kept, have)
			}
		}
		if len(kept) == len(ids) {
			return nil
		}
		if len(kept) == 0 {
			return s.store.Delete(ctx, key)
		}
		return s.saveList(ctx, key, kept)
	})
}

func (s *searchService) loadList(ctx context.Context, key string) ([]string, error) {
	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decode index list %q: %w", key, err)
	}
	return ids, nil
}

func (s *searchService) saveList(ctx context.Context, key string, ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode index list %q: %w", key, err)
	}
	return s.store.Set(ctx, key, string(raw), kv.NoTTL)
}
