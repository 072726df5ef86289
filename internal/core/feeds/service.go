package feeds

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"Wire/internal/core/posts"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	joinBatchSize    = 100
)

type feedService struct {
	coord *Coordinator
	posts PostReader
	log   zerolog.Logger
}

// NewService wires the feed domain over its coordinator and the post
// snapshot reader used for page joins.
func NewService(coordinator *Coordinator, reader PostReader, log zerolog.Logger) Service {
	return &feedService{coord: coordinator, posts: reader, log: log}
}

func (s *feedService) Add(ctx context.Context, userID string, e Entry) error {
	return s.coord.Add(ctx, userID, e)
}

func (s *feedService) Remove(ctx context.Context, userID, postID string) error {
	return s.coord.Remove(ctx, userID, postID)
}

func (s *feedService) Clear(ctx context.Context, userID string) error {
	return s.coord.Clear(ctx, userID)
}

// Page walks the entry list from the cursor position, drops blocked
// authors, joins snapshots in batches and drops tombstoned or muted
// posts, then fills up to the limit. The cursor is position-based on
// (timestamp, postId), so entries filtered out between requests shift
// nothing.
func (s *feedService) Page(ctx context.Context, userID string, req PageRequest) (*Page, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	entries, err := s.coord.Entries(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Cursor != "" {
		ms, postID, err := decodeCursor(req.Cursor)
		if err != nil {
			return nil, err
		}
		for len(entries) > 0 && !entries[0].before(ms, postID) {
			entries = entries[1:]
		}
	}

	blocked := make(map[string]bool, len(req.BlockedIDs))
	for _, id := range req.BlockedIDs {
		blocked[id] = true
	}
	candidates := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !blocked[e.AuthorID] {
			candidates = append(candidates, e)
		}
	}

	page := &Page{Entries: []Item{}}
	for start := 0; start < len(candidates) && !page.HasMore; start += joinBatchSize {
		end := start + joinBatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		ids := make([]string, len(batch))
		for i, e := range batch {
			ids[i] = e.PostID
		}
		snaps, err := s.posts.Snapshots(ctx, ids)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]posts.Snapshot, len(snaps))
		for _, snap := range snaps {
			byID[snap.ID] = snap
		}

		for _, e := range batch {
			snap, ok := byID[e.PostID]
			if !ok {
				continue
			}
			if ContainsMutedWord(snap.Content, req.MutedWords) {
				continue
			}
			if len(page.Entries) == limit {
				page.HasMore = true
				break
			}
			page.Entries = append(page.Entries, Item{Entry: e, Post: snap})
		}
	}

	if n := len(page.Entries); n > 0 {
		page.NextCursor = page.Entries[n-1].Cursor()
	}
	return page, nil
}

// ContainsMutedWord reports a case-insensitive substring hit of any
// muted word in content. The timeline applies the same check to explore
// candidates, which never pass through Page.
func ContainsMutedWord(content string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	lower := strings.ToLower(content)
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
