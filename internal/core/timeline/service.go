package timeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"Wire/internal/core/feeds"
	"Wire/internal/core/posts"
	"Wire/internal/core/users"
)

const (
	defaultPageLimit = 20
	// maxPageLimit stays at half the feed page cap because the home
	// merge over-fetches twice the limit from the followed stream.
	maxPageLimit = 50

	// exploreSlack pads the candidate draw so muted-word and tombstone
	// drops after the join still leave enough to fill the explore slots.
	exploreSlack = 5
)

type timelineService struct {
	feeds   FeedSource
	explore ExploreSource
	users   UserSource
	posts   PostSource
	log     zerolog.Logger
}

func NewService(feedSrc FeedSource, exploreSrc ExploreSource, userSrc UserSource, postSrc PostSource, log zerolog.Logger) Service {
	return &timelineService{feeds: feedSrc, explore: exploreSrc, users: userSrc, posts: postSrc, log: log}
}

func (s *timelineService) Home(ctx context.Context, userID string, req Request) (*Response, error) {
	limit := clampLimit(req.Limit)

	rel, err := s.users.Relations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading relations: %w", err)
	}

	fPage, err := s.feeds.Page(ctx, userID, feeds.PageRequest{
		Limit:      2 * limit,
		Cursor:     req.Cursor,
		BlockedIDs: rel.Blocked,
		MutedWords: rel.MutedWords,
	})
	if err != nil {
		return nil, fmt.Errorf("paging followed feed: %w", err)
	}

	explorePosts, err := s.explorePosts(ctx, userID, rel, limit)
	if err != nil {
		// The home view degrades to followed-only rather than failing.
		s.log.Warn().Err(err).Str("userId", userID).Msg("explore candidates unavailable")
		explorePosts = nil
	}

	merged, fUsed, _ := merge(fPage.Entries, explorePosts, limit)

	// The cursor tracks the followed stream only; the explore side is
	// uncursored and re-drawn each page, so it also cannot drive
	// HasMore.
	cursor := req.Cursor
	if fUsed > 0 {
		cursor = fPage.Entries[fUsed-1].Cursor()
	}
	return &Response{
		Posts:      merged,
		NextCursor: cursor,
		HasMore:    fPage.HasMore || fUsed < len(fPage.Entries),
	}, nil
}

func (s *timelineService) Chronological(ctx context.Context, userID string, req Request) (*Response, error) {
	limit := clampLimit(req.Limit)

	rel, err := s.users.Relations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading relations: %w", err)
	}

	page, err := s.feeds.Page(ctx, userID, feeds.PageRequest{
		Limit:      limit,
		Cursor:     req.Cursor,
		BlockedIDs: rel.Blocked,
		MutedWords: rel.MutedWords,
	})
	if err != nil {
		return nil, fmt.Errorf("paging followed feed: %w", err)
	}

	out := make([]Post, 0, len(page.Entries))
	for _, it := range page.Entries {
		out = append(out, Post{Snapshot: it.Post, Source: it.Source})
	}
	return &Response{Posts: out, NextCursor: page.NextCursor, HasMore: page.HasMore}, nil
}

// explorePosts draws ranked candidates the user does not already follow,
// joins them with live snapshots, and drops muted or vanished posts.
func (s *timelineService) explorePosts(ctx context.Context, userID string, rel *users.Relations, limit int) ([]Post, error) {
	need := (limit+2)/3 + exploreSlack

	candidates, err := s.explore.Explore(ctx)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	following := make(map[string]bool, len(rel.Following))
	for _, id := range rel.Following {
		following[id] = true
	}
	blocked := make(map[string]bool, len(rel.Blocked))
	for _, id := range rel.Blocked {
		blocked[id] = true
	}

	ids := make([]string, 0, need)
	for _, c := range candidates {
		if c.AuthorID == userID || following[c.AuthorID] || blocked[c.AuthorID] {
			continue
		}
		ids = append(ids, c.PostID)
		if len(ids) == need {
			break
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	snaps, err := s.posts.Snapshots(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]posts.Snapshot, len(snaps))
	for _, snap := range snaps {
		byID[snap.ID] = snap
	}

	out := make([]Post, 0, len(ids))
	for _, id := range ids {
		snap, ok := byID[id]
		if !ok {
			continue
		}
		if feeds.ContainsMutedWord(snap.Content, rel.MutedWords) {
			continue
		}
		out = append(out, Post{Snapshot: snap, Source: feeds.SourceFoF})
	}
	return out, nil
}

// merge interleaves the two streams: output slots 0 and 1 of every
// three take followed entries, slot 2 takes an explore candidate. When
// one side runs dry the other fills the rest.
func merge(followed []feeds.Item, explore []Post, limit int) (out []Post, fUsed, xUsed int) {
	out = make([]Post, 0, limit)
	for len(out) < limit && (fUsed < len(followed) || xUsed < len(explore)) {
		takeFollowed := fUsed < len(followed) && (xUsed >= len(explore) || len(out)%3 != 2)
		if takeFollowed {
			it := followed[fUsed]
			out = append(out, Post{Snapshot: it.Post, Source: it.Source})
			fUsed++
			continue
		}
		out = append(out, explore[xUsed])
		xUsed++
	}
	return out, fUsed, xUsed
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}
