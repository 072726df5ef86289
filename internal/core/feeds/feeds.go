// Package feeds owns the per-user home feed: a bounded, newest-first
// list of entries written by the fan-out worker and paged by the
// timeline. Each user's list is mutated under that user's lock only.
package feeds

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"Wire/internal/core/posts"
)

// Source tags why an entry landed in a feed.
type Source string

const (
	// SourceOwn marks the author's copy of their own post.
	SourceOwn Source = "own"
	// SourceFollow marks a post delivered through a follow edge.
	SourceFollow Source = "follow"
	// SourceFoF marks a ranked explore candidate merged in at read time.
	SourceFoF Source = "fof"
)

// feedCap is the retained entry count per user. Older entries are
// evicted on insert.
const feedCap = 5000

// Entry is one feed slot. Timestamp is the post's creation time, which
// is also the sort key.
type Entry struct {
	PostID    string    `json:"postId"`
	AuthorID  string    `json:"authorId"`
	Timestamp time.Time `json:"timestamp"`
	Source    Source    `json:"source"`
}

// Item is an entry joined with its post snapshot for page assembly.
type Item struct {
	Entry
	Post posts.Snapshot `json:"post"`
}

// Page is one feed page.
type Page struct {
	Entries    []Item `json:"entries"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// PageRequest carries the read-side filters. BlockedIDs drops entries
// by author before the join; MutedWords drops by content substring
// after it.
type PageRequest struct {
	Limit      int
	Cursor     string
	BlockedIDs []string
	MutedWords []string
}

// KeyFeed is the KV key holding a user's entry list.
func KeyFeed(userID string) string { return fmt.Sprintf("feed:%s", userID) }

// Cursor renders the (timestamp, postId) position of an entry. The
// timeline uses it to resume mid-page when the merge consumed fewer
// followed entries than the page held. Timestamp alone is not enough:
// two posts can share a millisecond, and an index-based cursor would
// skip or repeat rows as filters churn between pages.
func (e Entry) Cursor() string {
	return fmt.Sprintf("%d.%s", e.Timestamp.UnixMilli(), e.PostID)
}

func decodeCursor(cursor string) (ms int64, postID string, err error) {
	raw, id, ok := strings.Cut(cursor, ".")
	if !ok || id == "" {
		return 0, "", ErrInvalidCursor
	}
	ms, err = strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, "", ErrInvalidCursor
	}
	return ms, id, nil
}

// before reports whether e sorts after the cursor position in the
// newest-first order, i.e. whether a page resumed at (ms, postID)
// should include e.
func (e Entry) before(ms int64, postID string) bool {
	ets := e.Timestamp.UnixMilli()
	if ets != ms {
		return ets < ms
	}
	return e.PostID < postID
}
