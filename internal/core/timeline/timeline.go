// Package timeline assembles the home view: the user's followed feed
// interleaved with ranked explore candidates in a fixed two-to-one
// pattern, plus the plain chronological variant.
package timeline

import (
	"Wire/internal/core/feeds"
	"Wire/internal/core/posts"
)

// Post is one timeline slot: the public snapshot tagged with how it got
// here (own post, follow edge, or explore candidate).
type Post struct {
	posts.Snapshot
	Source feeds.Source `json:"source"`
}

// Request carries the page parameters from the handler.
type Request struct {
	Limit  int
	Cursor string
}

// Response is one assembled page. NextCursor resumes the followed
// stream; explore slots are re-drawn fresh on every page.
type Response struct {
	Posts      []Post `json:"posts"`
	NextCursor string `json:"cursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}
