package posts

import (
	"fmt"
	"time"
)

// State is the authoritative record for one post, stored under
// post-state:{id} and owned by that post's coordinator. The like and
// repost sets live here; everything feed-facing reads the denormalized
// snapshot instead.
type State struct {
	ID       string `json:"id"`
	AuthorID string `json:"authorId"`
	Author   Author `json:"author"`

	Content   string   `json:"content"`
	MediaURLs []string `json:"mediaUrls,omitempty"`

	// At most one of these is set. A repost of a repost stores the leaf
	// original, never a chain.
	ReplyToID  string `json:"replyToId,omitempty"`
	QuoteOfID  string `json:"quoteOfId,omitempty"`
	RepostOfID string `json:"repostOfId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	Counters  Counters  `json:"counters"`

	Likes   []string `json:"likes"`
	Reposts []string `json:"reposts"`

	IsDeleted bool       `json:"isDeleted"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`

	IsTakenDown     bool       `json:"isTakenDown"`
	TakenDownAt     *time.Time `json:"takenDownAt,omitempty"`
	TakenDownReason string     `json:"takenDownReason,omitempty"`
	TakenDownBy     string     `json:"takenDownBy,omitempty"`
}

// Author is the card captured at creation time. A later display-name
// change does not rewrite old posts.
type Author struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Counters mirror the set sizes plus the bump-only reply/quote counts.
type Counters struct {
	Likes   int `json:"likes"`
	Replies int `json:"replies"`
	Reposts int `json:"reposts"`
	Quotes  int `json:"quotes"`
}

// Snapshot is the denormalized read model under post:{id}. Feeds,
// timelines and search join against it; it is refreshed by the
// coordinator on every mutation. A tombstoned post keeps its snapshot
// with flags set, content blanked and counters zeroed.
type Snapshot struct {
	ID       string `json:"id"`
	AuthorID string `json:"authorId"`
	Author   Author `json:"author"`

	Content   string   `json:"content"`
	MediaURLs []string `json:"mediaUrls,omitempty"`

	ReplyToID  string `json:"replyToId,omitempty"`
	QuoteOfID  string `json:"quoteOfId,omitempty"`
	RepostOfID string `json:"repostOfId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`

	LikeCount   int `json:"likeCount"`
	ReplyCount  int `json:"replyCount"`
	RepostCount int `json:"repostCount"`
	QuoteCount  int `json:"quoteCount"`

	IsDeleted   bool `json:"isDeleted,omitempty"`
	IsTakenDown bool `json:"isTakenDown,omitempty"`
}

// Gone reports whether the post is filtered from all reads and feeds.
func (s *Snapshot) Gone() bool { return s.IsDeleted || s.IsTakenDown }

// View is a snapshot enriched for one response: referenced posts joined
// one level deep (the leaf invariant caps the depth) and viewer edges
// filled when a viewer is known.
type View struct {
	Snapshot
	RepostOf *Snapshot `json:"repostOf,omitempty"`
	QuoteOf  *Snapshot `json:"quoteOf,omitempty"`

	HasLiked    *bool `json:"hasLiked,omitempty"`
	HasReposted *bool `json:"hasReposted,omitempty"`
}

// Thread is the response for the thread endpoint: the chain of
// ancestors root-first, the subject, and its direct replies.
type Thread struct {
	Ancestors []View `json:"ancestors"`
	Post      View   `json:"post"`
	Replies   []View `json:"replies"`
}

// CreateRequest is the input for creating a post, reply, quote or
// repost.
type CreateRequest struct {
	Content    string   `json:"content"`
	MediaURLs  []string `json:"mediaUrls"`
	ReplyToID  string   `json:"replyToId"`
	QuoteOfID  string   `json:"quoteOfId"`
	RepostOfID string   `json:"repostOfId"`
}

// Page is a cursor-bounded slice of post views.
type Page struct {
	Posts      []View `json:"posts"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

const maxMediaPerPost = 4

func (st *State) snapshot() Snapshot {
	snap := Snapshot{
		ID:          st.ID,
		AuthorID:    st.AuthorID,
		Author:      st.Author,
		Content:     st.Content,
		MediaURLs:   st.MediaURLs,
		ReplyToID:   st.ReplyToID,
		QuoteOfID:   st.QuoteOfID,
		RepostOfID:  st.RepostOfID,
		CreatedAt:   st.CreatedAt,
		LikeCount:   st.Counters.Likes,
		ReplyCount:  st.Counters.Replies,
		RepostCount: st.Counters.Reposts,
		QuoteCount:  st.Counters.Quotes,
		IsDeleted:   st.IsDeleted,
		IsTakenDown: st.IsTakenDown,
	}
	if snap.IsDeleted || snap.IsTakenDown {
		snap.Content = ""
		snap.MediaURLs = nil
		snap.LikeCount = 0
		snap.ReplyCount = 0
		snap.RepostCount = 0
		snap.QuoteCount = 0
	}
	return snap
}

// Key builders for the post keyspace.
func KeyState(id string) string           { return fmt.Sprintf("post-state:%s", id) }
func KeySnapshot(id string) string        { return fmt.Sprintf("post:%s", id) }
func KeyUserPosts(userID string) string   { return fmt.Sprintf("user-posts:%s", userID) }
func KeyReplies(postID string) string     { return fmt.Sprintf("replies:%s", postID) }
