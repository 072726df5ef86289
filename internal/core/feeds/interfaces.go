package feeds

import (
	"context"

	"Wire/internal/core/posts"
)

// Service is the feed surface consumed by the fan-out worker (writes)
// and the timeline (reads).
type Service interface {
	// Add inserts an entry in newest-first position. A postId already
	// present is a no-op; the oldest entry is evicted past capacity.
	Add(ctx context.Context, userID string, e Entry) error

	// Remove drops every entry for postID.
	Remove(ctx context.Context, userID, postID string) error

	// Clear wipes the feed.
	Clear(ctx context.Context, userID string) error

	// Page returns one filtered, snapshot-joined page.
	Page(ctx context.Context, userID string, req PageRequest) (*Page, error)
}

// PostReader joins feed entries with live post snapshots. Tombstoned
// and missing posts are simply absent from the result.
type PostReader interface {
	Snapshots(ctx context.Context, ids []string) ([]posts.Snapshot, error)
}
