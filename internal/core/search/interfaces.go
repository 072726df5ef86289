package search

import (
	"context"
	"time"

	"Wire/internal/core/posts"
	"Wire/internal/core/users"
)

// Service is the search surface. The indexing half lines up with the
// indexer collaborators the post and user domains declare; the lookup
// half serves the search endpoints.
type Service interface {
	IndexPost(ctx context.Context, postID, content string, createdAt time.Time) error
	RemovePost(ctx context.Context, postID string) error

	IndexUser(ctx context.Context, userID, handle, displayName string) error
	ReindexDisplayName(ctx context.Context, userID, oldName, newName string) error

	// SearchPosts returns live posts matching every query term, best
	// score first.
	SearchPosts(ctx context.Context, query string, limit int) ([]posts.Snapshot, error)

	// SearchUsers returns cards for users whose handle or display name
	// starts with the query.
	SearchUsers(ctx context.Context, query string, limit int) ([]users.ProfileView, error)
}

// PostReader joins matched ids with live snapshots.
type PostReader interface {
	Snapshots(ctx context.Context, ids []string) ([]posts.Snapshot, error)
}

// UserReader joins matched ids with profile cards.
type UserReader interface {
	Cards(ctx context.Context, ids []string) ([]users.ProfileView, error)
}
