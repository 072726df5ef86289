package timeline

import (
	"context"

	"Wire/internal/core/feeds"
	"Wire/internal/core/posts"
	"Wire/internal/core/ranking"
	"Wire/internal/core/users"
)

// Service is the read surface behind the feed endpoints.
type Service interface {
	// Home returns the merged followed + explore page.
	Home(ctx context.Context, userID string, req Request) (*Response, error)

	// Chronological returns the followed feed only, newest first.
	Chronological(ctx context.Context, userID string, req Request) (*Response, error)
}

// FeedSource pages the followed feed. feeds.Service satisfies it.
type FeedSource interface {
	Page(ctx context.Context, userID string, req feeds.PageRequest) (*feeds.Page, error)
}

// ExploreSource serves the ranked candidate cache. ranking.Chore
// satisfies it.
type ExploreSource interface {
	Explore(ctx context.Context) ([]ranking.Candidate, error)
}

// UserSource provides the one batched relations consult per page.
// users.Service satisfies it.
type UserSource interface {
	Relations(ctx context.Context, id string) (*users.Relations, error)
}

// PostSource joins explore candidates with live snapshots.
// posts.Service satisfies it.
type PostSource interface {
	Snapshots(ctx context.Context, ids []string) ([]posts.Snapshot, error)
}
