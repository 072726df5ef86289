package posts

import (
	"context"
	"time"
)

// Service is the post domain surface consumed by the API handlers and
// the timeline service.
type Service interface {
	// Create validates and persists a post, reply, quote or repost,
	// enqueues the fan-out event, bumps the author's post count and
	// fires mention/engagement notifications.
	Create(ctx context.Context, authorID string, req CreateRequest) (*View, error)

	// Get returns one post, joined one level deep. Tombstoned posts
	// surface as ErrPostNotFound.
	Get(ctx context.Context, id, viewerID string) (*View, error)
	Thread(ctx context.Context, id, viewerID string) (*Thread, error)

	// Delete soft-deletes an authored post and enqueues the feed sweep.
	Delete(ctx context.Context, id, actorID string) error

	// Takedown is the moderation tombstone; it never touches the
	// author's post count.
	Takedown(ctx context.Context, id, adminID, reason string) error

	Like(ctx context.Context, id, userID string) (int, error)
	Unlike(ctx context.Context, id, userID string) (int, error)
	Repost(ctx context.Context, id, userID string) (*View, error)

	// Snapshots bulk-loads post snapshots for feed assembly, in input
	// order, skipping missing and tombstoned entries.
	Snapshots(ctx context.Context, ids []string) ([]Snapshot, error)

	// Authored pages through a user's posts. The variants filter the
	// same index: replies only, media only.
	Authored(ctx context.Context, userID string, limit int, cursor string) (*Page, error)
	AuthoredReplies(ctx context.Context, userID string, limit int, cursor string) (*Page, error)
	AuthoredMedia(ctx context.Context, userID string, limit int, cursor string) (*Page, error)

	// Liked resolves a liked-post id list to views, preserving order.
	Liked(ctx context.Context, ids []string, viewerID string) ([]View, error)
}

// UserOps is the slice of the users service the post domain needs.
type UserOps interface {
	Get(ctx context.Context, id string) (*UserCard, error)
	ResolveHandle(ctx context.Context, handle string) (string, error)
	IncrementPostCount(ctx context.Context, id string) error
	DecrementPostCount(ctx context.Context, id string) error
	RecordLike(ctx context.Context, userID, postID string) error
	ForgetLike(ctx context.Context, userID, postID string) error
}

// UserCard is the author info captured into each post.
type UserCard struct {
	ID          string
	Handle      string
	DisplayName string
	AvatarURL   string
}

// Notifier delivers engagement notifications; implemented by the
// notifications service. kind is one of like, reply, repost, quote,
// mention.
type Notifier interface {
	NotifyEngagement(ctx context.Context, kind, recipientID, actorID, postID, preview string) error
}

// Indexer maintains the full-text post index.
type Indexer interface {
	IndexPost(ctx context.Context, postID, content string, createdAt time.Time) error
	RemovePost(ctx context.Context, postID string) error
}

// IDGenerator mints time-ordered post ids.
type IDGenerator interface {
	Generate() (string, error)
}

// EventPublisher enqueues fan-out events; implemented by the queue.
type EventPublisher interface {
	PublishNewPost(ctx context.Context, postID, authorID string) error
	PublishDeletePost(ctx context.Context, postID, authorID string) error
}
