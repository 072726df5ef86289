package notifications

import (
	"context"

	"Wire/internal/core/users"
)

// Service is the notification surface. NotifyFollow and
// NotifyEngagement line up with what the user and post domains expect
// from their notifier collaborators, so this service plugs in directly.
type Service interface {
	NotifyFollow(ctx context.Context, recipientID, actorID string) error
	NotifyEngagement(ctx context.Context, kind, recipientID, actorID, postID, preview string) error

	List(ctx context.Context, userID string, limit int, cursor string) (*Page, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) error
}

// ActorSource resolves sender cards for the frozen actor snapshot.
// users.Service satisfies it.
type ActorSource interface {
	Cards(ctx context.Context, ids []string) ([]users.ProfileView, error)
}

// Pusher hands a stored notification to the recipient's live
// connections. Best-effort: the inbox read is the source of truth.
type Pusher interface {
	Push(userID string, n Notification)
}

// IDGenerator mints notification ids.
type IDGenerator interface {
	Generate() (string, error)
}
