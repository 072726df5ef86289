package users

import "context"

// Service is the user domain surface consumed by the API handlers, the
// timeline service and the fan-out worker.
type Service interface {
	// Initialize creates the authoritative blob for a new user. It is
	// the only way a user comes into existence; signup calls it after
	// the handle and email reservations succeed.
	Initialize(ctx context.Context, st State) error

	Get(ctx context.Context, id string) (*State, error)
	ResolveHandle(ctx context.Context, handle string) (string, error)

	// Profile reads the public card, serving the profile:{handle}
	// snapshot when fresh. viewerID may be empty for anonymous reads.
	Profile(ctx context.Context, handle, viewerID string) (*ProfileView, error)
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*ProfileView, error)

	GetSettings(ctx context.Context, id string) (*Settings, error)
	UpdateSettings(ctx context.Context, id string, upd SettingsUpdate) (*Settings, error)

	// Follow and Unfollow maintain both directed sets: the actor's
	// following list and the target's follower list.
	Follow(ctx context.Context, userID, targetID string) error
	Unfollow(ctx context.Context, userID, targetID string) error
	Block(ctx context.Context, userID, targetID string) error
	Unblock(ctx context.Context, userID, targetID string) error

	IsFollowing(ctx context.Context, userID, targetID string) (bool, error)
	IsBlocked(ctx context.Context, userID, targetID string) (bool, error)
	IsBanned(ctx context.Context, id string) (bool, error)
	IsAdmin(ctx context.Context, id string) (bool, error)

	// Relations is the one batched consult the timeline makes per page.
	Relations(ctx context.Context, id string) (*Relations, error)
	FollowerIDs(ctx context.Context, id string) ([]string, error)
	Cards(ctx context.Context, ids []string) ([]ProfileView, error)

	// Followers and Following page through the relationship sets as
	// profile cards. The self edge is part of both sets and is listed;
	// counts and listings stay consistent.
	Followers(ctx context.Context, id string, limit int, cursor string) (*CardPage, error)
	Following(ctx context.Context, id string, limit int, cursor string) (*CardPage, error)
	BlockedUsers(ctx context.Context, id string) ([]ProfileView, error)

	IncrementPostCount(ctx context.Context, id string) error
	DecrementPostCount(ctx context.Context, id string) error

	Ban(ctx context.Context, id, reason string) error
	Unban(ctx context.Context, id string) error
	SetAdmin(ctx context.Context, id string, admin bool) error

	RecordLogin(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id string, v Verifier) error

	// RecordLike and ForgetLike maintain the recency-ordered liked-posts
	// index consulted by the likes listing.
	RecordLike(ctx context.Context, userID, postID string) error
	ForgetLike(ctx context.Context, userID, postID string) error
	LikedPosts(ctx context.Context, id string, limit int) ([]string, error)
}

// DirectoryIndexer keeps the user search index in step with handle and
// display-name changes. Implemented by the search package; wired at
// startup.
type DirectoryIndexer interface {
	IndexUser(ctx context.Context, userID, handle, displayName string) error
	ReindexDisplayName(ctx context.Context, userID, oldName, newName string) error
}

// Notifier delivers follow notifications. Implemented by the
// notifications service; wired at startup.
type Notifier interface {
	NotifyFollow(ctx context.Context, recipientID, actorID string) error
}
