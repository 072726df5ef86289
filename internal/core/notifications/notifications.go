// Package notifications stores and serves per-user notification
// inboxes. Notifications expire 30 days after creation and each inbox
// keeps its 1000 most recent entries; live delivery over websockets is
// best-effort on top of the stored copy.
package notifications

import (
	"fmt"
	"time"
)

// Notification kinds.
const (
	KindLike    = "like"
	KindReply   = "reply"
	KindFollow  = "follow"
	KindMention = "mention"
	KindRepost  = "repost"
	KindQuote   = "quote"
)

const (
	notificationTTL = 30 * 24 * time.Hour
	listCap         = 1000
	previewLimit    = 100
)

// Actor is the sender snapshot frozen at notification time, so the
// inbox renders without a join even after the actor renames.
type Actor struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Notification is one inbox entry.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Kind      string    `json:"type"`
	ActorID   string    `json:"actorId"`
	Actor     Actor     `json:"actor"`
	PostID    string    `json:"postId,omitempty"`
	Preview   string    `json:"contentPreview,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Read      bool      `json:"read"`
}

// Page is one inbox page.
type Page struct {
	Notifications []Notification `json:"notifications"`
	NextCursor    string         `json:"nextCursor,omitempty"`
	HasMore       bool           `json:"hasMore"`
}

// KeyNotification holds one notification blob, expiring on its own TTL.
func KeyNotification(userID, id string) string {
	return fmt.Sprintf("notifications:%s:%s", userID, id)
}

// KeyList holds the recipient's id list, newest first.
func KeyList(userID string) string { return fmt.Sprintf("notification_list:%s", userID) }

func validKind(kind string) bool {
	switch kind {
	case KindLike, KindReply, KindFollow, KindMention, KindRepost, KindQuote:
		return true
	}
	return false
}

// remainingTTL is the notification's unexpired lifetime. Re-saving a
// blob (read flag flips) must carry this forward, not restart the 30
// days.
func remainingTTL(createdAt time.Time) time.Duration {
	return notificationTTL - time.Since(createdAt)
}
