package notifications

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"Wire/internal/identity"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	loadBatchSize    = 100
)

type notificationService struct {
	coord  *Coordinator
	actors ActorSource
	ids    IDGenerator
	pusher Pusher
	log    zerolog.Logger
}

// NewService wires the notification domain. pusher may be nil when no
// realtime gateway is running.
func NewService(coordinator *Coordinator, actors ActorSource, ids IDGenerator, pusher Pusher, log zerolog.Logger) Service {
	return &notificationService{coord: coordinator, actors: actors, ids: ids, pusher: pusher, log: log}
}

func (s *notificationService) NotifyFollow(ctx context.Context, recipientID, actorID string) error {
	return s.create(ctx, KindFollow, recipientID, actorID, "", "")
}

func (s *notificationService) NotifyEngagement(ctx context.Context, kind, recipientID, actorID, postID, preview string) error {
	return s.create(ctx, kind, recipientID, actorID, postID, preview)
}

func (s *notificationService) create(ctx context.Context, kind, recipientID, actorID, postID, preview string) error {
	if !validKind(kind) {
		return ErrUnknownKind
	}
	if recipientID == actorID {
		return nil
	}

	cards, err := s.actors.Cards(ctx, []string{actorID})
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		// The actor vanished between action and notification; nothing
		// worth storing.
		s.log.Warn().Str("actorId", actorID).Msg("notification actor missing")
		return nil
	}
	actor := cards[0]

	id, err := s.ids.Generate()
	if err != nil {
		return err
	}

	n := Notification{
		ID:      id,
		UserID:  recipientID,
		Kind:    kind,
		ActorID: actorID,
		Actor: Actor{
			Handle:      actor.Handle,
			DisplayName: actor.DisplayName,
			AvatarURL:   actor.AvatarURL,
		},
		PostID:    postID,
		Preview:   truncatePreview(preview),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.coord.Append(ctx, n); err != nil {
		return err
	}

	if s.pusher != nil {
		s.pusher.Push(recipientID, n)
	}
	return nil
}

// List pages the inbox newest-first. Expired entries surface as gaps in
// the id list, so pages fill from successive batches until the limit.
func (s *notificationService) List(ctx context.Context, userID string, limit int, cursor string) (*Page, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	ids, err := s.coord.IDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cursor != "" {
		if _, err := identity.Parse(cursor); err != nil {
			return nil, ErrInvalidCursor
		}
		for len(ids) > 0 && identity.Compare(ids[0], cursor) >= 0 {
			ids = ids[1:]
		}
	}

	page := &Page{Notifications: []Notification{}}
	for start := 0; start < len(ids) && !page.HasMore; start += loadBatchSize {
		end := start + loadBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch, err := s.coord.Load(ctx, userID, ids[start:end])
		if err != nil {
			return nil, err
		}
		for _, n := range batch {
			if len(page.Notifications) == limit {
				page.HasMore = true
				break
			}
			page.Notifications = append(page.Notifications, n)
		}
	}

	if n := len(page.Notifications); n > 0 {
		page.NextCursor = page.Notifications[n-1].ID
	}
	return page, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	ids, err := s.coord.IDs(ctx, userID)
	if err != nil {
		return 0, err
	}
	count := 0
	for start := 0; start < len(ids); start += loadBatchSize {
		end := start + loadBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch, err := s.coord.Load(ctx, userID, ids[start:end])
		if err != nil {
			return 0, err
		}
		for _, n := range batch {
			if !n.Read {
				count++
			}
		}
	}
	return count, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, id string) error {
	return s.coord.MarkRead(ctx, userID, id)
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.coord.MarkAllRead(ctx, userID)
}

func truncatePreview(preview string) string {
	runes := []rune(preview)
	if len(runes) <= previewLimit {
		return preview
	}
	return string(runes[:previewLimit])
}
