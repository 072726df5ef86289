package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"Wire/internal/coord"
	"Wire/internal/kv"
)

// Coordinator owns the inbox lists. Writes to one recipient's inbox
// serialize on the recipient's list key.
type Coordinator struct {
	store kv.Store
	group *coord.Group
	log   zerolog.Logger
	cap   int
}

func NewCoordinator(store kv.Store, group *coord.Group, log zerolog.Logger) *Coordinator {
	return &Coordinator{store: store, group: group, log: log, cap: listCap}
}

// Append stores the notification blob on its TTL and prepends its id to
// the inbox list, deleting blobs that fall off the cap.
func (c *Coordinator) Append(ctx context.Context, n Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification %s: %w", n.ID, err)
	}

	return c.group.Do(ctx, KeyList(n.UserID), func(ctx context.Context) error {
		if err := c.store.Set(ctx, KeyNotification(n.UserID, n.ID), string(raw), notificationTTL); err != nil {
			return err
		}

		ids, err := c.ids(ctx, n.UserID)
		if err != nil {
			return err
		}
		ids = append([]string{n.ID}, ids...)

		if len(ids) > c.cap {
			evicted := ids[c.cap:]
			ids = ids[:c.cap]
			keys := make([]string, len(evicted))
			for i, id := range evicted {
				keys[i] = KeyNotification(n.UserID, id)
			}
			if err := c.store.Delete(ctx, keys...); err != nil {
				c.log.Warn().Err(err).Str("userId", n.UserID).Msg("evicted notification cleanup failed")
			}
		}
		return c.saveIDs(ctx, n.UserID, ids)
	})
}

// IDs returns the inbox id list, newest first.
func (c *Coordinator) IDs(ctx context.Context, userID string) ([]string, error) {
	return c.ids(ctx, userID)
}

// Load fetches notification blobs preserving id order. Expired or
// undecodable entries are skipped.
func (c *Coordinator) Load(ctx context.Context, userID string, ids []string) ([]Notification, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = KeyNotification(userID, id)
	}
	found, err := c.store.MGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]Notification, 0, len(found))
	for i, id := range ids {
		raw, ok := found[keys[i]]
		if !ok {
			continue
		}
		var n Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			c.log.Warn().Err(err).Str("notificationId", id).Msg("undecodable notification skipped")
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// MarkRead flips the read flag, keeping the blob's remaining lifetime.
func (c *Coordinator) MarkRead(ctx context.Context, userID, id string) error {
	return c.group.Do(ctx, KeyList(userID), func(ctx context.Context) error {
		n, err := c.loadOne(ctx, userID, id)
		if err != nil {
			return err
		}
		if n.Read {
			return nil
		}
		n.Read = true
		return c.saveOne(ctx, *n)
	})
}

// MarkAllRead flips every unread notification in the inbox.
func (c *Coordinator) MarkAllRead(ctx context.Context, userID string) error {
	return c.group.Do(ctx, KeyList(userID), func(ctx context.Context) error {
		ids, err := c.ids(ctx, userID)
		if err != nil {
			return err
		}
		all, err := c.Load(ctx, userID, ids)
		if err != nil {
			return err
		}
		for _, n := range all {
			if n.Read {
				continue
			}
			n.Read = true
			if err := c.saveOne(ctx, n); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Coordinator) loadOne(ctx context.Context, userID, id string) (*Notification, error) {
	raw, err := c.store.Get(ctx, KeyNotification(userID, id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}
	var n Notification
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return nil, fmt.Errorf("decode notification %s: %w", id, err)
	}
	return &n, nil
}

func (c *Coordinator) saveOne(ctx context.Context, n Notification) error {
	ttl := remainingTTL(n.CreatedAt)
	if ttl <= 0 {
		if err := c.store.Delete(ctx, KeyNotification(n.UserID, n.ID)); err != nil {
			return err
		}
		return ErrNotificationNotFound
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification %s: %w", n.ID, err)
	}
	return c.store.Set(ctx, KeyNotification(n.UserID, n.ID), string(raw), ttl)
}

func (c *Coordinator) ids(ctx context.Context, userID string) ([]string, error) {
	raw, err := c.store.Get(ctx, KeyList(userID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decode notification list %s: %w", userID, err)
	}
	return ids, nil
}

func (c *Coordinator) saveIDs(ctx context.Context, userID string, ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode notification list %s: %w", userID, err)
	}
	return c.store.Set(ctx, KeyList(userID), string(raw), kv.NoTTL)
}
