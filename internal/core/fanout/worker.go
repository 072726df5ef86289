// Package fanout consumes post lifecycle events and writes the results
// into follower feeds and live connections. Every step is idempotent;
// the queue redelivers on failure.
package fanout

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"Wire/internal/core/feeds"
	"Wire/internal/core/posts"
	"Wire/internal/metrics"
	"Wire/internal/queue"
)

// UserSource lists a user's followers. users.Service satisfies it.
type UserSource interface {
	FollowerIDs(ctx context.Context, id string) ([]string, error)
}

// PostSource reads live post snapshots. posts.Service satisfies it.
type PostSource interface {
	Snapshots(ctx context.Context, ids []string) ([]posts.Snapshot, error)
}

// Pusher delivers a post to a user's live connections. Best-effort; the
// realtime gateway satisfies it.
type Pusher interface {
	BroadcastPost(userID string, snap posts.Snapshot)
}

// Worker turns one queue event into per-follower feed writes and
// pushes, with bounded parallelism across followers.
type Worker struct {
	feeds       feeds.Service
	users       UserSource
	posts       PostSource
	pusher      Pusher
	parallelism int
	log         zerolog.Logger
}

func NewWorker(feedSvc feeds.Service, users UserSource, postSvc PostSource, pusher Pusher, parallelism int, log zerolog.Logger) *Worker {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Worker{feeds: feedSvc, users: users, posts: postSvc, pusher: pusher, parallelism: parallelism, log: log}
}

// HandleEvent dispatches one delivery. An error return schedules a
// redelivery; partial progress is repeatable because feed adds dedupe
// and removes are no-ops on absent entries.
func (w *Worker) HandleEvent(ctx context.Context, ev queue.Event) error {
	started := time.Now()
	var err error
	switch ev.Kind {
	case queue.EventNewPost:
		err = w.deliverNew(ctx, ev)
	case queue.EventDeletePost:
		err = w.deliverDelete(ctx, ev)
	default:
		w.log.Warn().Str("kind", ev.Kind).Str("postId", ev.PostID).Msg("unknown fan-out event acked")
		return nil
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.FanoutEvents.WithLabelValues(ev.Kind, outcome).Inc()
	metrics.FanoutDuration.Observe(time.Since(started).Seconds())
	return err
}

func (w *Worker) deliverNew(ctx context.Context, ev queue.Event) error {
	snaps, err := w.posts.Snapshots(ctx, []string{ev.PostID})
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		// Deleted before the fan-out ran; the delete event sweeps any
		// entries this delivery might have written earlier.
		w.log.Info().Str("postId", ev.PostID).Msg("post gone before fan-out")
		return nil
	}
	snap := snaps[0]

	own := feeds.Entry{PostID: snap.ID, AuthorID: snap.AuthorID, Timestamp: snap.CreatedAt, Source: feeds.SourceOwn}
	if err := w.feeds.Add(ctx, ev.AuthorID, own); err != nil {
		return err
	}

	followers, err := w.users.FollowerIDs(ctx, ev.AuthorID)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.parallelism)
	for _, followerID := range followers {
		if followerID == ev.AuthorID {
			// The self-follow edge covers the author's own feed, which
			// already holds the own-source entry.
			continue
		}
		followerID := followerID
		g.Go(func() error {
			entry := feeds.Entry{PostID: snap.ID, AuthorID: snap.AuthorID, Timestamp: snap.CreatedAt, Source: feeds.SourceFollow}
			if err := w.feeds.Add(gctx, followerID, entry); err != nil {
				return err
			}
			metrics.FeedDeliveries.Inc()
			if w.pusher != nil {
				w.pusher.BroadcastPost(followerID, snap)
			}
			return nil
		})
	}
	return g.Wait()
}

func (w *Worker) deliverDelete(ctx context.Context, ev queue.Event) error {
	if err := w.feeds.Remove(ctx, ev.AuthorID, ev.PostID); err != nil {
		return err
	}

	followers, err := w.users.FollowerIDs(ctx, ev.AuthorID)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.parallelism)
	for _, followerID := range followers {
		if followerID == ev.AuthorID {
			continue
		}
		followerID := followerID
		g.Go(func() error {
			return w.feeds.Remove(gctx, followerID, ev.PostID)
		})
	}
	return g.Wait()
}
