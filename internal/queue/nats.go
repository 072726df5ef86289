package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const (
	streamName = "POSTS"
	queueGroup = "fanout"
	durable    = "fanout-worker"

	// eventTimeout bounds one handler invocation. Fan-out to a large
	// follower set takes longer than a coordinator op, so this is wider
	// than the request deadline.
	eventTimeout = 60 * time.Second
)

// NATS is the JetStream-backed queue. It is both the Publisher used by
// the post write path and the Consumer driving the fan-out worker.
type NATS struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	sub  *nats.Subscription
	log  zerolog.Logger
}

// NewNATS connects, ensures the POSTS stream exists, and returns a queue
// ready to publish. Consumption starts on Start.
func NewNATS(url string, log zerolog.Logger) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening jetstream: %w", err)
	}

	if _, err := js.StreamInfo(streamName); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			conn.Close()
			return nil, fmt.Errorf("checking stream %s: %w", streamName, err)
		}
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      streamName,
			Subjects:  []string{"posts.>"},
			Storage:   nats.FileStorage,
			Retention: nats.WorkQueuePolicy,
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("creating stream %s: %w", streamName, err)
		}
	}

	return &NATS{conn: conn, js: js, log: log}, nil
}

func (q *NATS) PublishNewPost(ctx context.Context, postID, authorID string) error {
	return q.publish(ctx, SubjectNewPost, Event{
		Kind:       EventNewPost,
		PostID:     postID,
		AuthorID:   authorID,
		OccurredAt: time.Now().UTC(),
	})
}

func (q *NATS) PublishDeletePost(ctx context.Context, postID, authorID string) error {
	return q.publish(ctx, SubjectDeletePost, Event{
		Kind:       EventDeletePost,
		PostID:     postID,
		AuthorID:   authorID,
		OccurredAt: time.Now().UTC(),
	})
}

func (q *NATS) publish(ctx context.Context, subject string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", ev.Kind, err)
	}

	// MsgId dedupes accidental double publishes inside the server window.
	_, err = q.js.Publish(subject, data, nats.Context(ctx), nats.MsgId(ev.Kind+":"+ev.PostID))
	if err != nil {
		return fmt.Errorf("publishing %s: %w", subject, err)
	}
	return nil
}

// Start subscribes the durable fan-out consumer. Events that fail are
// redelivered on the doubling backoff schedule; events that exhaust
// MaxDeliver are terminated and logged.
func (q *NATS) Start(ctx context.Context, h Handler) error {
	sub, err := q.js.QueueSubscribe("posts.>", queueGroup, func(msg *nats.Msg) {
		q.handle(ctx, msg, h)
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.MaxDeliver(MaxDeliver),
		nats.AckWait(2*eventTimeout),
		nats.DeliverAll(),
		nats.BindStream(streamName),
	)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", streamName, err)
	}
	q.sub = sub
	return nil
}

func (q *NATS) handle(ctx context.Context, msg *nats.Msg, h Handler) {
	var ev Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		q.log.Error().Err(err).Str("subject", msg.Subject).Msg("dropping undecodable event")
		_ = msg.Term()
		return
	}

	evCtx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	if err := h.HandleEvent(evCtx, ev); err != nil {
		attempts := 1
		if meta, merr := msg.Metadata(); merr == nil {
			attempts = int(meta.NumDelivered)
		}

		if attempts >= MaxDeliver {
			q.log.Error().Err(err).
				Str("kind", ev.Kind).
				Str("postId", ev.PostID).
				Int("attempts", attempts).
				Msg("dropping event after max deliveries")
			_ = msg.Term()
			return
		}

		delay := Backoff(attempts)
		q.log.Warn().Err(err).
			Str("kind", ev.Kind).
			Str("postId", ev.PostID).
			Int("attempts", attempts).
			Dur("retryIn", delay).
			Msg("event failed, scheduling redelivery")
		_ = msg.NakWithDelay(delay)
		return
	}

	_ = msg.Ack()
}

func (q *NATS) Close() error {
	if q.sub != nil {
		_ = q.sub.Drain()
	}
	return q.conn.Drain()
}
