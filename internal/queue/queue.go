// Package queue carries post lifecycle events from the write path to the
// fan-out worker with at-least-once delivery.
package queue

import (
	"context"
	"time"
)

// Event kinds carried on the post stream.
const (
	EventNewPost    = "new_post"
	EventDeletePost = "delete_post"
)

// Subjects under the POSTS stream.
const (
	SubjectNewPost    = "posts.created"
	SubjectDeletePost = "posts.deleted"
)

// Event is the payload enqueued for every post creation or deletion.
// Handlers must be idempotent: redelivery duplicates events, never loses
// them.
type Event struct {
	Kind       string    `json:"kind"`
	PostID     string    `json:"postId"`
	AuthorID   string    `json:"authorId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Handler processes one event. Returning an error schedules a redelivery.
type Handler interface {
	HandleEvent(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Publisher enqueues post events durably before the write path returns.
type Publisher interface {
	PublishNewPost(ctx context.Context, postID, authorID string) error
	PublishDeletePost(ctx context.Context, postID, authorID string) error
}

// Consumer feeds events to a handler until its context is canceled.
type Consumer interface {
	Start(ctx context.Context, h Handler) error
	Close() error
}

// MaxDeliver bounds delivery attempts per event. Events that exhaust it
// are dropped with a log line rather than poisoning the stream.
const MaxDeliver = 10

const (
	backoffBase = 30 * time.Second
	backoffCap  = 3600 * time.Second
)

// Backoff returns the wait before redelivering an event that has already
// been attempted n times: 30s doubling per attempt, capped at an hour.
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	if attempts > 8 {
		return backoffCap
	}
	d := backoffBase << (attempts - 1)
	if d > backoffCap {
		return backoffCap
	}
	return d
}
