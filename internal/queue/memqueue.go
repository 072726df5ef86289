package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrClosed is returned when publishing to a queue that has shut down.
var ErrClosed = errors.New("queue: closed")

// Mem is an in-process queue with the same at-least-once contract as the
// JetStream queue. It backs single-node deployments and tests; events
// published before Start are buffered and delivered once a handler is
// attached.
type Mem struct {
	mu      sync.Mutex
	handler Handler
	ctx     context.Context
	pending []Event
	closed  bool

	done    chan struct{}
	wg      sync.WaitGroup
	backoff func(attempts int) time.Duration
	log     zerolog.Logger
}

func NewMem(log zerolog.Logger) *Mem {
	return &Mem{
		done:    make(chan struct{}),
		backoff: Backoff,
		log:     log,
	}
}

func (q *Mem) PublishNewPost(ctx context.Context, postID, authorID string) error {
	return q.enqueue(Event{
		Kind:       EventNewPost,
		PostID:     postID,
		AuthorID:   authorID,
		OccurredAt: time.Now().UTC(),
	})
}

func (q *Mem) PublishDeletePost(ctx context.Context, postID, authorID string) error {
	return q.enqueue(Event{
		Kind:       EventDeletePost,
		PostID:     postID,
		AuthorID:   authorID,
		OccurredAt: time.Now().UTC(),
	})
}

func (q *Mem) enqueue(ev Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if q.handler == nil {
		q.pending = append(q.pending, ev)
		return nil
	}

	q.wg.Add(1)
	go q.deliver(ev)
	return nil
}

// Start attaches the handler and flushes anything buffered before it.
func (q *Mem) Start(ctx context.Context, h Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	q.handler = h
	q.ctx = ctx

	for _, ev := range q.pending {
		q.wg.Add(1)
		go q.deliver(ev)
	}
	q.pending = nil
	return nil
}

func (q *Mem) deliver(ev Event) {
	defer q.wg.Done()

	for attempt := 1; ; attempt++ {
		evCtx, cancel := context.WithTimeout(q.ctx, eventTimeout)
		err := q.handler.HandleEvent(evCtx, ev)
		cancel()
		if err == nil {
			return
		}

		if attempt >= MaxDeliver {
			q.log.Error().Err(err).
				Str("kind", ev.Kind).
				Str("postId", ev.PostID).
				Int("attempts", attempt).
				Msg("dropping event after max deliveries")
			return
		}

		select {
		case <-time.After(q.backoff(attempt)):
		case <-q.done:
			return
		case <-q.ctx.Done():
			return
		}
	}
}

// Close stops redelivery and waits for in-flight handlers to return.
func (q *Mem) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}
