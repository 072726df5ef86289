package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDoublesAndCaps(t *testing.T) {
	want := []time.Duration{
		30 * time.Second,
		60 * time.Second,
		120 * time.Second,
		240 * time.Second,
		480 * time.Second,
		960 * time.Second,
		1920 * time.Second,
		3600 * time.Second,
		3600 * time.Second,
		3600 * time.Second,
	}
	for i, w := range want {
		assert.Equal(t, w, Backoff(i+1), "attempt %d", i+1)
	}
	assert.Equal(t, 30*time.Second, Backoff(0))
}

func TestMemDeliversPublishedEvent(t *testing.T) {
	q := NewMem(zerolog.Nop())
	defer q.Close()

	got := make(chan Event, 1)
	require.NoError(t, q.Start(context.Background(), HandlerFunc(func(ctx context.Context, ev Event) error {
		got <- ev
		return nil
	})))

	require.NoError(t, q.PublishNewPost(context.Background(), "123", "42"))

	select {
	case ev := <-got:
		assert.Equal(t, EventNewPost, ev.Kind)
		assert.Equal(t, "123", ev.PostID)
		assert.Equal(t, "42", ev.AuthorID)
		assert.False(t, ev.OccurredAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("event never delivered")
	}
}

func TestMemBuffersBeforeStart(t *testing.T) {
	q := NewMem(zerolog.Nop())
	defer q.Close()

	require.NoError(t, q.PublishDeletePost(context.Background(), "7", "42"))

	got := make(chan Event, 1)
	require.NoError(t, q.Start(context.Background(), HandlerFunc(func(ctx context.Context, ev Event) error {
		got <- ev
		return nil
	})))

	select {
	case ev := <-got:
		assert.Equal(t, EventDeletePost, ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("buffered event never delivered")
	}
}

func TestMemRedeliversUntilSuccess(t *testing.T) {
	q := NewMem(zerolog.Nop())
	q.backoff = func(int) time.Duration { return time.Millisecond }
	defer q.Close()

	var attempts int32
	done := make(chan struct{})
	require.NoError(t, q.Start(context.Background(), HandlerFunc(func(ctx context.Context, ev Event) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("feed coordinator unavailable")
		}
		close(done)
		return nil
	})))

	require.NoError(t, q.PublishNewPost(context.Background(), "1", "2"))

	select {
	case <-done:
		assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	case <-time.After(2 * time.Second):
		t.Fatal("event not redelivered")
	}
}

func TestMemStopsAfterMaxDeliver(t *testing.T) {
	q := NewMem(zerolog.Nop())
	q.backoff = func(int) time.Duration { return time.Millisecond }
	defer q.Close()

	var attempts int32
	require.NoError(t, q.Start(context.Background(), HandlerFunc(func(ctx context.Context, ev Event) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("still broken")
	})))

	require.NoError(t, q.PublishNewPost(context.Background(), "1", "2"))

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&attempts) == MaxDeliver
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(MaxDeliver), atomic.LoadInt32(&attempts), "delivery must stop at the cap")
}

func TestMemPublishAfterClose(t *testing.T) {
	q := NewMem(zerolog.Nop())
	require.NoError(t, q.Close())

	err := q.PublishNewPost(context.Background(), "1", "2")
	assert.ErrorIs(t, err, ErrClosed)
}
