package notifications

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Wire/internal/coord"
	"Wire/internal/core/users"
	"Wire/internal/identity"
	"Wire/internal/kv"
)

type fakeActors struct {
	cards map[string]users.ProfileView
}

func (f *fakeActors) Cards(ctx context.Context, ids []string) ([]users.ProfileView, error) {
	var out []users.ProfileView
	for _, id := range ids {
		if card, ok := f.cards[id]; ok {
			out = append(out, card)
		}
	}
	return out, nil
}

type fakePusher struct {
	pushed []Notification
}

func (f *fakePusher) Push(userID string, n Notification) {
	f.pushed = append(f.pushed, n)
}

type notifFixture struct {
	mr     *miniredis.Miniredis
	svc    Service
	coord  *Coordinator
	actors *fakeActors
	pusher *fakePusher
}

func newNotifFixture(t *testing.T) *notifFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := kv.NewRedisStoreFromClient(client)

	gen, err := identity.NewGenerator(1)
	require.NoError(t, err)

	actors := &fakeActors{cards: map[string]users.ProfileView{
		"9": {ID: "9", Handle: "niner", DisplayName: "The Niner", AvatarURL: "/a/9.png"},
	}}
	pusher := &fakePusher{}
	c := NewCoordinator(store, coord.NewGroup(), zerolog.Nop())
	svc := NewService(c, actors, gen, pusher, zerolog.Nop())

	return &notifFixture{mr: mr, svc: svc, coord: c, actors: actors, pusher: pusher}
}

func TestNotifyStoresAndPushes(t *testing.T) {
	f := newNotifFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.NotifyEngagement(ctx, KindLike, "u1", "9", "p1", "nice post"))

	page, err := f.svc.List(ctx, "u1", 10, "")
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)

	n := page.Notifications[0]
	assert.Equal(t, KindLike, n.Kind)
	assert.Equal(t, "u1", n.UserID)
	assert.Equal(t, "9", n.ActorID)
	assert.Equal(t, "niner", n.Actor.Handle)
	assert.Equal(t, "The Niner", n.Actor.DisplayName)
	assert.Equal(t, "p1", n.PostID)
	assert.Equal(t, "nice post", n.Preview)
	assert.False(t, n.Read)

	require.Len(t, f.pusher.pushed, 1)
	assert.Equal(t, n.ID, f.pusher.pushed[0].ID)
}

func TestSelfNotificationSkipped(t *testing.T) {
	f := newNotifFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.NotifyEngagement(ctx, KindLike, "9", "9", "p1", ""))

	page, err := f.svc.List(ctx, "9", 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Notifications)
	assert.Empty(t, f.pusher.pushed)
}

func TestUnknownKindRejected(t *testing.T) {
	f := newNotifFixture(t)

	err := f.svc.NotifyEngagement(context.Background(), "poke", "u1", "9", "", "")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestMissingActorDropsQuietly(t *testing.T) {
	f := newNotifFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.NotifyFollow(ctx, "u1", "ghost"))

	page, err := f.svc.List(ctx, "u1", 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Notifications)
}

func TestFollowNotification(t *testing.T) {
	f := newNotifFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.NotifyFollow(ctx, "u1", "9"))

	page, err := f.svc.List(ctx, "u1", 10, "")
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, KindFollow, page.Notifications[0].Kind)
	assert.Empty(t, page.Notifications[0].PostID)
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	f := newNotifFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, f.svc.NotifyEngagement(ctx, KindReply, "u1", "9", "p1", "hi"))
	}

	count, err := f.svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	page, err := f.svc.List(ctx, "u1", 10, "")
	require.NoError(t, err)
	require.Len(t, page.Notifications, 3)

	require.NoError(t, f.svc.MarkRead(ctx, "u1", page.Notifications[0].ID))
	count, err = f.svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Marking twice stays settled.
	require.NoError(t, f.svc.MarkRead(ctx, "u1", page.Notifications[0].ID))

	require.NoError(t, f.svc.MarkAllRead(ctx, "u1"))
	count, err = f.svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	err = f.svc.MarkRead(ctx, "u1", "424242")
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestListPagination(t *testing.T) {
	f := newNotifFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, f.svc.NotifyEngagement(ctx, KindLike, "u1", "9", "p1", ""))
	}

	page, err := f.svc.List(ctx, "u1", 2, "")
	require.NoError(t, err)
	require.Len(t, page.Notifications, 2)
	assert.True(t, page.HasMore)
	assert.True(t, identity.Compare(page.Notifications[0].ID, page.Notifications[1].ID) > 0, "newest first")

	page2, err := f.svc.List(ctx, "u1", 2, page.NextCursor)
	require.NoError(t, err)
	require.Len(t, page2.Notifications, 2)
	assert.True(t, identity.Compare(page.Notifications[1].ID, page2.Notifications[0].ID) > 0)

	page3, err := f.svc.List(ctx, "u1", 2, page2.NextCursor)
	require.NoError(t, err)
	require.Len(t, page3.Notifications, 1)
	assert.False(t, page3.HasMore)

	_, err = f.svc.List(ctx, "u1", 2, "bogus")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestExpiredNotificationsBecomeGaps(t *testing.T) {
	f := newNotifFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.NotifyEngagement(ctx, KindLike, "u1", "9", "p1", ""))
	f.mr.FastForward(notificationTTL + time.Minute)

	page, err := f.svc.List(ctx, "u1", 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Notifications)

	count, err := f.svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestInboxCapEvictsOldest(t *testing.T) {
	f := newNotifFixture(t)
	f.coord.cap = 3
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, f.svc.NotifyEngagement(ctx, KindLike, "u1", "9", "p1", ""))
	}

	ids, err := f.coord.IDs(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	page, err := f.svc.List(ctx, "u1", 10, "")
	require.NoError(t, err)
	assert.Len(t, page.Notifications, 3)
}

func TestPreviewTruncated(t *testing.T) {
	f := newNotifFixture(t)
	ctx := context.Background()

	long := strings.Repeat("é", 150)
	require.NoError(t, f.svc.NotifyEngagement(ctx, KindMention, "u1", "9", "p1", long))

	page, err := f.svc.List(ctx, "u1", 10, "")
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, 100, len([]rune(page.Notifications[0].Preview)))
}
