package timeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Wire/internal/coord"
	"Wire/internal/core/feeds"
	"Wire/internal/core/posts"
	"Wire/internal/core/ranking"
	"Wire/internal/core/users"
	"Wire/internal/kv"
)

type fakeExplore struct {
	candidates []ranking.Candidate
	err        error
}

func (f *fakeExplore) Explore(_ context.Context) ([]ranking.Candidate, error) {
	return f.candidates, f.err
}

type fakeRelations struct {
	rel users.Relations
	err error
}

func (f *fakeRelations) Relations(_ context.Context, _ string) (*users.Relations, error) {
	if f.err != nil {
		return nil, f.err
	}
	rel := f.rel
	return &rel, nil
}

// fakeSnapshots backs both the feed join and the explore join.
type fakeSnapshots struct {
	snaps map[string]posts.Snapshot
}

func (f *fakeSnapshots) Snapshots(_ context.Context, ids []string) ([]posts.Snapshot, error) {
	var out []posts.Snapshot
	for _, id := range ids {
		if snap, ok := f.snaps[id]; ok {
			out = append(out, snap)
		}
	}
	return out, nil
}

type timelineFixture struct {
	svc     Service
	feeds   feeds.Service
	explore *fakeExplore
	rel     *fakeRelations
	snaps   *fakeSnapshots
}

func newTimelineFixture(t *testing.T) *timelineFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := kv.NewRedisStoreFromClient(client)

	log := zerolog.Nop()
	snaps := &fakeSnapshots{snaps: map[string]posts.Snapshot{}}
	feedSvc := feeds.NewService(feeds.NewCoordinator(store, coord.NewGroup(), log), snaps, log)
	explore := &fakeExplore{}
	rel := &fakeRelations{rel: users.Relations{Following: []string{"1", "2"}}}

	return &timelineFixture{
		svc:     NewService(feedSvc, explore, rel, snaps, log),
		feeds:   feedSvc,
		explore: explore,
		rel:     rel,
		snaps:   snaps,
	}
}

var timelineBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// seedFollowed writes n followed entries into user "1"'s feed, newest
// first: post ids "p1".."pn" with p1 the newest.
func (f *timelineFixture) seedFollowed(t *testing.T, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("p%d", i)
		ts := timelineBase.Add(-time.Duration(i) * time.Minute)
		f.snaps.snaps[id] = posts.Snapshot{ID: id, AuthorID: "2", Content: "followed " + id, CreatedAt: ts}
		e := feeds.Entry{PostID: id, AuthorID: "2", Timestamp: ts, Source: feeds.SourceFollow}
		require.NoError(t, f.feeds.Add(context.Background(), "1", e))
	}
}

// seedExplore registers ranked candidates "q1".."qn" by author "9".
func (f *timelineFixture) seedExplore(n int) {
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("q%d", i)
		f.snaps.snaps[id] = posts.Snapshot{ID: id, AuthorID: "9", Content: "explore " + id, CreatedAt: timelineBase}
		f.explore.candidates = append(f.explore.candidates, ranking.Candidate{PostID: id, AuthorID: "9", Score: float64(100 - i)})
	}
}

func postIDs(resp *Response) []string {
	ids := make([]string, 0, len(resp.Posts))
	for _, p := range resp.Posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func sources(resp *Response) []feeds.Source {
	out := make([]feeds.Source, 0, len(resp.Posts))
	for _, p := range resp.Posts {
		out = append(out, p.Source)
	}
	return out
}

func TestHomeMergePattern(t *testing.T) {
	f := newTimelineFixture(t)
	f.seedFollowed(t, 5)
	f.seedExplore(2)

	resp, err := f.svc.Home(context.Background(), "1", Request{Limit: 6})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2", "q1", "p3", "p4", "q2"}, postIDs(resp))
	assert.Equal(t, []feeds.Source{
		feeds.SourceFollow, feeds.SourceFollow, feeds.SourceFoF,
		feeds.SourceFollow, feeds.SourceFollow, feeds.SourceFoF,
	}, sources(resp))
}

func TestHomeFollowedOnly(t *testing.T) {
	f := newTimelineFixture(t)
	f.seedFollowed(t, 4)

	resp, err := f.svc.Home(context.Background(), "1", Request{Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, postIDs(resp))
	assert.False(t, resp.HasMore)
}

func TestHomeExploreFillsEmptyFeed(t *testing.T) {
	f := newTimelineFixture(t)
	f.seedExplore(3)

	resp, err := f.svc.Home(context.Background(), "1", Request{Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, []string{"q1", "q2", "q3"}, postIDs(resp))
	assert.False(t, resp.HasMore)
	assert.Empty(t, resp.NextCursor)
}

func TestHomeExploreSkipsFollowedSelfAndBlocked(t *testing.T) {
	f := newTimelineFixture(t)
	f.rel.rel = users.Relations{Following: []string{"1", "2"}, Blocked: []string{"7"}}
	f.snaps.snaps["q1"] = posts.Snapshot{ID: "q1", AuthorID: "2", Content: "from someone followed", CreatedAt: timelineBase}
	f.snaps.snaps["q2"] = posts.Snapshot{ID: "q2", AuthorID: "1", Content: "own post", CreatedAt: timelineBase}
	f.snaps.snaps["q3"] = posts.Snapshot{ID: "q3", AuthorID: "7", Content: "from someone blocked", CreatedAt: timelineBase}
	f.snaps.snaps["q4"] = posts.Snapshot{ID: "q4", AuthorID: "9", Content: "fresh voice", CreatedAt: timelineBase}
	f.explore.candidates = []ranking.Candidate{
		{PostID: "q1", AuthorID: "2", Score: 9},
		{PostID: "q2", AuthorID: "1", Score: 8},
		{PostID: "q3", AuthorID: "7", Score: 7},
		{PostID: "q4", AuthorID: "9", Score: 6},
	}

	resp, err := f.svc.Home(context.Background(), "1", Request{Limit: 6})
	require.NoError(t, err)

	assert.Equal(t, []string{"q4"}, postIDs(resp))
}

func TestHomeExploreRespectsMutedWords(t *testing.T) {
	f := newTimelineFixture(t)
	f.rel.rel.MutedWords = []string{"spoiler"}
	f.snaps.snaps["q1"] = posts.Snapshot{ID: "q1", AuthorID: "9", Content: "huge SPOILER ahead", CreatedAt: timelineBase}
	f.snaps.snaps["q2"] = posts.Snapshot{ID: "q2", AuthorID: "9", Content: "safe to read", CreatedAt: timelineBase}
	f.explore.candidates = []ranking.Candidate{
		{PostID: "q1", AuthorID: "9", Score: 9},
		{PostID: "q2", AuthorID: "9", Score: 8},
	}

	resp, err := f.svc.Home(context.Background(), "1", Request{Limit: 6})
	require.NoError(t, err)

	assert.Equal(t, []string{"q2"}, postIDs(resp))
}

func TestHomeExploreDropsVanishedPosts(t *testing.T) {
	f := newTimelineFixture(t)
	f.explore.candidates = []ranking.Candidate{{PostID: "q1", AuthorID: "9", Score: 9}}

	resp, err := f.svc.Home(context.Background(), "1", Request{Limit: 6})
	require.NoError(t, err)

	assert.Empty(t, resp.Posts)
}

func TestHomeCursorResumesFollowedStream(t *testing.T) {
	f := newTimelineFixture(t)
	f.seedFollowed(t, 10)
	f.seedExplore(4)

	first, err := f.svc.Home(context.Background(), "1", Request{Limit: 6})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "q1", "p3", "p4", "q2"}, postIDs(first))
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextCursor)

	second, err := f.svc.Home(context.Background(), "1", Request{Limit: 6, Cursor: first.NextCursor})
	require.NoError(t, err)
	// The followed stream resumes after p4; explore restarts from the top.
	assert.Equal(t, []string{"p5", "p6", "q1", "p7", "p8", "q2"}, postIDs(second))
	assert.True(t, second.HasMore)

	third, err := f.svc.Home(context.Background(), "1", Request{Limit: 6, Cursor: second.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []string{"p9", "p10", "q1", "q2", "q3", "q4"}, postIDs(third))
	assert.False(t, third.HasMore)
}

func TestHomeDegradesWhenExploreDown(t *testing.T) {
	f := newTimelineFixture(t)
	f.seedFollowed(t, 3)
	f.explore.err = errors.New("cache down")

	resp, err := f.svc.Home(context.Background(), "1", Request{Limit: 6})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2", "p3"}, postIDs(resp))
}

func TestHomeRelationsFailure(t *testing.T) {
	f := newTimelineFixture(t)
	f.rel.err = errors.New("coordinator down")

	_, err := f.svc.Home(context.Background(), "1", Request{Limit: 6})
	require.Error(t, err)
}

func TestHomeInvalidCursor(t *testing.T) {
	f := newTimelineFixture(t)
	f.seedFollowed(t, 2)

	_, err := f.svc.Home(context.Background(), "1", Request{Limit: 6, Cursor: "not-a-cursor"})
	require.ErrorIs(t, err, feeds.ErrInvalidCursor)
}

func TestChronologicalPages(t *testing.T) {
	f := newTimelineFixture(t)
	f.seedFollowed(t, 5)
	f.seedExplore(2)

	first, err := f.svc.Chronological(context.Background(), "1", Request{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, postIDs(first))
	assert.True(t, first.HasMore)

	second, err := f.svc.Chronological(context.Background(), "1", Request{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p4"}, postIDs(second))

	rest, err := f.svc.Chronological(context.Background(), "1", Request{Limit: 10, Cursor: second.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []string{"p5"}, postIDs(rest))
	assert.False(t, rest.HasMore)
}

func TestMergeExhaustion(t *testing.T) {
	followed := []feeds.Item{
		{Entry: feeds.Entry{PostID: "p1", Source: feeds.SourceFollow}, Post: posts.Snapshot{ID: "p1"}},
	}
	explore := []Post{
		{Snapshot: posts.Snapshot{ID: "q1"}, Source: feeds.SourceFoF},
		{Snapshot: posts.Snapshot{ID: "q2"}, Source: feeds.SourceFoF},
		{Snapshot: posts.Snapshot{ID: "q3"}, Source: feeds.SourceFoF},
	}

	out, fUsed, xUsed := merge(followed, explore, 10)
	require.Len(t, out, 4)
	assert.Equal(t, "p1", out[0].ID)
	assert.Equal(t, "q1", out[1].ID)
	assert.Equal(t, "q2", out[2].ID)
	assert.Equal(t, "q3", out[3].ID)
	assert.Equal(t, 1, fUsed)
	assert.Equal(t, 3, xUsed)
}
