package search

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Wire/internal/coord"
	"Wire/internal/core/posts"
	"Wire/internal/core/users"
	"Wire/internal/kv"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"punctuation stripped", "Hello, World!", []string{"hello", "world"}},
		{"stopwords dropped", "the cat and the hat", []string{"cat", "hat"}},
		{"mentions and hashtags kept", "cc @bob about #golang", []string{"cc", "@bob", "about", "#golang"}},
		{"short tokens dropped", "a b cd", []string{"cd"}},
		{"deduped", "go go go", []string{"go"}},
		{"empty", "   ", []string{}},
		{"stopword with sigil kept", "#the @the", []string{"#the", "@the"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.content))
		})
	}
}

func TestTokenizeCap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&b, "word%d ", i)
	}
	assert.Len(t, Tokenize(b.String()), 50)
}

func TestQueryTermsCap(t *testing.T) {
	assert.Len(t, QueryTerms("one two three four five six seven eight nine ten eleven twelve"), 10)
}

type fakePostReader struct {
	snaps map[string]posts.Snapshot
}

func (f *fakePostReader) Snapshots(ctx context.Context, ids []string) ([]posts.Snapshot, error) {
	var out []posts.Snapshot
	for _, id := range ids {
		if snap, ok := f.snaps[id]; ok {
			out = append(out, snap)
		}
	}
	return out, nil
}

type fakeUserReader struct {
	cards map[string]users.ProfileView
}

func (f *fakeUserReader) Cards(ctx context.Context, ids []string) ([]users.ProfileView, error) {
	var out []users.ProfileView
	for _, id := range ids {
		if card, ok := f.cards[id]; ok {
			out = append(out, card)
		}
	}
	return out, nil
}

type searchFixture struct {
	svc   Service
	posts *fakePostReader
	users *fakeUserReader
	store kv.Store
}

func newSearchFixture(t *testing.T) *searchFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := kv.NewRedisStoreFromClient(client)

	pr := &fakePostReader{snaps: map[string]posts.Snapshot{}}
	ur := &fakeUserReader{cards: map[string]users.ProfileView{}}
	svc := NewService(store, coord.NewGroup(), pr, ur, zerolog.Nop())
	return &searchFixture{svc: svc, posts: pr, users: ur, store: store}
}

// indexPost registers content in the index and the snapshot join.
func (f *searchFixture) indexPost(t *testing.T, id, content string, likes int) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, f.svc.IndexPost(context.Background(), id, content, now))
	f.posts.snaps[id] = posts.Snapshot{ID: id, AuthorID: "a", Content: content, CreatedAt: now, LikeCount: likes}
}

func searchIDs(snaps []posts.Snapshot) []string {
	ids := make([]string, len(snaps))
	for i, s := range snaps {
		ids[i] = s.ID
	}
	return ids
}

func TestSearchPostsIntersection(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	f.indexPost(t, "1", "golang concurrency patterns", 0)
	f.indexPost(t, "2", "golang web frameworks", 0)

	got, err := f.svc.SearchPosts(ctx, "golang", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2"}, searchIDs(got))

	got, err = f.svc.SearchPosts(ctx, "golang concurrency", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, searchIDs(got), "every term must match")

	got, err = f.svc.SearchPosts(ctx, "golang rust", 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = f.svc.SearchPosts(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchPostsRanking(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	f.indexPost(t, "1", "coffee is fine", 0)
	f.indexPost(t, "2", "coffee coffee coffee", 0)
	f.indexPost(t, "3", "best coffee in town", 80)

	got, err := f.svc.SearchPosts(ctx, "coffee", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "3", got[0].ID, "engagement dominates")
	assert.Equal(t, "2", got[1].ID, "term frequency breaks the tie")
	assert.Equal(t, "1", got[2].ID)
}

func TestSearchPostsLimit(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.indexPost(t, fmt.Sprintf("%d", i), "repeated topic", 0)
	}

	got, err := f.svc.SearchPosts(ctx, "topic", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRemovePost(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	f.indexPost(t, "1", "ephemeral thought", 0)
	require.NoError(t, f.svc.RemovePost(ctx, "1"))

	got, err := f.svc.SearchPosts(ctx, "ephemeral", 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = f.store.Get(ctx, KeyPostTokens("1"))
	assert.ErrorIs(t, err, kv.ErrNotFound, "reverse map cleaned up")

	// Unindexing twice is fine.
	assert.NoError(t, f.svc.RemovePost(ctx, "1"))
}

func TestSearchSkipsTombstonedPosts(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	f.indexPost(t, "1", "vanished already", 0)
	delete(f.posts.snaps, "1")

	got, err := f.svc.SearchPosts(ctx, "vanished", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIndexUserAndSearch(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.IndexUser(ctx, "1", "alice", "Alice Wonderland"))
	f.users.cards["1"] = users.ProfileView{ID: "1", Handle: "alice"}

	for _, q := range []string{"ali", "alice", "ALICE ", "wond", "wonderland"} {
		got, err := f.svc.SearchUsers(ctx, q, 10)
		require.NoError(t, err)
		require.Len(t, got, 1, "query %q", q)
		assert.Equal(t, "1", got[0].ID)
	}

	got, err := f.svc.SearchUsers(ctx, "al", 10)
	require.NoError(t, err)
	assert.Empty(t, got, "prefixes shorter than three characters have no index")

	got, err = f.svc.SearchUsers(ctx, "zzz", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReindexDisplayName(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.IndexUser(ctx, "1", "alice", "Alice Wonderland"))
	f.users.cards["1"] = users.ProfileView{ID: "1", Handle: "alice"}

	require.NoError(t, f.svc.ReindexDisplayName(ctx, "1", "Alice Wonderland", "Overlord"))

	got, err := f.svc.SearchUsers(ctx, "wond", 10)
	require.NoError(t, err)
	assert.Empty(t, got, "old name unindexed")

	got, err = f.svc.SearchUsers(ctx, "over", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = f.svc.SearchUsers(ctx, "ali", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1, "handle prefixes untouched by a rename")
}

func TestSearchUsersUnionDedupes(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.IndexUser(ctx, "1", "anna", "Anna Banana"))
	f.users.cards["1"] = users.ProfileView{ID: "1", Handle: "anna"}

	got, err := f.svc.SearchUsers(ctx, "anna", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1, "handle and name hits collapse to one")
}

func TestSearchUsersHandleHitsFirst(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.IndexUser(ctx, "2", "someone", "Bobcat Fan"))
	require.NoError(t, f.svc.IndexUser(ctx, "1", "bobcat", "Someone Else"))
	f.users.cards["1"] = users.ProfileView{ID: "1", Handle: "bobcat"}
	f.users.cards["2"] = users.ProfileView{ID: "2", Handle: "someone"}

	got, err := f.svc.SearchUsers(ctx, "bobc", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID, "handle match outranks display-name match")
}
