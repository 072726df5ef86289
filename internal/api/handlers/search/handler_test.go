package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Wire/internal/core/posts"
	"Wire/internal/core/users"
)

type mockSearch struct {
	postsFunc func(ctx context.Context, query string, limit int) ([]posts.Snapshot, error)
	usersFunc func(ctx context.Context, query string, limit int) ([]users.ProfileView, error)
}

func (m *mockSearch) SearchPosts(ctx context.Context, query string, limit int) ([]posts.Snapshot, error) {
	return m.postsFunc(ctx, query, limit)
}

func (m *mockSearch) SearchUsers(ctx context.Context, query string, limit int) ([]users.ProfileView, error) {
	return m.usersFunc(ctx, query, limit)
}

func (m *mockSearch) IndexPost(ctx context.Context, postID, content string, createdAt time.Time) error {
	return nil
}

func (m *mockSearch) RemovePost(ctx context.Context, postID string) error { return nil }

func (m *mockSearch) IndexUser(ctx context.Context, userID, handle, displayName string) error {
	return nil
}

func (m *mockSearch) ReindexDisplayName(ctx context.Context, userID, oldName, newName string) error {
	return nil
}

func snapshots(n int) []posts.Snapshot {
	out := make([]posts.Snapshot, n)
	for i := range out {
		out[i] = posts.Snapshot{ID: fmt.Sprintf("p%d", i)}
	}
	return out
}

type searchPage struct {
	Posts   []posts.Snapshot    `json:"posts"`
	Users   []users.ProfileView `json:"users"`
	Cursor  string              `json:"cursor"`
	HasMore bool                `json:"hasMore"`
}

func doSearch(t *testing.T, h *Handler, target string) (*httptest.ResponseRecorder, searchPage) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.HandleSearch(w, req)

	var env struct {
		Success bool       `json:"success"`
		Data    searchPage `json:"data"`
		Error   string     `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return w, env.Data
}

func TestSearchRequiresQuery(t *testing.T) {
	h := NewHandler(&mockSearch{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	w := httptest.NewRecorder()
	h.HandleSearch(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "q is required")
}

func TestSearchRejectsUnknownType(t *testing.T) {
	h := NewHandler(&mockSearch{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=go&type=hashtags", nil)
	w := httptest.NewRecorder()
	h.HandleSearch(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchTopDefault(t *testing.T) {
	var gotQuery string
	var gotLimit int
	svc := &mockSearch{
		postsFunc: func(ctx context.Context, query string, limit int) ([]posts.Snapshot, error) {
			gotQuery, gotLimit = query, limit
			return snapshots(3), nil
		},
	}
	h := NewHandler(svc, zerolog.Nop())

	w, page := doSearch(t, h, "/api/search?q=gopher")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gopher", gotQuery)
	assert.Equal(t, defaultLimit, gotLimit)
	assert.Len(t, page.Posts, 3)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.Cursor)
}

func TestSearchPeople(t *testing.T) {
	svc := &mockSearch{
		usersFunc: func(ctx context.Context, query string, limit int) ([]users.ProfileView, error) {
			return []users.ProfileView{{ID: "1", Handle: "alice"}}, nil
		},
	}
	h := NewHandler(svc, zerolog.Nop())

	w, page := doSearch(t, h, "/api/search?q=ali&type=people")

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "alice", page.Users[0].Handle)
}

func TestSearchPagination(t *testing.T) {
	// The service is asked for offset+limit results; the handler
	// windows them and hands back the end offset as the cursor.
	svc := &mockSearch{
		postsFunc: func(ctx context.Context, query string, limit int) ([]posts.Snapshot, error) {
			all := snapshots(10)
			if limit > len(all) {
				return all, nil
			}
			return all[:limit], nil
		},
	}
	h := NewHandler(svc, zerolog.Nop())

	w, first := doSearch(t, h, "/api/search?q=go&limit=4")
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, first.Posts, 4)
	assert.Equal(t, "p0", first.Posts[0].ID)
	assert.True(t, first.HasMore)
	require.Equal(t, "4", first.Cursor)

	_, second := doSearch(t, h, "/api/search?q=go&limit=4&cursor="+first.Cursor)
	require.Len(t, second.Posts, 4)
	assert.Equal(t, "p4", second.Posts[0].ID)

	// Past the end of the results the page comes back short and the
	// cursor stops.
	_, last := doSearch(t, h, "/api/search?q=go&limit=4&cursor=8")
	assert.Len(t, last.Posts, 2)
	assert.False(t, last.HasMore)
	assert.Empty(t, last.Cursor)
}

func TestSearchBadCursor(t *testing.T) {
	h := NewHandler(&mockSearch{}, zerolog.Nop())

	for _, cursor := range []string{"banana", "-3"} {
		req := httptest.NewRequest(http.MethodGet, "/api/search?q=go&cursor="+cursor, nil)
		w := httptest.NewRecorder()
		h.HandleSearch(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "cursor %q", cursor)
	}
}

func TestSearchLimitClamped(t *testing.T) {
	var gotLimit int
	svc := &mockSearch{
		postsFunc: func(ctx context.Context, query string, limit int) ([]posts.Snapshot, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	h := NewHandler(svc, zerolog.Nop())

	doSearch(t, h, "/api/search?q=go&limit=500")
	assert.Equal(t, defaultLimit, gotLimit)
}
