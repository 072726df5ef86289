package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Wire/internal/api/middleware"
	"Wire/internal/core/feeds"
	"Wire/internal/core/posts"
	"Wire/internal/core/timeline"
)

type mockTimeline struct {
	homeFunc  func(ctx context.Context, userID string, req timeline.Request) (*timeline.Response, error)
	chronFunc func(ctx context.Context, userID string, req timeline.Request) (*timeline.Response, error)
}

func (m *mockTimeline) Home(ctx context.Context, userID string, req timeline.Request) (*timeline.Response, error) {
	return m.homeFunc(ctx, userID, req)
}

func (m *mockTimeline) Chronological(ctx context.Context, userID string, req timeline.Request) (*timeline.Response, error) {
	return m.chronFunc(ctx, userID, req)
}

func feedPost(id string, src feeds.Source) timeline.Post {
	return timeline.Post{Snapshot: posts.Snapshot{ID: id}, Source: src}
}

func getFeed(t *testing.T, h http.HandlerFunc, target, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(middleware.SetTestUser(req.Context(), userID))
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestHomePassesPageParams(t *testing.T) {
	var gotUser string
	var gotReq timeline.Request
	svc := &mockTimeline{
		homeFunc: func(ctx context.Context, userID string, req timeline.Request) (*timeline.Response, error) {
			gotUser, gotReq = userID, req
			return &timeline.Response{
				Posts:      []timeline.Post{feedPost("p1", feeds.SourceFollow), feedPost("p2", feeds.SourceFoF)},
				NextCursor: "c2",
				HasMore:    true,
			}, nil
		},
	}
	h := NewHandler(svc, zerolog.Nop())

	w := getFeed(t, h.HandleHome, "/api/feed/home?limit=2&cursor=c1", "5")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", gotUser)
	assert.Equal(t, timeline.Request{Limit: 2, Cursor: "c1"}, gotReq)

	var env struct {
		Success bool              `json:"success"`
		Data    timeline.Response `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	assert.True(t, env.Success)
	assert.Len(t, env.Data.Posts, 2)
	assert.Equal(t, "c2", env.Data.NextCursor)
	assert.True(t, env.Data.HasMore)
}

func TestChronological(t *testing.T) {
	svc := &mockTimeline{
		chronFunc: func(ctx context.Context, userID string, req timeline.Request) (*timeline.Response, error) {
			return &timeline.Response{Posts: []timeline.Post{feedPost("p1", feeds.SourceFollow)}}, nil
		},
	}
	h := NewHandler(svc, zerolog.Nop())

	w := getFeed(t, h.HandleChronological, "/api/feed/chronological", "5")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBadCursorIs400(t *testing.T) {
	svc := &mockTimeline{
		homeFunc: func(ctx context.Context, userID string, req timeline.Request) (*timeline.Response, error) {
			return nil, feeds.ErrInvalidCursor
		},
	}
	h := NewHandler(svc, zerolog.Nop())

	w := getFeed(t, h.HandleHome, "/api/feed/home?cursor=garbage", "5")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cursor is invalid")
}

func TestTimelineFailureIsOpaque500(t *testing.T) {
	svc := &mockTimeline{
		homeFunc: func(ctx context.Context, userID string, req timeline.Request) (*timeline.Response, error) {
			return nil, errors.New("kv: connection refused")
		},
	}
	h := NewHandler(svc, zerolog.Nop())

	w := getFeed(t, h.HandleHome, "/api/feed/home", "5")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}
