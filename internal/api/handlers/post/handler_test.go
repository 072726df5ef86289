package post

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Wire/internal/api/middleware"
	"Wire/internal/core/posts"
)

// mockPostService implements posts.Service; tests set only the hooks
// they exercise.
type mockPostService struct {
	createFunc func(ctx context.Context, authorID string, req posts.CreateRequest) (*posts.View, error)
	getFunc    func(ctx context.Context, id, viewerID string) (*posts.View, error)
	threadFunc func(ctx context.Context, id, viewerID string) (*posts.Thread, error)
	deleteFunc func(ctx context.Context, id, actorID string) error
	likeFunc   func(ctx context.Context, id, userID string) (int, error)
	unlikeFunc func(ctx context.Context, id, userID string) (int, error)
	repostFunc func(ctx context.Context, id, userID string) (*posts.View, error)
}

func (m *mockPostService) Create(ctx context.Context, authorID string, req posts.CreateRequest) (*posts.View, error) {
	return m.createFunc(ctx, authorID, req)
}

func (m *mockPostService) Get(ctx context.Context, id, viewerID string) (*posts.View, error) {
	return m.getFunc(ctx, id, viewerID)
}

func (m *mockPostService) Thread(ctx context.Context, id, viewerID string) (*posts.Thread, error) {
	return m.threadFunc(ctx, id, viewerID)
}

func (m *mockPostService) Delete(ctx context.Context, id, actorID string) error {
	return m.deleteFunc(ctx, id, actorID)
}

func (m *mockPostService) Takedown(ctx context.Context, id, adminID, reason string) error {
	return nil
}

func (m *mockPostService) Like(ctx context.Context, id, userID string) (int, error) {
	return m.likeFunc(ctx, id, userID)
}

func (m *mockPostService) Unlike(ctx context.Context, id, userID string) (int, error) {
	return m.unlikeFunc(ctx, id, userID)
}

func (m *mockPostService) Repost(ctx context.Context, id, userID string) (*posts.View, error) {
	return m.repostFunc(ctx, id, userID)
}

func (m *mockPostService) Snapshots(ctx context.Context, ids []string) ([]posts.Snapshot, error) {
	return nil, nil
}

func (m *mockPostService) Authored(ctx context.Context, userID string, limit int, cursor string) (*posts.Page, error) {
	return nil, nil
}

func (m *mockPostService) AuthoredReplies(ctx context.Context, userID string, limit int, cursor string) (*posts.Page, error) {
	return nil, nil
}

func (m *mockPostService) AuthoredMedia(ctx context.Context, userID string, limit int, cursor string) (*posts.Page, error) {
	return nil, nil
}

func (m *mockPostService) Liked(ctx context.Context, ids []string, viewerID string) ([]posts.View, error) {
	return nil, nil
}

func postView(id, authorID string) *posts.View {
	return &posts.View{Snapshot: posts.Snapshot{ID: id, AuthorID: authorID, Content: "hi"}}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// newRequest builds a request with the authenticated user and chi URL
// params in place, the way the router would hand it over.
func newRequest(t *testing.T, method, target, userID string, params map[string]string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)

	ctx := req.Context()
	if userID != "" {
		ctx = middleware.SetTestUser(ctx, userID)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env
}

func TestCreateAuthorIsViewer(t *testing.T) {
	var gotAuthor string
	svc := &mockPostService{
		createFunc: func(ctx context.Context, authorID string, req posts.CreateRequest) (*posts.View, error) {
			gotAuthor = authorID
			assert.Equal(t, "hello wire", req.Content)
			return postView("p1", authorID), nil
		},
	}
	h := NewHandler(svc, zerolog.Nop())

	req := newRequest(t, http.MethodPost, "/api/posts", "7", nil, map[string]string{"content": "hello wire"})
	w := httptest.NewRecorder()
	h.HandleCreate(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "7", gotAuthor)
	env := decode(t, w)
	assert.True(t, env.Success)
}

func TestCreateValidationIs400(t *testing.T) {
	svc := &mockPostService{
		createFunc: func(ctx context.Context, authorID string, req posts.CreateRequest) (*posts.View, error) {
			return nil, &posts.ValidationError{Field: "content", Reason: "exceeds 300 characters"}
		},
	}
	h := NewHandler(svc, zerolog.Nop())

	req := newRequest(t, http.MethodPost, "/api/posts", "7", nil, map[string]string{"content": "way too long"})
	w := httptest.NewRecorder()
	h.HandleCreate(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Error, "content")
}

func TestGetPassesViewer(t *testing.T) {
	svc := &mockPostService{
		getFunc: func(ctx context.Context, id, viewerID string) (*posts.View, error) {
			assert.Equal(t, "p1", id)
			assert.Equal(t, "9", viewerID)
			return postView("p1", "2"), nil
		},
	}
	h := NewHandler(svc, zerolog.Nop())

	req := newRequest(t, http.MethodGet, "/api/posts/p1", "9", map[string]string{"id": "p1"}, nil)
	w := httptest.NewRecorder()
	h.HandleGet(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetAnonymousViewerIsEmpty(t *testing.T) {
	svc := &mockPostService{
		getFunc: func(ctx context.Context, id, viewerID string) (*posts.View, error) {
			assert.Empty(t, viewerID)
			return postView("p1", "2"), nil
		},
	}
	h := NewHandler(svc, zerolog.Nop())

	req := newRequest(t, http.MethodGet, "/api/posts/p1", "", map[string]string{"id": "p1"}, nil)
	w := httptest.NewRecorder()
	h.HandleGet(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetMissingIs404(t *testing.T) {
	svc := &mockPostService{
		getFunc: func(ctx context.Context, id, viewerID string) (*posts.View, error) {
			return nil, posts.ErrPostNotFound
		},
	}
	h := NewHandler(svc, zerolog.Nop())

	req := newRequest(t, http.MethodGet, "/api/posts/gone", "", map[string]string{"id": "gone"}, nil)
	w := httptest.NewRecorder()
	h.HandleGet(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Post not found", decode(t, w).Error)
}

func TestDeleteNotAuthor(t *testing.T) {
	svc := &mockPostService{
		deleteFunc: func(ctx context.Context, id, actorID string) error {
			return posts.ErrNotAuthorized
		},
	}
	h := NewHandler(svc, zerolog.Nop())

	req := newRequest(t, http.MethodDelete, "/api/posts/p1", "9", map[string]string{"id": "p1"}, nil)
	w := httptest.NewRecorder()
	h.HandleDelete(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLikeReturnsCount(t *testing.T) {
	svc := &mockPostService{
		likeFunc: func(ctx context.Context, id, userID string) (int, error) {
			return 4, nil
		},
	}
	h := NewHandler(svc, zerolog.Nop())

	req := newRequest(t, http.MethodPost, "/api/posts/p1/like", "9", map[string]string{"id": "p1"}, nil)
	w := httptest.NewRecorder()
	h.HandleLike(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Liked     bool `json:"liked"`
		LikeCount int  `json:"likeCount"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.True(t, data.Liked)
	assert.Equal(t, 4, data.LikeCount)
}

func TestRepostErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"self repost", posts.ErrSelfRepost, http.StatusBadRequest},
		{"already reposted", posts.ErrAlreadyReposted, http.StatusConflict},
		{"missing post", posts.ErrPostNotFound, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockPostService{
				repostFunc: func(ctx context.Context, id, userID string) (*posts.View, error) {
					return nil, tc.err
				},
			}
			h := NewHandler(svc, zerolog.Nop())

			req := newRequest(t, http.MethodPost, "/api/posts/p1/repost", "9", map[string]string{"id": "p1"}, nil)
			w := httptest.NewRecorder()
			h.HandleRepost(w, req)

			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestThread(t *testing.T) {
	svc := &mockPostService{
		threadFunc: func(ctx context.Context, id, viewerID string) (*posts.Thread, error) {
			return &posts.Thread{
				Post:    *postView(id, "2"),
				Replies: []posts.View{*postView("r1", "3")},
			}, nil
		},
	}
	h := NewHandler(svc, zerolog.Nop())

	req := newRequest(t, http.MethodGet, "/api/posts/p1/thread", "", map[string]string{"id": "p1"}, nil)
	w := httptest.NewRecorder()
	h.HandleThread(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var data posts.Thread
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Equal(t, "p1", data.Post.ID)
	assert.Len(t, data.Replies, 1)
}
