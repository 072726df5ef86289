package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Wire/internal/core/notifications"
	"Wire/internal/core/posts"
)

func dialGateway(t *testing.T, g *Gateway, userID string) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.Serve(w, r, userID)
	}))
	t.Cleanup(srv.Close)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := ws.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestConnectEmitsConnected(t *testing.T) {
	g := NewGateway(zerolog.Nop())
	ws := dialGateway(t, g, "u1")

	f := readFrame(t, ws)
	assert.Equal(t, "connected", f["type"])

	assert.Eventually(t, func() bool { return g.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestPingUpdatesAndPongs(t *testing.T) {
	g := NewGateway(zerolog.Nop())
	ws := dialGateway(t, g, "u1")
	readFrame(t, ws) // connected

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))

	f := readFrame(t, ws)
	assert.Equal(t, "pong", f["type"])
	assert.NotZero(t, f["timestamp"])
}

func TestBroadcastPost(t *testing.T) {
	g := NewGateway(zerolog.Nop())
	ws := dialGateway(t, g, "u1")
	readFrame(t, ws) // connected; also proves registration finished

	g.BroadcastPost("u1", posts.Snapshot{ID: "42", AuthorID: "9", Content: "live"})

	f := readFrame(t, ws)
	assert.Equal(t, "new_post", f["type"])
	post, ok := f["post"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "42", post["id"])
}

func TestPushNotification(t *testing.T) {
	g := NewGateway(zerolog.Nop())
	ws := dialGateway(t, g, "u1")
	readFrame(t, ws)

	g.Push("u1", notifications.Notification{ID: "7", UserID: "u1", Kind: notifications.KindLike})

	f := readFrame(t, ws)
	assert.Equal(t, "notification", f["type"])
	n, ok := f["notification"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "7", n["id"])
}

func TestBroadcastScopedToUser(t *testing.T) {
	g := NewGateway(zerolog.Nop())
	wsA := dialGateway(t, g, "alice")
	wsB := dialGateway(t, g, "bob")
	readFrame(t, wsA)
	readFrame(t, wsB)

	g.BroadcastPost("alice", posts.Snapshot{ID: "1"})

	f := readFrame(t, wsA)
	assert.Equal(t, "new_post", f["type"])

	require.NoError(t, wsB.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := wsB.ReadMessage()
	assert.Error(t, err, "bob must not see alice's feed push")
}

func TestSweepReapsStaleConnections(t *testing.T) {
	g := NewGateway(zerolog.Nop())
	ws := dialGateway(t, g, "u1")
	readFrame(t, ws)

	require.Eventually(t, func() bool { return g.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	// Age the connection past the heartbeat window.
	g.mu.RLock()
	for _, conns := range g.users {
		for _, c := range conns {
			c.lastPing.Store(time.Now().Add(-2 * time.Minute).UnixMilli())
		}
	}
	g.mu.RUnlock()

	g.sweep(time.Now())

	assert.Eventually(t, func() bool { return g.ConnectionCount() == 0 }, time.Second, 10*time.Millisecond)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err, "server side closed the connection")
}

func TestFreshConnectionSurvivesSweep(t *testing.T) {
	g := NewGateway(zerolog.Nop())
	ws := dialGateway(t, g, "u1")
	readFrame(t, ws)

	require.Eventually(t, func() bool { return g.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	g.sweep(time.Now())
	assert.Equal(t, 1, g.ConnectionCount())

	g.BroadcastPost("u1", posts.Snapshot{ID: "1"})
	f := readFrame(t, ws)
	assert.Equal(t, "new_post", f["type"])
}

func TestCloseAll(t *testing.T) {
	g := NewGateway(zerolog.Nop())
	ws := dialGateway(t, g, "u1")
	readFrame(t, ws)

	require.Eventually(t, func() bool { return g.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	g.CloseAll()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return g.ConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
}
