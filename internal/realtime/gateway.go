// Package realtime owns the live websocket connections, one set per
// user. Delivery is best-effort: clients poll the same data over HTTP,
// so a dropped frame or a reaped connection costs nothing durable.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"Wire/internal/core/notifications"
	"Wire/internal/core/posts"
	"Wire/internal/metrics"
)

// Frame types on the wire.
const (
	frameConnected    = "connected"
	framePing         = "ping"
	framePong         = "pong"
	frameNewPost      = "new_post"
	frameNotification = "notification"
)

const (
	sweepInterval = 30 * time.Second
	staleAfter    = 60 * time.Second
)

type frame struct {
	Type         string `json:"type"`
	Timestamp    int64  `json:"timestamp,omitempty"`
	Post         any    `json:"post,omitempty"`
	Notification any    `json:"notification,omitempty"`
}

func marshalFrame(f frame) []byte {
	raw, err := json.Marshal(f)
	if err != nil {
		return []byte(`{"type":"error"}`)
	}
	return raw
}

// Gateway tracks every user's live connections and fans frames out to
// them.
type Gateway struct {
	mu    sync.RWMutex
	users map[string]map[string]*conn
	log   zerolog.Logger
}

func NewGateway(log zerolog.Logger) *Gateway {
	return &Gateway{users: make(map[string]map[string]*conn), log: log}
}

// Serve upgrades the request and attaches the connection to userID.
// The caller has already authenticated the user.
func (g *Gateway) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := newConn(userID, ws)
	g.add(c)

	c.enqueue(marshalFrame(frame{Type: frameConnected}))

	go c.writePump()
	go c.readPump(g)
}

// Run sweeps stale connections until ctx is canceled. A connection that
// has not pinged for over a minute is closed; its pumps unwind and
// unregister it.
func (g *Gateway) Run(ctx context.Context) error {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			g.CloseAll()
			return ctx.Err()
		case <-ticker.C:
			g.sweep(time.Now())
		}
	}
}

// BroadcastPost pushes a freshly fanned-out post to every live
// connection of userID.
func (g *Gateway) BroadcastPost(userID string, snap posts.Snapshot) {
	g.broadcast(userID, marshalFrame(frame{
		Type:      frameNewPost,
		Timestamp: time.Now().UnixMilli(),
		Post:      snap,
	}))
}

// Push delivers a stored notification live. Satisfies the notification
// service's pusher collaborator.
func (g *Gateway) Push(userID string, n notifications.Notification) {
	g.broadcast(userID, marshalFrame(frame{
		Type:         frameNotification,
		Timestamp:    time.Now().UnixMilli(),
		Notification: n,
	}))
}

// ConnectionCount reports the live connection total across users.
func (g *Gateway) ConnectionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	total := 0
	for _, conns := range g.users {
		total += len(conns)
	}
	return total
}

// CloseAll tears down every connection, for shutdown.
func (g *Gateway) CloseAll() {
	g.mu.RLock()
	var all []*conn
	for _, conns := range g.users {
		for _, c := range conns {
			all = append(all, c)
		}
	}
	g.mu.RUnlock()

	for _, c := range all {
		c.ws.Close()
	}
}

func (g *Gateway) add(c *conn) {
	g.mu.Lock()
	conns, ok := g.users[c.userID]
	if !ok {
		conns = make(map[string]*conn)
		g.users[c.userID] = conns
	}
	conns[c.id] = c
	g.mu.Unlock()

	metrics.WSConnections.Inc()
	g.log.Debug().Str("userId", c.userID).Str("connId", c.id).Msg("websocket connected")
}

func (g *Gateway) remove(c *conn) {
	g.mu.Lock()
	conns, ok := g.users[c.userID]
	if ok {
		if _, live := conns[c.id]; live {
			delete(conns, c.id)
			if len(conns) == 0 {
				delete(g.users, c.userID)
			}
			close(c.send)
			metrics.WSConnections.Dec()
			g.log.Debug().Str("userId", c.userID).Str("connId", c.id).Msg("websocket disconnected")
		}
	}
	g.mu.Unlock()
}

// broadcast offers the frame to each of the user's connections. A full
// send buffer marks the connection dead, mirroring a failed write.
func (g *Gateway) broadcast(userID string, message []byte) {
	g.mu.RLock()
	var dead []*conn
	for _, c := range g.users[userID] {
		if !c.enqueue(message) {
			dead = append(dead, c)
		}
	}
	g.mu.RUnlock()

	for _, c := range dead {
		g.remove(c)
		c.ws.Close()
	}
}

func (g *Gateway) sweep(now time.Time) {
	g.mu.RLock()
	var stale []*conn
	for _, conns := range g.users {
		for _, c := range conns {
			if c.stale(now, staleAfter) {
				stale = append(stale, c)
			}
		}
	}
	g.mu.RUnlock()

	for _, c := range stale {
		g.log.Info().Str("userId", c.userID).Str("connId", c.id).Msg("reaping stale websocket")
		g.remove(c)
		c.ws.Close()
	}
}
