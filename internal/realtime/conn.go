package realtime

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single frame write to a slow peer.
	writeWait = 5 * time.Second

	// maxMessageSize bounds inbound frames; clients only send pings.
	maxMessageSize = 512

	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Bearer auth happens before the upgrade; the origin adds
		// nothing for non-cookie clients.
		return true
	},
}

// conn is one live websocket for a user. lastPing is read by the sweep
// goroutine while the read pump updates it.
type conn struct {
	id     string
	userID string
	ws     *websocket.Conn

	send        chan []byte
	connectedAt time.Time
	lastPing    atomic.Int64
}

func newConn(userID string, ws *websocket.Conn) *conn {
	c := &conn{
		id:          uuid.NewString(),
		userID:      userID,
		ws:          ws,
		send:        make(chan []byte, sendBuffer),
		connectedAt: time.Now().UTC(),
	}
	c.lastPing.Store(c.connectedAt.UnixMilli())
	return c
}

// readPump consumes client frames until the connection dies; the only
// meaningful inbound frame is the application-level ping.
func (c *conn) readPump(g *Gateway) {
	defer func() {
		g.remove(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				g.log.Debug().Err(err).Str("connId", c.id).Msg("websocket read ended")
			}
			return
		}

		var in struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(message, &in); err != nil {
			continue
		}
		if in.Type == framePing {
			c.lastPing.Store(time.Now().UnixMilli())
			c.enqueue(marshalFrame(frame{Type: framePong, Timestamp: time.Now().UnixMilli()}))
		}
	}
}

// writePump drains the send channel onto the wire. A closed channel or
// a failed write ends the connection; the read pump then unregisters.
func (c *conn) writePump() {
	defer c.ws.Close()

	for message := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	c.ws.WriteMessage(websocket.CloseMessage, []byte{})
}

// enqueue offers a frame without blocking; a full buffer drops it.
func (c *conn) enqueue(message []byte) bool {
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *conn) stale(now time.Time, maxAge time.Duration) bool {
	last := time.UnixMilli(c.lastPing.Load())
	return now.Sub(last) > maxAge
}
