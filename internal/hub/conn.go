// internal/hub/conn.go
package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mfjones/chatter/internal/log"
)

const (
	// sendBufferSize is the per-connection outbound queue depth.
	sendBufferSize = 256

	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	maxMessageSize = 64 * 1024
)

// Conn is one websocket connection. A user may hold several at once; each
// carries its own subscription set and outbound queue. The writer goroutine
// is the only one touching the socket for writes.
type Conn struct {
	id       string
	userID   string
	username string

	ws   *websocket.Conn
	send chan []byte
	done chan struct{}

	closeOnce sync.Once

	// sendMu serializes enqueue with the drop-oldest eviction so two
	// producers cannot both observe a full buffer and pop twice.
	sendMu sync.Mutex
}

func newConn(id, userID, username string, ws *websocket.Conn) *Conn {
	return &Conn{
		id:       id,
		userID:   userID,
		username: username,
		ws:       ws,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
}

// ID returns the connection id.
func (c *Conn) ID() string { return c.id }

// UserID returns the authenticated user id the connection belongs to.
func (c *Conn) UserID() string { return c.userID }

// Username returns the username captured at connect time.
func (c *Conn) Username() string { return c.username }

// Send enqueues an event for delivery. When the buffer is full the oldest
// queued event is evicted so the consumer eventually observes recent state
// rather than an ever-older prefix. The caller is never blocked.
func (c *Conn) Send(evt *Event) {
	data, err := evt.Encode()
	if err != nil {
		log.Error("failed to encode event", "event", evt.Type, "error", err)
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	select {
	case <-c.done:
		return
	default:
	}

	for {
		select {
		case c.send <- data:
			return
		default:
		}
		select {
		case old := <-c.send:
			_ = old
			log.Warn("send buffer full, dropping oldest event", "conn_id", c.id, "user_id", c.userID)
		default:
		}
	}
}

// Close shuts the connection down. Safe to call from any goroutine and any
// number of times.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		// ws is nil for conns that never had a socket attached.
		if c.ws != nil {
			c.ws.Close()
		}
	})
}

// ReadPump reads client events until the socket dies, handing each to the
// dispatch callback. It runs on the goroutine that accepted the upgrade.
func (c *Conn) ReadPump(dispatch func(c *Conn, evt *Event)) {
	defer c.Close()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket read error", "conn_id", c.id, "error", err)
			}
			return
		}

		evt, err := DecodeEvent(data)
		if err != nil {
			c.Send(NewErrorEvent(errorMessage(err)))
			continue
		}
		dispatch(c, evt)
	}
}

// WritePump drains the send queue to the socket and keeps the connection
// alive with pings. One per connection.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
