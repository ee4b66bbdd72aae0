package relay

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/anugrahthomas/video-room/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. 64 KB leaves plenty of room
	// for the largest SDP blobs.
	maxMessageSize = 64 * 1024
)

// Client is a wrapper for a single websocket connection (a participant).
// The hub owns all routing state; the client only moves frames between the
// socket and its channels.
type Client struct {
	// Hub is the hub this client is registered with.
	Hub *Hub

	// Conn is the websocket connection. The hub never touches it; all reads
	// happen in ReadPump and all writes in WritePump.
	Conn *websocket.Conn

	// ID is the connection identifier assigned by the relay at upgrade time.
	// It is opaque to clients and unique for the connection's lifetime.
	ID string

	// Name is the display name, set once on join and immutable afterwards.
	Name string

	// RoomID is the room the client has joined, empty until then.
	RoomID string

	// Send is a buffered channel of outbound messages. The hub writes to it,
	// WritePump drains it onto the socket.
	Send chan *protocol.Message
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// There is at most one reader per connection: all reads happen in this
// goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg protocol.Message
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read error", "conn", c.ID, "err", err)
			}
			break
		}

		c.Hub.Inbound <- &inbound{client: c, msg: &msg}
	}
}

// WritePump pumps messages from the hub to the websocket connection and
// keeps the connection alive with periodic pings.
//
// There is at most one writer per connection: all writes happen in this
// goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(msg); err != nil {
				slog.Warn("websocket write error", "conn", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
