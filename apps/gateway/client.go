package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mahaj/dost-chat/pkg/auth"
	"github.com/mahaj/dost-chat/pkg/model"
	"github.com/mahaj/dost-chat/pkg/room"
	"github.com/mahaj/dost-chat/pkg/store"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Client is one websocket connection. It starts unauthenticated; the
// first inbound event must be a handshake carrying a valid token, and
// nothing else is accepted until that completes.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound frames.
	send chan []byte

	// Set by a successful handshake; nil means unauthenticated.
	user *model.User

	// Guarded by hub.mu; true once send has been closed.
	closed bool
}

// enqueue queues a frame without blocking; a stalled consumer just
// misses frames. The caller must hold the hub lock.
func (c *Client) enqueue(raw []byte) {
	if c.closed {
		return
	}
	select {
	case c.send <- raw:
	default:
	}
}

func (c *Client) sendEvent(t model.EventType, payload any) {
	raw, err := model.NewEvent(t, payload)
	if err != nil {
		c.hub.log.Error().Err(err).Str("event", string(t)).Msg("failed to encode event")
		return
	}
	c.hub.mu.RLock()
	c.enqueue(raw)
	c.hub.mu.RUnlock()
}

func (c *Client) sendError(code, message string) {
	c.sendEvent(model.EventError, model.ErrorPayload{Code: code, Message: message})
}

// handleEvent dispatches one inbound event. It returns false when the
// connection must be closed.
func (c *Client) handleEvent(ctx context.Context, raw []byte) bool {
	var evt model.Event
	if err := json.Unmarshal(raw, &evt); err != nil {
		c.sendError(model.CodeValidation, "malformed event")
		return true
	}

	if c.user == nil && evt.Type != model.EventHandshake {
		c.sendError(model.CodeAuth, "handshake required")
		return false
	}

	switch evt.Type {
	case model.EventHandshake:
		return c.handleHandshake(ctx, evt.Data)

	case model.EventJoinChat:
		var p model.JoinChatPayload
		if err := json.Unmarshal(evt.Data, &p); err != nil || p.OtherUserID == "" {
			c.sendError(model.CodeValidation, "otherUserId is required")
			return true
		}
		c.hub.Join(c, room.Key(c.user.ID, p.OtherUserID))
		return true

	case model.EventSendMessage:
		var p model.SendMessagePayload
		if err := json.Unmarshal(evt.Data, &p); err != nil {
			c.sendError(model.CodeValidation, "malformed send_message payload")
			return true
		}
		c.hub.SendMessage(ctx, c, p)
		return true

	default:
		// Unknown inbound events are ignored for forward compatibility.
		return true
	}
}

func (c *Client) handleHandshake(ctx context.Context, data json.RawMessage) bool {
	if c.user != nil {
		// Already authenticated; a repeated handshake is a no-op.
		return true
	}

	var p model.HandshakePayload
	if err := json.Unmarshal(data, &p); err != nil || p.Token == "" {
		c.sendError(model.CodeAuth, "authentication token is required")
		return false
	}

	claims, err := auth.ValidateToken(p.Token)
	if err != nil {
		c.sendError(model.CodeAuth, "invalid authentication token")
		return false
	}

	user, err := c.hub.store.UserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.sendError(model.CodeAuth, "unknown user")
		} else {
			c.hub.log.Error().Err(err).Msg("handshake user lookup failed")
			c.sendError(model.CodeAuth, "authentication failed")
		}
		return false
	}

	c.user = &user
	c.hub.Register(c)
	return true
}

// readPump pumps events from the websocket connection into the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug().Err(err).Msg("read error")
			}
			break
		}
		if !c.handleEvent(context.Background(), raw) {
			break
		}
	}
}

// writePump pumps frames from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case raw, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// serveWs upgrades an incoming connection and starts its pumps. No
// state is touched until the in-band handshake succeeds.
func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256)}

	go client.writePump()
	go client.readPump()
}
