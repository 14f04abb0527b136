// File: internal/hub/client.go
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxFrameSize   = 32 * 1024
	sendBufferSize = 256
	commandTimeout = 10 * time.Second
)

var errShutdownTimeout = errors.New("hub shutdown timed out")

// Client is one live WebSocket connection. It is bound to exactly one
// authenticated user for its lifetime and destroyed on disconnect.
type Client struct {
	conn  *websocket.Conn
	send  chan []byte
	hub   *Hub
	addr  string
	email string

	userID uuid.UUID

	// closed is guarded by the hub mutex.
	closed bool
}

// NewClient wraps an upgraded connection with the identity the transport
// middleware resolved during the handshake.
func NewClient(conn *websocket.Conn, h *Hub, userID uuid.UUID, email, addr string) *Client {
	if conn != nil {
		conn.SetReadLimit(maxFrameSize)
	}
	return &Client{
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		hub:    h,
		addr:   addr,
		email:  email,
		userID: userID,
	}
}

// UserID returns the stable identifier of the connection's user.
func (c *Client) UserID() uuid.UUID {
	return c.userID
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.hub.logger.Warn("failed to set read deadline", "addr", c.addr, "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) && !isExpectedCloseError(err) {
				c.hub.logger.Warn("websocket read error",
					"addr", c.addr,
					"user_id", c.userID,
					"error", err)
			}
			return
		}
		c.handleCommand(raw)
	}
}

// handleCommand dispatches one client frame. Every failure on this path is
// a silent no-op toward the client: an access denial is indistinguishable
// from a malformed request, so chat existence is never confirmed to
// non-members. Denials are still logged for security monitoring.
func (c *Client) handleCommand(raw []byte) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		c.hub.logger.Debug("discarding malformed command", "addr", c.addr)
		return
	}
	if cmd.ChatID == uuid.Nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch cmd.Type {
	case CommandJoin:
		c.handleJoin(ctx, cmd.ChatID)
	case CommandLeave:
		c.hub.Unsubscribe(c, cmd.ChatID)
	case CommandSend:
		c.handleSend(ctx, cmd)
	default:
		c.hub.logger.Debug("discarding unknown command",
			"type", cmd.Type,
			"addr", c.addr)
	}
}

func (c *Client) handleJoin(ctx context.Context, chatID uuid.UUID) {
	hasAccess, err := c.hub.chatService.HasChatAccess(ctx, c.userID, chatID)
	if err != nil {
		c.hub.logger.Error("join access check failed",
			"user_id", c.userID,
			"chat_id", chatID,
			"error", err)
		return
	}
	if !hasAccess {
		c.hub.logger.Warn("join denied - user has no access to chat",
			"user_id", c.userID,
			"chat_id", chatID)
		return
	}
	c.hub.Subscribe(c, chatID)
	c.hub.logger.Info("client joined chat",
		"user_id", c.userID,
		"chat_id", chatID)
}

func (c *Client) handleSend(ctx context.Context, cmd Command) {
	msg, err := c.hub.chatService.SaveMessage(ctx, c.userID, cmd.ChatID, cmd.Text, cmd.FileURL)
	if err != nil {
		// Fire and forget: rejections and storage failures alike are
		// invisible to the sender. Nothing was broadcast.
		c.hub.logger.Warn("message not sent",
			"user_id", c.userID,
			"chat_id", cmd.ChatID,
			"error", err)
		return
	}

	payload, err := EncodeEvent(EventMessageReceived, msg)
	if err != nil {
		c.hub.logger.Error("failed to encode message event", "error", err)
		return
	}
	c.hub.Broadcast(cmd.ChatID, payload)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !isExpectedCloseError(err) {
					c.hub.logger.Warn("websocket write error",
						"addr", c.addr,
						"error", err)
				}
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) closeConnection() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.hub.logger.Debug("error closing connection", "addr", c.addr, "error", err)
	}
}
