package presence

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10

	defaultSendBuffer = 64
)

// MessageSender persists a chat message announced over the realtime channel.
// It is expected to deliver the resulting message-received event itself.
type MessageSender interface {
	SendRealtime(ctx context.Context, senderID, receiverID, conversationID, text string) error
}

// CodedError lets errors returned by a MessageSender pick the code sent back
// to the client.
type CodedError interface {
	error
	Code() string
}

type Hub struct {
	registry   *Registry
	sender     MessageSender
	upgrader   websocket.Upgrader
	sendBuffer int
	logger     *slog.Logger
}

type HubOption func(*Hub)

func WithSendBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

func WithCheckOrigin(fn func(r *http.Request) bool) HubOption {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = fn
	}
}

func NewHub(registry *Registry, sender MessageSender, logger *slog.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		registry:   registry,
		sender:     sender,
		sendBuffer: defaultSendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.With("component", "hub"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve upgrades the request and pumps events until the connection closes.
// authUID is the authenticated caller; when non-empty, announces and sends
// for any other user are refused.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, authUID string) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{
		id:      uuid.NewString(),
		hub:     h,
		ws:      ws,
		send:    make(chan Event, h.sendBuffer),
		authUID: authUID,
	}
	h.registry.Connect(c)
	h.logger.Debug("connection opened", "conn_id", c.id, "auth_uid", authUID)

	go c.writePump()
	c.readPump(r.Context())
	return nil
}

type client struct {
	id      string
	hub     *Hub
	ws      *websocket.Conn
	authUID string

	mu     sync.Mutex
	send   chan Event
	closed bool
}

func (c *client) ID() string {
	return c.id
}

func (c *client) Send(evt Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- evt:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.hub.registry.Disconnect(c.id)
		c.close()
		_ = c.ws.Close()
		c.hub.logger.Debug("connection closed", "conn_id", c.id)
	}()
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var in inboundEvent
		if err := c.ws.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read failed", "conn_id", c.id, "error", err)
			}
			return
		}
		c.handle(ctx, in)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case evt, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) handle(ctx context.Context, in inboundEvent) {
	switch in.Type {
	case EventPresenceAnnounce:
		var p AnnouncePayload
		if err := json.Unmarshal(in.Payload, &p); err != nil || p.UserID == "" {
			c.Send(errorEvent("bad_request", "userId is required"))
			return
		}
		if c.authUID != "" && p.UserID != c.authUID {
			c.Send(errorEvent("forbidden", "cannot announce another user"))
			return
		}
		if !c.hub.registry.Register(p.UserID, c.id) {
			c.Send(errorEvent("already_connected", "user is already online on another connection"))
		}
	case EventMessageSent:
		var p MessageSentPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			c.Send(errorEvent("bad_request", "invalid payload"))
			return
		}
		uid, ok := c.hub.registry.UserFor(c.id)
		if !ok || uid != p.SenderID {
			c.Send(errorEvent("forbidden", "announce presence as the sender first"))
			return
		}
		if c.hub.sender == nil {
			return
		}
		if err := c.hub.sender.SendRealtime(ctx, p.SenderID, p.ReceiverID, p.ConversationID, p.Text); err != nil {
			code := "internal_error"
			var coded CodedError
			if errors.As(err, &coded) {
				code = coded.Code()
			}
			c.Send(errorEvent(code, err.Error()))
		}
	default:
		c.Send(errorEvent("bad_request", "unknown event type"))
	}
}
