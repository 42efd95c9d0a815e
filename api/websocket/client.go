package websocket

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/OldStager01/predictive-scaler/internal/logger"
	"github.com/OldStager01/predictive-scaler/pkg/models"
)

// Client is one event stream subscriber. It receives every forwarded event
// unless it narrowed its filter with ?events= or a subscribe message.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	settings *WebSocketSettings

	mu     sync.RWMutex
	filter map[models.EventType]bool
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, events []string) *Client {
	c := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, hub.settings.ClientBuffer),
		settings: hub.settings,
	}
	c.setFilter(events)
	return c
}

func (c *Client) setFilter(events []string) {
	filter := make(map[models.EventType]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			filter[models.EventType(e)] = true
		}
	}

	c.mu.Lock()
	c.filter = filter
	c.mu.Unlock()
}

// Wants reports whether the client is subscribed to t.
func (c *Client) Wants(t models.EventType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return t == "" || len(c.filter) == 0 || c.filter[t]
}

func (c *Client) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.filter))
	for t := range c.filter {
		out = append(out, string(t))
	}
	return out
}

// trySend queues data without blocking. It reports false when the buffer
// is full or the client is gone.
func (c *Client) trySend(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.settings.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.settings.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.settings.PongTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("WebSocket error: %v", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.handleMessage(&msg)
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.settings.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case "subscribe":
		c.setFilter(msg.Events)
		c.sendConfirmation("subscribed")
	case "unsubscribe":
		c.setFilter(nil)
		c.sendConfirmation("unsubscribed")
	}
}

func (c *Client) sendConfirmation(action string) {
	msg := &OutgoingMessage{
		Type:      MessageTypeSubscription,
		Timestamp: time.Now(),
		Message:   action,
		Data:      gin.H{"events": c.Subscriptions()},
	}
	if !c.trySend(msg.JSON()) {
		logger.Warn("Client send channel full, dropping confirmation")
	}
}

// ServeWebSocket upgrades the request and attaches the client to hub.
// ?events=a,b narrows the stream to those event types.
func ServeWebSocket(hub *Hub) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  hub.settings.ReadBufferSize,
		WriteBufferSize: hub.settings.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return func(c *gin.Context) {
		if hub.ClientCount() >= hub.settings.MaxConnections {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many websocket connections"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Errorf("WebSocket upgrade failed: %v", err)
			return
		}

		var events []string
		if raw := c.Query("events"); raw != "" {
			events = strings.Split(raw, ",")
		}

		client := NewClient(hub, conn, events)
		if !hub.Register(client) {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server full"))
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}
