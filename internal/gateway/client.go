package gateway

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/mcoot/drawguess/internal/model"
)

// Client is one websocket connection. It may be bound to at most one room at a time.
type Client struct {
	id          model.ConnID
	conn        *websocket.Conn
	cfg         Config
	limiter     *rate.Limiter
	logger      *slog.Logger
	connectedAt time.Time

	mu       sync.Mutex
	send     chan []byte
	closed   bool
	playerID model.PlayerID
	hub      *Hub
}

func newClient(id model.ConnID, conn *websocket.Conn, cfg Config, logger *slog.Logger) *Client {
	return &Client{
		id:          id,
		conn:        conn,
		cfg:         cfg,
		limiter:     rate.NewLimiter(cfg.RateLimit, cfg.RateBurst),
		logger:      logger.With(slog.String("conn_id", string(id))),
		connectedAt: time.Now(),
		send:        make(chan []byte, cfg.SendBuffer),
	}
}

// PlayerID returns the player the connection is currently bound to
func (c *Client) PlayerID() model.PlayerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

func (c *Client) bind(playerID model.PlayerID, hub *Hub) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
	c.hub = hub
}

// unbind clears the room binding and returns the hub it was attached to
func (c *Client) unbind() *Hub {
	c.mu.Lock()
	defer c.mu.Unlock()
	hub := c.hub
	c.hub = nil
	c.playerID = ""
	return hub
}

// detachFrom clears the binding only if it still points at hub
func (c *Client) detachFrom(hub *Hub) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hub == hub {
		c.hub = nil
		c.playerID = ""
	}
}

// trySend queues a frame without blocking. It reports false if the buffer is full or the client closed.
func (c *Client) trySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// sendEvent queues a direct reply to this connection only
func (c *Client) sendEvent(event model.EventType, payload any) {
	msg, err := encode(event, payload)
	if err != nil {
		c.logger.Error("failed to encode reply", slog.String("error", err.Error()))
		return
	}
	if !c.trySend(msg) {
		c.logger.Warn("reply dropped - client buffer full", slog.String("event", string(event)))
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump owns all writes to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("websocket write failed", slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
