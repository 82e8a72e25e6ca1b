package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/mcoot/drawguess/internal/api/apierr"
	"github.com/mcoot/drawguess/internal/dependencies/random"
	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/services/session"
)

// Config holds connection tuning for the gateway
type Config struct {
	WriteWait      time.Duration // time allowed to write a frame
	PongWait       time.Duration // time allowed between pongs
	PingPeriod     time.Duration // must be less than PongWait
	MaxMessageSize int64
	SendBuffer     int

	// Inbound frames per second per connection, with bursts up to RateBurst
	RateLimit rate.Limit
	RateBurst int

	ActionTimeout time.Duration

	// Allowed Origin hosts; empty allows any origin
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the gateway
func DefaultConfig() Config {
	return Config{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 64 * 1024,
		SendBuffer:     256,
		RateLimit:      60,
		RateBurst:      120,
		ActionTimeout:  5 * time.Second,
	}
}

// Gateway terminates client websockets and maps their events onto the session engine
type Gateway struct {
	engine   *session.Engine
	hubs     *HubManager
	random   random.Random
	cfg      Config
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu     sync.Mutex
	conns  map[*Client]struct{}
	closed bool
}

// New creates a gateway. hubs must be the publisher the engine was built with.
func New(engine *session.Engine, hubs *HubManager, random random.Random, cfg Config, logger *slog.Logger) *Gateway {
	g := &Gateway{
		engine: engine,
		hubs:   hubs,
		random: random,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "gateway")),
		conns:  make(map[*Client]struct{}),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

// ServeHTTP upgrades the request and serves the connection until it closes
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if g.isClosed() {
		apierr.WriteError(w, session.ErrClosed)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := newClient(model.ConnID(g.random.UUID()), conn, g.cfg, g.logger)
	if !g.track(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(g.cfg.WriteWait))
		_ = conn.Close()
		return
	}
	defer g.untrack(client)
	client.logger.Info("client connected", slog.String("remote_addr", r.RemoteAddr))

	go client.writePump()
	g.readPump(client)
	g.disconnect(client)
}

// Close refuses new connections and closes every open one with a going-away frame.
// Shut the engine down first so the resulting disconnects do not remove players from their rooms.
func (g *Gateway) Close() {
	g.mu.Lock()
	g.closed = true
	clients := make([]*Client, 0, len(g.conns))
	for c := range g.conns {
		clients = append(clients, c)
	}
	g.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	deadline := time.Now().Add(g.cfg.WriteWait)
	for _, c := range clients {
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = c.conn.Close()
	}
	g.logger.Info("gateway closed", slog.Int("connections", len(clients)))
}

// ConnCount returns the number of open connections
func (g *Gateway) ConnCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.conns)
}

func (g *Gateway) track(c *Client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.conns[c] = struct{}{}
	return true
}

func (g *Gateway) untrack(c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.conns, c)
}

func (g *Gateway) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

func (g *Gateway) readPump(c *Client) {
	c.conn.SetReadLimit(g.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(g.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(g.cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}

		if !c.limiter.Allow() {
			g.replyError(c, "", apierr.ErrRateLimited)
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			g.replyError(c, "", apierr.NewInvalidRequestError("malformed frame"))
			continue
		}
		g.dispatch(c, env)
	}
}

// dispatch applies one inbound event. Failures go back to the sender only.
func (g *Gateway) dispatch(c *Client, env Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.ActionTimeout)
	defer cancel()

	var err error
	switch env.Event {
	case model.EventCreateRoom:
		err = g.createRoom(ctx, c, env.Data)
	case model.EventJoinRoom:
		err = g.joinRoom(ctx, c, env.Data)
	case model.EventRejoinRoom:
		err = g.rejoinRoom(ctx, c, env.Data)
	case model.EventLeaveRoom:
		err = g.leaveRoom(ctx, c)
	case model.EventChangeRoomSettings:
		err = g.changeSettings(ctx, c, env.Data)
	case model.EventStartGame:
		err = g.startGame(ctx, c, env.Data)
	case model.EventWordSelect:
		err = g.selectWord(ctx, c, env.Data)
	case model.EventDrawingData:
		err = g.drawingData(ctx, c, env.Data)
	case model.EventGuessMade:
		err = g.guess(ctx, c, env.Data)
	default:
		err = apierr.NewInvalidRequestError(fmt.Sprintf("unknown event %q", env.Event))
	}

	if err != nil {
		g.replyError(c, env.Event, err)
	}
}

func (g *Gateway) createRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	req, err := decode[createRoomRequest](data)
	if err != nil {
		return err
	}
	if strings.TrimSpace(req.Name) == "" {
		return apierr.NewInvalidRequestError("name is required")
	}

	settings := model.Settings{MaxPlayers: req.MaxPlayers, DrawTime: req.DrawTime, Rounds: req.Rounds}
	created, err := g.engine.CreateRoom(ctx, model.PlayerData{Name: req.Name, Color: req.Color}, c.id, settings)
	if err != nil {
		return err
	}
	g.enter(c, model.EventRoomCreated, created, created.HostID)
	return nil
}

func (g *Gateway) joinRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	req, err := decode[joinRoomRequest](data)
	if err != nil {
		return err
	}
	if strings.TrimSpace(req.PlayerData.Name) == "" {
		return apierr.NewInvalidRequestError("name is required")
	}

	joined, playerID, err := g.engine.JoinRoom(ctx, req.RoomID, req.PlayerData, c.id)
	if err != nil {
		return err
	}
	g.enter(c, model.EventJoinedRoom, joined, playerID)
	return nil
}

func (g *Gateway) rejoinRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	req, err := decode[rejoinRoomRequest](data)
	if err != nil {
		return err
	}

	rebound, err := g.engine.Rejoin(ctx, req.RoomID, req.PlayerID, c.id)
	if err != nil {
		return err
	}
	g.enter(c, model.EventJoinedRoom, rebound, req.PlayerID)
	return nil
}

func (g *Gateway) leaveRoom(ctx context.Context, c *Client) error {
	g.detach(c)
	_, err := g.engine.LeaveByConn(ctx, c.id)
	return err
}

func (g *Gateway) changeSettings(ctx context.Context, c *Client, data json.RawMessage) error {
	req, err := decode[changeSettingsRequest](data)
	if err != nil {
		return err
	}
	roomID, playerID, err := g.member(c, req.RoomID, "")
	if err != nil {
		return err
	}
	_, err = g.engine.ChangeSettings(ctx, roomID, playerID, req.NewSettings)
	return err
}

func (g *Gateway) startGame(ctx context.Context, c *Client, data json.RawMessage) error {
	req, err := decode[startGameRequest](data)
	if err != nil {
		return err
	}
	roomID, playerID, err := g.member(c, req.RoomID, req.PlayerID)
	if err != nil {
		return err
	}
	_, err = g.engine.StartGame(ctx, roomID, playerID)
	return err
}

func (g *Gateway) selectWord(ctx context.Context, c *Client, data json.RawMessage) error {
	req, err := decode[wordSelectRequest](data)
	if err != nil {
		return err
	}
	roomID, playerID, err := g.member(c, req.RoomID, req.PlayerID)
	if err != nil {
		return err
	}
	_, err = g.engine.SelectWord(ctx, roomID, playerID, req.Word)
	return err
}

func (g *Gateway) drawingData(ctx context.Context, c *Client, data json.RawMessage) error {
	req, err := decode[drawingDataRequest](data)
	if err != nil {
		return err
	}
	roomID, playerID, err := g.member(c, req.RoomID, req.PlayerID)
	if err != nil {
		return err
	}
	_, err = g.engine.Draw(ctx, roomID, playerID, req.Action, req.DrawingData)
	return err
}

func (g *Gateway) guess(ctx context.Context, c *Client, data json.RawMessage) error {
	req, err := decode[guessRequest](data)
	if err != nil {
		return err
	}
	roomID, playerID, err := g.member(c, req.RoomID, req.PlayerID)
	if err != nil {
		return err
	}
	_, err = g.engine.Guess(ctx, roomID, playerID, req.Guess)
	return err
}

// member resolves the sender from its connection. Claimed IDs must match that identity.
func (g *Gateway) member(c *Client, roomID model.RoomID, playerID model.PlayerID) (model.RoomID, model.PlayerID, error) {
	boundRoom, boundPlayer, ok := g.engine.MemberByConn(c.id)
	if !ok {
		return "", "", model.ErrPlayerNotFound
	}
	if roomID != "" && roomID != boundRoom {
		return "", "", model.ErrPlayerNotFound
	}
	if playerID != "" && playerID != boundPlayer {
		return "", "", model.ErrPlayerNotFound
	}
	return boundRoom, boundPlayer, nil
}

// enter subscribes the client to the room's events and replies with the room as committed
// after the subscription. Changes made between the action and the subscription are never
// broadcast to this client, so the reply must already include them.
func (g *Gateway) enter(c *Client, reply model.EventType, entered *model.Room, playerID model.PlayerID) {
	view := entered
	if current := g.attach(c, entered.ID, playerID); current != nil {
		view = current
	}
	c.sendEvent(reply, view.ViewFor(playerID))
}

// attach subscribes the client to the room's events and returns the room as it stands
// once the subscription is in place, or nil if it has since been torn down
func (g *Gateway) attach(c *Client, roomID model.RoomID, playerID model.PlayerID) *model.Room {
	if old := c.unbind(); old != nil {
		old.Unregister(c)
	}
	hub := g.hubs.GetOrCreateHub(roomID)
	c.bind(playerID, hub)
	hub.Register(c)

	current, err := g.engine.Snapshot(roomID)
	if err != nil {
		// The room may have been torn down before the hub existed
		if errors.Is(err, model.ErrRoomNotFound) {
			g.hubs.RemoveHub(roomID)
		}
		return nil
	}
	return current
}

func (g *Gateway) detach(c *Client) {
	if hub := c.unbind(); hub != nil {
		hub.Unregister(c)
	}
}

// disconnect treats a closed connection as leaving its room
func (g *Gateway) disconnect(c *Client) {
	g.detach(c)

	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.ActionTimeout)
	defer cancel()
	_, err := g.engine.LeaveByConn(ctx, c.id)
	if err != nil && !errors.Is(err, model.ErrPlayerNotFound) && !errors.Is(err, session.ErrClosed) {
		c.logger.Warn("implicit leave failed", slog.String("error", err.Error()))
	}

	c.close()
	c.logger.Info("client disconnected",
		slog.Duration("connection_duration", time.Since(c.connectedAt)))
}

func (g *Gateway) replyError(c *Client, event model.EventType, err error) {
	described := apierr.Describe(err)
	if described.Code == apierr.CodeInternalError {
		c.logger.Error("action failed",
			slog.String("event", string(event)),
			slog.String("error", err.Error()))
	} else {
		c.logger.Debug("action rejected",
			slog.String("event", string(event)),
			slog.String("code", described.Code))
	}
	c.sendEvent(model.EventError, described)
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	if len(g.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return slices.Contains(g.cfg.AllowedOrigins, u.Host)
}
