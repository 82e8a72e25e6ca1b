package gateway

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/services/session"
)

const hubBufferSize = 256

// Hub fans a room's events out to its connected clients
type Hub struct {
	roomID  model.RoomID
	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	// Channels for managing clients
	register   chan *Client
	unregister chan *Client
	broadcast  chan model.Event
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a new Hub for a room
func NewHub(roomID model.RoomID, logger *slog.Logger) *Hub {
	return &Hub{
		roomID:     roomID,
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("room_id", string(roomID))),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan model.Event, hubBufferSize),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Debug("hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client registered",
				slog.String("player_id", string(client.PlayerID())),
				slog.Int("total_clients", clientCount))

		case client := <-h.unregister:
			h.mu.Lock()
			delete(h.clients, client)
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client unregistered",
				slog.Duration("connection_duration", time.Since(client.connectedAt)),
				slog.Int("total_clients", clientCount))

		case event := <-h.broadcast:
			h.deliver(event)

		case <-h.done:
			// Events published before the hub was closed still go out
		drain:
			for {
				select {
				case event := <-h.broadcast:
					h.deliver(event)
				default:
					break drain
				}
			}
			h.mu.Lock()
			clientCount := len(h.clients)
			for client := range h.clients {
				client.detachFrom(h)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Debug("hub stopped", slog.Int("detached_clients", clientCount))
			return
		}
	}
}

// deliver renders the event per recipient so each player gets their own view of the room
func (h *Hub) deliver(event model.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sentCount := 0
	droppedCount := 0
	for client := range h.clients {
		msg, err := encodeRoomEvent(event, client.PlayerID())
		if err != nil {
			h.logger.Error("failed to encode event",
				slog.String("event", string(event.Type)),
				slog.String("error", err.Error()))
			return
		}
		if client.trySend(msg) {
			sentCount++
		} else {
			droppedCount++
			h.logger.Warn("message dropped - client buffer full",
				slog.String("player_id", string(client.PlayerID())))
		}
	}
	if droppedCount > 0 {
		h.logger.Warn("broadcast partial failure",
			slog.String("event", string(event.Type)),
			slog.Int("sent", sentCount),
			slog.Int("dropped", droppedCount))
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues an event for every client
func (h *Hub) Broadcast(event model.Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast dropped - hub buffer full", slog.String("event", string(event.Type)))
	}
}

// Close shuts down the hub
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HubManager manages hubs for all rooms and publishes engine events to them
type HubManager struct {
	hubs   map[model.RoomID]*Hub
	mu     sync.RWMutex
	logger *slog.Logger
}

// Ensure HubManager implements the publisher the engine emits through
var _ session.Publisher = (*HubManager)(nil)

// NewHubManager creates a new HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[model.RoomID]*Hub),
		logger: logger.With(slog.String("component", "hub")),
	}
}

// GetOrCreateHub returns the hub for a room, creating one if it doesn't exist
func (m *HubManager) GetOrCreateHub(roomID model.RoomID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[roomID]; ok {
		return hub
	}

	hub := NewHub(roomID, m.logger)
	m.hubs[roomID] = hub
	go hub.Run()
	return hub
}

// GetHub returns the hub for a room, or nil if it doesn't exist
func (m *HubManager) GetHub(roomID model.RoomID) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[roomID]
}

// RemoveHub removes and closes a hub
func (m *HubManager) RemoveHub(roomID model.RoomID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[roomID]; ok {
		hub.Close()
		delete(m.hubs, roomID)
		m.logger.Debug("hub removed", slog.String("room_id", string(roomID)))
	}
}

// Publish broadcasts an event to the room's clients. Rooms nobody is connected to are skipped.
func (m *HubManager) Publish(roomID model.RoomID, event model.Event) {
	if hub := m.GetHub(roomID); hub != nil {
		hub.Broadcast(event)
	}
}

// CloseRoom drops the room's hub once the room is torn down
func (m *HubManager) CloseRoom(roomID model.RoomID) {
	m.RemoveHub(roomID)
}

// Close shuts down every hub
func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, hub := range m.hubs {
		hub.Close()
		delete(m.hubs, id)
	}
}

// Len returns the number of live hubs
func (m *HubManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hubs)
}
