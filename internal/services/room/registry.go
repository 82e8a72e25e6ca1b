package room

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/mcoot/drawguess/internal/dependencies/random"
	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/storage"
)

// Snapshotter receives serialized rooms for persistence. Calls must not block.
type Snapshotter interface {
	SaveRoom(id model.RoomID, data []byte)
	DeleteRoom(id model.RoomID)
}

type member struct {
	roomID   model.RoomID
	playerID model.PlayerID
}

// Registry owns the canonical set of rooms and the connection indexes used to resolve them.
// Rooms it holds are never mutated in place: writers commit a fresh copy through Store,
// and readers always receive clones. Callers serialize writes for any single room.
type Registry struct {
	snapshots Snapshotter
	random    random.Random
	logger    *slog.Logger

	mu          sync.RWMutex
	rooms       map[model.RoomID]*model.Room
	hostConns   map[model.ConnID]model.RoomID
	memberConns map[model.ConnID]member
}

// NewRegistry creates an empty registry. snapshots may be nil to disable persistence.
func NewRegistry(snapshots Snapshotter, random random.Random, logger *slog.Logger) *Registry {
	return &Registry{
		snapshots:   snapshots,
		random:      random,
		logger:      logger.With(slog.String("component", "registry")),
		rooms:       make(map[model.RoomID]*model.Room),
		hostConns:   make(map[model.ConnID]model.RoomID),
		memberConns: make(map[model.ConnID]member),
	}
}

// CreateRoom creates a room with the host as its only player
func (r *Registry) CreateRoom(host model.PlayerData, conn model.ConnID, settings model.Settings) (*model.Room, error) {
	if settings.MaxPlayers == 0 {
		settings.MaxPlayers = model.DefaultMaxPlayers
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if _, ok := r.memberConns[conn]; ok {
		r.mu.Unlock()
		return nil, model.ErrAlreadyInRoom
	}

	// Generate unique room ID
	var id model.RoomID
	for {
		id = model.RoomID(r.random.UUID())
		if _, exists := r.rooms[id]; !exists {
			break
		}
	}

	player := model.Player{
		ID:     model.PlayerID(r.random.UUID()),
		Name:   host.Name,
		Color:  host.Color,
		ConnID: conn,
		IsHost: true,
	}
	room := &model.Room{
		ID:        id,
		HostID:    player.ID,
		ConnID:    conn,
		Players:   []model.Player{player},
		Settings:  settings,
		GameState: nil,
	}
	r.commitLocked(room)
	r.mu.Unlock()

	r.snapshot(room)
	r.logger.Info("room created",
		slog.String("room_id", string(id)),
		slog.String("host_id", string(player.ID)),
	)
	return room.Clone(), nil
}

// JoinRoom appends a new player to the room. The joined player is the last in Players.
func (r *Registry) JoinRoom(roomID model.RoomID, data model.PlayerData, conn model.ConnID) (*model.Room, error) {
	r.mu.Lock()
	current, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return nil, model.ErrRoomNotFound
	}
	if current.GameState != nil && current.GameState.RoomState != model.RoomStateWaiting {
		r.mu.Unlock()
		return nil, model.ErrGameAlreadyInProgress
	}
	if len(current.Players) >= current.Settings.MaxPlayers {
		r.mu.Unlock()
		return nil, model.ErrRoomFull
	}
	if _, ok := r.memberConns[conn]; ok {
		r.mu.Unlock()
		return nil, model.ErrAlreadyInRoom
	}

	room := current.Clone()
	room.Players = append(room.Players, model.Player{
		ID:     model.PlayerID(r.random.UUID()),
		Name:   data.Name,
		Color:  data.Color,
		ConnID: conn,
	})
	r.commitLocked(room)
	r.mu.Unlock()

	r.snapshot(room)
	return room.Clone(), nil
}

// ChangeSettings merges a partial settings update into the room
func (r *Registry) ChangeSettings(roomID model.RoomID, patch model.SettingsPatch) (*model.Room, error) {
	r.mu.Lock()
	current, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return nil, model.ErrRoomNotFound
	}

	merged := current.Settings.Merge(patch)
	if err := merged.Validate(); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	if merged.MaxPlayers < len(current.Players) {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: maxPlayers below current player count", model.ErrInvalidSettings)
	}

	room := current.Clone()
	room.Settings = merged
	r.commitLocked(room)
	r.mu.Unlock()

	r.snapshot(room)
	return room.Clone(), nil
}

// Rebind points a player (and the room, for the host) at a new connection
func (r *Registry) Rebind(roomID model.RoomID, playerID model.PlayerID, conn model.ConnID) (*model.Room, error) {
	r.mu.Lock()
	current, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return nil, model.ErrRoomNotFound
	}
	if m, ok := r.memberConns[conn]; ok && (m.roomID != roomID || m.playerID != playerID) {
		r.mu.Unlock()
		return nil, model.ErrAlreadyInRoom
	}

	room := current.Clone()
	player := room.Player(playerID)
	if player == nil {
		r.mu.Unlock()
		return nil, model.ErrPlayerNotFound
	}
	player.ConnID = conn
	if playerID == room.HostID {
		room.ConnID = conn
	}
	r.commitLocked(room)
	r.mu.Unlock()

	r.snapshot(room)
	return room.Clone(), nil
}

// Store commits a room the caller has modified. The registry takes ownership of room.
// A room that was deleted in the meantime is not resurrected.
func (r *Registry) Store(room *model.Room) error {
	r.mu.Lock()
	if _, ok := r.rooms[room.ID]; !ok {
		r.mu.Unlock()
		return model.ErrRoomNotFound
	}
	r.commitLocked(room)
	r.mu.Unlock()

	r.snapshot(room)
	return nil
}

// Delete removes the room, its connection bindings and its persisted snapshot
func (r *Registry) Delete(roomID model.RoomID) bool {
	r.mu.Lock()
	room, ok := r.rooms[roomID]
	if ok {
		r.unindexLocked(room)
		delete(r.rooms, roomID)
	}
	r.mu.Unlock()

	if ok {
		if r.snapshots != nil {
			r.snapshots.DeleteRoom(roomID)
		}
		r.logger.Info("room deleted", slog.String("room_id", string(roomID)))
	}
	return ok
}

// Lookup returns a copy of the room
func (r *Registry) Lookup(roomID model.RoomID) (*model.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return room.Clone(), nil
}

// RoomByHostConn returns a copy of the room created by the given connection
func (r *Registry) RoomByHostConn(conn model.ConnID) (*model.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.hostConns[conn]
	if !ok {
		return nil, false
	}
	return r.rooms[id].Clone(), true
}

// MemberByConn resolves a connection to the room and player it is bound to
func (r *Registry) MemberByConn(conn model.ConnID) (model.RoomID, model.PlayerID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.memberConns[conn]
	return m.roomID, m.playerID, ok
}

// List returns copies of every room, ordered by ID
func (r *Registry) List() []*model.Room {
	r.mu.RLock()
	rooms := make([]*model.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms
}

// Len returns the number of rooms
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Hydrate loads every persisted room into the registry, skipping entries that fail to decode
// or that break room invariants. It returns copies of the rooms it loaded.
func (r *Registry) Hydrate(ctx context.Context, store storage.Store) ([]*model.Room, error) {
	entries, err := store.ScanRooms(ctx)
	if err != nil {
		return nil, err
	}

	var loaded []*model.Room
	r.mu.Lock()
	for key, data := range entries {
		var room model.Room
		if err := json.Unmarshal(data, &room); err != nil {
			r.logger.Warn("skipping malformed room snapshot",
				slog.String("room_id", string(key)),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := validateSnapshot(key, &room); err != nil {
			r.logger.Warn("skipping invalid room snapshot",
				slog.String("room_id", string(key)),
				slog.String("error", err.Error()),
			)
			continue
		}
		r.commitLocked(&room)
		loaded = append(loaded, room.Clone())
	}
	r.mu.Unlock()

	sort.Slice(loaded, func(i, j int) bool { return loaded[i].ID < loaded[j].ID })
	r.logger.Info("registry hydrated",
		slog.Int("rooms", len(loaded)),
		slog.Int("skipped", len(entries)-len(loaded)),
	)
	return loaded, nil
}

func validateSnapshot(key model.RoomID, room *model.Room) error {
	switch {
	case room.ID != key:
		return fmt.Errorf("snapshot id %q does not match key", room.ID)
	case len(room.Players) == 0:
		return fmt.Errorf("room has no players")
	case room.Host() == nil:
		return fmt.Errorf("host %q is not a member", room.HostID)
	case room.GameState != nil && room.GameState.RoomState != model.RoomStateWaiting &&
		room.GameState.RoomState != model.RoomStateEnded && room.Player(room.GameState.CurrentDrawerID) == nil:
		return fmt.Errorf("drawer %q is not a member", room.GameState.CurrentDrawerID)
	}
	return nil
}

// commitLocked replaces the stored room and its index entries. Caller must hold r.mu.
func (r *Registry) commitLocked(room *model.Room) {
	if old, ok := r.rooms[room.ID]; ok {
		r.unindexLocked(old)
	}
	r.rooms[room.ID] = room
	if room.ConnID != "" {
		r.hostConns[room.ConnID] = room.ID
	}
	for _, p := range room.Players {
		if p.ConnID != "" {
			r.memberConns[p.ConnID] = member{roomID: room.ID, playerID: p.ID}
		}
	}
}

// unindexLocked drops the room's connection bindings. Caller must hold r.mu.
func (r *Registry) unindexLocked(room *model.Room) {
	if id, ok := r.hostConns[room.ConnID]; ok && id == room.ID {
		delete(r.hostConns, room.ConnID)
	}
	for _, p := range room.Players {
		if m, ok := r.memberConns[p.ConnID]; ok && m.roomID == room.ID {
			delete(r.memberConns, p.ConnID)
		}
	}
}

func (r *Registry) snapshot(room *model.Room) {
	if r.snapshots == nil {
		return
	}
	data, err := json.Marshal(room)
	if err != nil {
		r.logger.Error("failed to serialize room",
			slog.String("room_id", string(room.ID)),
			slog.String("error", err.Error()),
		)
		return
	}
	r.snapshots.SaveRoom(room.ID, data)
}
