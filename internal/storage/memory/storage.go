package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	rooms  map[model.RoomID][]byte
	timers map[model.RoomID]time.Time
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		rooms:  make(map[model.RoomID][]byte),
		timers: make(map[model.RoomID]time.Time),
	}
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, id model.RoomID, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[id] = slices.Clone(data)
	return nil
}

func (s *Storage) DeleteRoom(ctx context.Context, id model.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
	delete(s.timers, id)
	return nil
}

func (s *Storage) ScanRooms(ctx context.Context) (map[model.RoomID][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[model.RoomID][]byte, len(s.rooms))
	for id, data := range s.rooms {
		result[id] = slices.Clone(data)
	}
	return result, nil
}

// Timer operations

func (s *Storage) SaveTimer(ctx context.Context, id model.RoomID, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers[id] = expiry
	return nil
}

func (s *Storage) DeleteTimer(ctx context.Context, id model.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timers, id)
	return nil
}

func (s *Storage) ScanTimers(ctx context.Context) (map[model.RoomID]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[model.RoomID]time.Time, len(s.timers))
	for id, expiry := range s.timers {
		result[id] = expiry
	}
	return result, nil
}

func (s *Storage) Close() error {
	return nil
}
