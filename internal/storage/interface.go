package storage

import (
	"context"
	"time"

	"github.com/mcoot/drawguess/internal/model"
)

// Store defines the persistence used for restart recovery.
// Room snapshots are opaque serialized bytes; decoding is left to the caller
// so that a malformed entry can be skipped without failing the whole scan.
type Store interface {
	// Room snapshot operations
	SaveRoom(ctx context.Context, id model.RoomID, data []byte) error
	// DeleteRoom also removes the room's timer entry
	DeleteRoom(ctx context.Context, id model.RoomID) error
	ScanRooms(ctx context.Context) (map[model.RoomID][]byte, error)

	// Draw timer operations. Only the absolute expiry instant is stored.
	SaveTimer(ctx context.Context, id model.RoomID, expiry time.Time) error
	DeleteTimer(ctx context.Context, id model.RoomID) error
	ScanTimers(ctx context.Context) (map[model.RoomID]time.Time, error)

	Close() error
}
