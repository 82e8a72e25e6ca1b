package redis

import (
	"fmt"
	"strings"

	"github.com/mcoot/drawguess/internal/model"
)

// Key prefixes. These are part of the persisted layout and must not change.
const (
	roomKeyPrefix  = "room:"
	timerKeyPrefix = "drawtimer:"
)

// roomKey returns the Redis key for a room snapshot
func roomKey(id model.RoomID) string {
	return fmt.Sprintf("%s%s", roomKeyPrefix, id)
}

// timerKey returns the Redis key for a room's draw timer expiry
func timerKey(id model.RoomID) string {
	return fmt.Sprintf("%s%s", timerKeyPrefix, id)
}

// roomIDFromKey strips the given prefix from a scanned key
func roomIDFromKey(key, prefix string) model.RoomID {
	return model.RoomID(strings.TrimPrefix(key, prefix))
}
