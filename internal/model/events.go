package model

// EventType is a wire-level event name
type EventType string

const (
	// Inbound client events
	EventCreateRoom         EventType = "createRoom"
	EventJoinRoom           EventType = "joinRoom"
	EventRejoinRoom         EventType = "rejoinRoom"
	EventLeaveRoom          EventType = "leaveRoom"
	EventChangeRoomSettings EventType = "changeRoomSettings"
	EventStartGame          EventType = "startGame"
	EventWordSelect         EventType = "wordSelect"
	EventDrawingData        EventType = "drawingData"

	// Outbound direct replies
	EventRoomCreated EventType = "roomCreated"
	EventJoinedRoom  EventType = "joinedRoom"
	EventError       EventType = "error"

	// Outbound room-wide events
	EventPlayerJoined       EventType = "playerJoined"
	EventPlayerLeft         EventType = "playerLeft"
	EventSettingsChanged    EventType = "settingsChanged"
	EventGameStarted        EventType = "gameStarted"
	EventWordSelected       EventType = "wordSelected"
	EventUpdatedDrawingData EventType = "updatedDrawingData"
	EventRoundStarted       EventType = "roundStarted"
	EventGameEnded          EventType = "gameEnded"

	// guessMade is used in both directions
	EventGuessMade EventType = "guessMade"
)

// GameEndedReason explains why a game ended
type GameEndedReason string

const (
	ReasonHostLeft         GameEndedReason = "hostLeft"
	ReasonNotEnoughPlayers GameEndedReason = "notEnoughPlayers"
	ReasonCompleted        GameEndedReason = "completed"
)

// Event is a room-wide notification produced by the session engine
type Event struct {
	Type   EventType
	Room   *Room           // snapshot after the change; never mutated afterwards
	Reason GameEndedReason // only set for gameEnded
}

// GameEndedPayload is the body of a gameEnded event
type GameEndedPayload struct {
	Room   *Room           `json:"room"`
	Reason GameEndedReason `json:"reason"`
}
