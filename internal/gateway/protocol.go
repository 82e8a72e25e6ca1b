package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/mcoot/drawguess/internal/api/apierr"
	"github.com/mcoot/drawguess/internal/model"
)

// Envelope is one websocket frame in either direction
type Envelope struct {
	Event model.EventType `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type createRoomRequest struct {
	Name       string `json:"name"`
	Color      string `json:"color"`
	MaxPlayers int    `json:"maxPlayers"`
	DrawTime   int    `json:"drawTime"`
	Rounds     int    `json:"rounds"`
}

type joinRoomRequest struct {
	RoomID     model.RoomID     `json:"roomId"`
	PlayerData model.PlayerData `json:"playerData"`
}

type rejoinRoomRequest struct {
	RoomID   model.RoomID   `json:"roomId"`
	PlayerID model.PlayerID `json:"playerId"`
}

type changeSettingsRequest struct {
	RoomID      model.RoomID        `json:"roomId"`
	NewSettings model.SettingsPatch `json:"newSettings"`
}

type startGameRequest struct {
	RoomID   model.RoomID   `json:"roomId"`
	PlayerID model.PlayerID `json:"playerId"`
}

type wordSelectRequest struct {
	RoomID   model.RoomID   `json:"roomId"`
	PlayerID model.PlayerID `json:"playerId"`
	Word     string         `json:"word"`
}

type drawingDataRequest struct {
	RoomID      model.RoomID     `json:"roomId"`
	PlayerID    model.PlayerID   `json:"playerId"`
	Action      model.DrawAction `json:"action"`
	DrawingData *model.DrawPoint `json:"drawingData"`
}

type guessRequest struct {
	RoomID   model.RoomID   `json:"roomId"`
	PlayerID model.PlayerID `json:"playerId"`
	Guess    string         `json:"guess"`
}

// decode unmarshals a frame payload, reporting failures as invalid requests
func decode[T any](data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 {
		return v, apierr.NewInvalidRequestError("missing payload")
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, apierr.NewInvalidRequestError("malformed payload")
	}
	return v, nil
}

// encode builds an outbound frame
func encode(event model.EventType, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// encodeRoomEvent renders a room-wide event as the given player should see it
func encodeRoomEvent(event model.Event, viewer model.PlayerID) ([]byte, error) {
	view := event.Room.ViewFor(viewer)
	if event.Type == model.EventGameEnded {
		return encode(event.Type, model.GameEndedPayload{Room: view, Reason: event.Reason})
	}
	return encode(event.Type, view)
}
