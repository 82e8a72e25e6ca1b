package response

import (
	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/services/drawing"
)

// Health is the body of the health endpoint
type Health struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
}

// RoomSummary is a compact listing entry for a room
type RoomSummary struct {
	ID           string `json:"id"`
	HostName     string `json:"host_name"`
	PlayerCount  int    `json:"player_count"`
	MaxPlayers   int    `json:"max_players"`
	State        string `json:"state"`
	CurrentRound int    `json:"current_round"`
	Rounds       int    `json:"rounds"`
}

// RoomSummaryFromModel converts a model.Room to a listing entry
func RoomSummaryFromModel(r *model.Room) RoomSummary {
	summary := RoomSummary{
		ID:          string(r.ID),
		PlayerCount: len(r.Players),
		MaxPlayers:  r.Settings.MaxPlayers,
		State:       "lobby",
		Rounds:      r.Settings.Rounds,
	}
	if host := r.Host(); host != nil {
		summary.HostName = host.Name
	}
	if r.GameState != nil {
		summary.State = string(r.GameState.RoomState)
		summary.CurrentRound = r.GameState.CurrentRound
	}
	return summary
}

// RoomList is the body of the room listing endpoint
type RoomList struct {
	Rooms []RoomSummary `json:"rooms"`
}

// Drawing is the replayable canvas of the current turn
type Drawing struct {
	RoomID  string           `json:"room_id"`
	Strokes []drawing.Stroke `json:"strokes"`
}

// DrawingFromLog wraps reconstructed strokes for a room
func DrawingFromLog(id model.RoomID, strokes []drawing.Stroke) Drawing {
	if strokes == nil {
		strokes = []drawing.Stroke{}
	}
	return Drawing{RoomID: string(id), Strokes: strokes}
}
