package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		o.printHealthResult(v)
	case RoomList:
		o.printRoomList(v)
	case Room:
		o.printRoom(v)
	case Drawing:
		o.printDrawing(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
}

// RoomSummary response type
type RoomSummary struct {
	ID           string `json:"id"`
	HostName     string `json:"host_name"`
	PlayerCount  int    `json:"player_count"`
	MaxPlayers   int    `json:"max_players"`
	State        string `json:"state"`
	CurrentRound int    `json:"current_round"`
	Rounds       int    `json:"rounds"`
}

// RoomList response type
type RoomList struct {
	Rooms []RoomSummary `json:"rooms"`
}

// Room response type (matches the websocket room payload)
type Room struct {
	ID        string     `json:"id"`
	HostID    string     `json:"hostId"`
	Players   []Player   `json:"players"`
	Settings  Settings   `json:"settings"`
	GameState *GameState `json:"gameState"`
}

// Player response type
type Player struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsHost  bool   `json:"isHost"`
	Score   int    `json:"score"`
	Guessed bool   `json:"guessed"`
}

// Settings response type
type Settings struct {
	MaxPlayers int `json:"maxPlayers"`
	DrawTime   int `json:"drawTime"`
	Rounds     int `json:"rounds"`
}

// GameState response type
type GameState struct {
	CurrentRound    int    `json:"currentRound"`
	CurrentDrawerID string `json:"currentDrawerId"`
	CurrentWord     string `json:"currentWord"`
	LastWord        string `json:"lastWord"`
	RoomState       string `json:"roomState"`
}

// Drawing response type
type Drawing struct {
	RoomID  string   `json:"room_id"`
	Strokes []Stroke `json:"strokes"`
}

// Stroke response type
type Stroke struct {
	PlayerID string           `json:"playerId"`
	Tool     string           `json:"tool"`
	Color    string           `json:"color"`
	Size     float64          `json:"size"`
	Points   []map[string]any `json:"points,omitempty"`
	Shape    map[string]any   `json:"shape,omitempty"`
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
	fmt.Printf("Rooms: %d\n", h.Rooms)
}

func (o *Output) printRoomList(l RoomList) {
	if len(l.Rooms) == 0 {
		fmt.Println("No active rooms")
		return
	}
	for _, r := range l.Rooms {
		progress := ""
		if r.CurrentRound > 0 {
			progress = fmt.Sprintf(" round %d/%d", r.CurrentRound, r.Rounds)
		}
		fmt.Printf("%s  host=%s  players=%d/%d  %s%s\n",
			r.ID, r.HostName, r.PlayerCount, r.MaxPlayers, r.State, progress)
	}
}

func (o *Output) printRoom(r Room) {
	fmt.Printf("Room: %s\n", r.ID)
	fmt.Printf("Settings: %d players max, %ds to draw, %d rounds\n",
		r.Settings.MaxPlayers, r.Settings.DrawTime, r.Settings.Rounds)

	if gs := r.GameState; gs != nil {
		fmt.Printf("State: %s\n", gs.RoomState)
		fmt.Printf("Round: %d/%d\n", gs.CurrentRound, r.Settings.Rounds)
		if gs.CurrentWord != "" {
			fmt.Printf("Word: %s\n", gs.CurrentWord)
		}
		if gs.LastWord != "" {
			fmt.Printf("Last word: %s\n", gs.LastWord)
		}
	} else {
		fmt.Println("State: lobby")
	}

	fmt.Printf("Players (%d):\n", len(r.Players))
	for _, p := range r.Players {
		var tags []string
		if p.IsHost {
			tags = append(tags, "host")
		}
		if r.GameState != nil && r.GameState.CurrentDrawerID == p.ID {
			tags = append(tags, "drawing")
		}
		if p.Guessed {
			tags = append(tags, "guessed")
		}
		suffix := ""
		if len(tags) > 0 {
			suffix = " [" + strings.Join(tags, ", ") + "]"
		}
		fmt.Printf("  - %s (%s) %d pts%s\n", p.Name, p.ID, p.Score, suffix)
	}
}

func (o *Output) printDrawing(d Drawing) {
	fmt.Printf("Room: %s\n", d.RoomID)
	fmt.Printf("Strokes (%d):\n", len(d.Strokes))
	for i, s := range d.Strokes {
		if s.Shape != nil {
			fmt.Printf("  %d. %s shape %v %s\n", i+1, s.Tool, s.Shape["kind"], s.Color)
			continue
		}
		fmt.Printf("  %d. %s %d points %s size %g\n", i+1, s.Tool, len(s.Points), s.Color, s.Size)
	}
}
