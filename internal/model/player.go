package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// ConnID identifies a live client connection
type ConnID string

// PlayerData is the display information a client supplies when creating or joining a room
type PlayerData struct {
	Name  string `json:"name"`
	Color string `json:"color"` // presentation only
}

// Player represents a room participant
type Player struct {
	ID        PlayerID   `json:"id"`
	Name      string     `json:"name"`
	Color     string     `json:"color"`
	ConnID    ConnID     `json:"socketId"`
	IsHost    bool       `json:"isHost"`
	Score     int        `json:"score"`
	Guessed   bool       `json:"guessed"` // reset each turn
	GuessedAt *time.Time `json:"guessedAt"`
}

// ResetTurn clears the per-turn guess flags
func (p *Player) ResetTurn() {
	p.Guessed = false
	p.GuessedAt = nil
}

func (p Player) clone() Player {
	if p.GuessedAt != nil {
		t := *p.GuessedAt
		p.GuessedAt = &t
	}
	return p
}
