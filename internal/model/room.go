package model

import (
	"strings"
	"unicode"
)

// RoomID uniquely identifies a room
type RoomID string

// DefaultMaxPlayers is used when a room is created without an explicit cap
const DefaultMaxPlayers = 8

// Settings holds the configurable parameters of a room
type Settings struct {
	MaxPlayers int `json:"maxPlayers"`
	DrawTime   int `json:"drawTime"` // seconds
	Rounds     int `json:"rounds"`
}

// Validate checks the settings are usable for a game
func (s Settings) Validate() error {
	if s.MaxPlayers < 2 || s.DrawTime <= 0 || s.Rounds <= 0 {
		return ErrInvalidSettings
	}
	return nil
}

// SettingsPatch is a partial settings update; nil fields are left unchanged
type SettingsPatch struct {
	MaxPlayers *int `json:"maxPlayers,omitempty"`
	DrawTime   *int `json:"drawTime,omitempty"`
	Rounds     *int `json:"rounds,omitempty"`
}

// Merge returns a copy of s with the patch fields applied
func (s Settings) Merge(p SettingsPatch) Settings {
	if p.MaxPlayers != nil {
		s.MaxPlayers = *p.MaxPlayers
	}
	if p.DrawTime != nil {
		s.DrawTime = *p.DrawTime
	}
	if p.Rounds != nil {
		s.Rounds = *p.Rounds
	}
	return s
}

// Room is one isolated game session
type Room struct {
	ID       RoomID   `json:"id"`
	HostID   PlayerID `json:"hostId"`
	ConnID   ConnID   `json:"socketId"` // connection that created the room
	Players  []Player `json:"players"`  // join order, also the drawer rotation order
	Settings Settings `json:"settings"`

	// nil while in the lobby
	GameState *GameState `json:"gameState"`
}

// Player returns the player with the given ID, or nil if not found
func (r *Room) Player(id PlayerID) *Player {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return &r.Players[i]
		}
	}
	return nil
}

// PlayerIndex returns the join-order index of the player, or -1
func (r *Room) PlayerIndex(id PlayerID) int {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// PlayerByConn returns the player bound to the given connection, or nil
func (r *Room) PlayerByConn(conn ConnID) *Player {
	if conn == "" {
		return nil
	}
	for i := range r.Players {
		if r.Players[i].ConnID == conn {
			return &r.Players[i]
		}
	}
	return nil
}

// Host returns the host player, or nil if the host has left
func (r *Room) Host() *Player {
	return r.Player(r.HostID)
}

// InGame reports whether a game is running (started and not yet ended)
func (r *Room) InGame() bool {
	return r.GameState != nil && r.GameState.RoomState != RoomStateWaiting && r.GameState.RoomState != RoomStateEnded
}

// Clone returns a deep copy of the room
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Players = make([]Player, len(r.Players))
	for i, p := range r.Players {
		c.Players[i] = p.clone()
	}
	c.GameState = r.GameState.Clone()
	return &c
}

// ViewFor returns a copy of the room as the given player should see it.
// Guessers who have not yet guessed get the current word masked, and the text of correct guesses blanked.
// Only the drawer sees the word choices.
func (r *Room) ViewFor(viewer PlayerID) *Room {
	v := r.Clone()
	gs := v.GameState
	if gs == nil || gs.CurrentDrawerID == viewer {
		return v
	}
	gs.WordChoices = nil
	if gs.CurrentWord == "" || gs.RoomState != RoomStateDrawing {
		return v
	}
	if p := v.Player(viewer); p != nil && p.Guessed {
		return v
	}
	gs.CurrentWord = MaskWord(gs.CurrentWord)
	for i := range gs.Guesses {
		if gs.Guesses[i].Correct {
			gs.Guesses[i].Guess = ""
		}
	}
	return v
}

// MaskWord replaces every letter and digit with an underscore, keeping spaces and punctuation
func MaskWord(word string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return '_'
		}
		return r
	}, word)
}
