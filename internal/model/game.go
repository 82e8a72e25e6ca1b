package model

import (
	"slices"
	"time"
)

// RoomState is the turn state of an active game
type RoomState string

const (
	RoomStateWaiting          RoomState = "waiting"          // Game created, no turn yet
	RoomStatePlayerChooseWord RoomState = "playerChooseWord" // Drawer picking from the word choices
	RoomStateDrawing          RoomState = "drawing"          // Drawer drawing, guessers guessing
	RoomStateGuessed          RoomState = "guessed"          // Every guesser got the word
	RoomStateRoundEnd         RoomState = "roundEnd"         // Turn over, about to rotate
	RoomStateEnded            RoomState = "ended"            // Terminal
)

// GuessItem records one guess attempt in the current turn
type GuessItem struct {
	PlayerID  PlayerID  `json:"playerId"`
	Guess     string    `json:"guess"`
	Correct   bool      `json:"correct"`
	GuessedAt time.Time `json:"guessedAt"`
}

// ScoreEntry is a points award made during a turn
type ScoreEntry struct {
	PlayerID PlayerID `json:"playerId"`
	Points   int      `json:"points"`
}

// GameState is present on a room only while a game is active
type GameState struct {
	CurrentRound    int       `json:"currentRound"` // 1-indexed
	CurrentDrawerID PlayerID  `json:"currentDrawerId"`
	CurrentWord     string    `json:"currentWord"` // empty until the drawer chooses
	LastWord        string    `json:"lastWord"`
	WordChoices     []string  `json:"wordChoices"`
	RoomState       RoomState `json:"roomState"`

	// Players who have held the drawer role in the current round, in order
	DrawnThisRound []PlayerID `json:"drawnThisRound"`

	TimerStartedAt *time.Time `json:"timerStartedAt"`

	// Per-turn logs, cleared at every turn boundary
	DrawingData []DrawPoint `json:"drawingData"`
	Guesses     []GuessItem `json:"guesses"`

	// Round number -> awards in the order they were made. Never cleared.
	RoundScores map[int][]ScoreEntry `json:"roundScores"`
}

// CorrectGuesses returns the number of correct guesses made this turn
func (g *GameState) CorrectGuesses() int {
	n := 0
	for _, guess := range g.Guesses {
		if guess.Correct {
			n++
		}
	}
	return n
}

// AddScore appends an award to the current round's score log
func (g *GameState) AddScore(playerID PlayerID, points int) {
	if g.RoundScores == nil {
		g.RoundScores = make(map[int][]ScoreEntry)
	}
	g.RoundScores[g.CurrentRound] = append(g.RoundScores[g.CurrentRound], ScoreEntry{PlayerID: playerID, Points: points})
}

// Clone returns a deep copy of the game state
func (g *GameState) Clone() *GameState {
	if g == nil {
		return nil
	}
	c := *g
	c.WordChoices = slices.Clone(g.WordChoices)
	c.DrawnThisRound = slices.Clone(g.DrawnThisRound)
	c.DrawingData = make([]DrawPoint, len(g.DrawingData))
	for i, p := range g.DrawingData {
		c.DrawingData[i] = p.Clone()
	}
	c.Guesses = slices.Clone(g.Guesses)
	if g.TimerStartedAt != nil {
		t := *g.TimerStartedAt
		c.TimerStartedAt = &t
	}
	if g.RoundScores != nil {
		c.RoundScores = make(map[int][]ScoreEntry, len(g.RoundScores))
		for round, entries := range g.RoundScores {
			c.RoundScores[round] = slices.Clone(entries)
		}
	}
	return &c
}
