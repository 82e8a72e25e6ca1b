package game

import (
	"log/slog"
	"slices"

	"github.com/mcoot/drawguess/internal/dependencies/clock"
	"github.com/mcoot/drawguess/internal/dependencies/random"
	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/services/drawing"
	"github.com/mcoot/drawguess/internal/services/scoring"
	"github.com/mcoot/drawguess/internal/services/words"
)

// Machine is the sole mutator of a room's game state.
// It works on the *model.Room it is given and holds no per-room state, so callers
// are responsible for serializing calls for the same room and for committing the result.
type Machine struct {
	words  *words.Service
	clock  clock.Clock
	random random.Random
	logger *slog.Logger
	strict bool
}

// NewMachine creates a new game state machine.
// When strict is set an invalid transition panics instead of returning ErrInvalidTransition.
func NewMachine(
	words *words.Service,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
	strict bool,
) *Machine {
	return &Machine{
		words:  words,
		clock:  clock,
		random: random,
		logger: logger.With(slog.String("component", "game")),
		strict: strict,
	}
}

// GuessResult describes the effect of a guess
type GuessResult struct {
	Correct     bool
	Points      int
	DrawerBonus int
	TurnEnded   bool // every guesser got the word and the turn rotated
	GameEnded   bool // the rotation finished the last round
}

// LeaveResult describes the effect of a player leaving
type LeaveResult struct {
	Player model.Player

	// Reason is set when the room must be torn down
	Reason model.GameEndedReason

	TurnEnded bool // the drawer left mid-turn and the turn rotated
	GameEnded bool // that rotation finished the last round
}

// StartGame creates the game state and offers the first drawer their word choices
func (m *Machine) StartGame(room *model.Room, requesterID model.PlayerID) error {
	if requesterID != room.HostID {
		return model.ErrNotHost
	}
	if room.InGame() {
		return model.ErrGameAlreadyInProgress
	}
	if len(room.Players) < 2 {
		return model.ErrNotEnoughPlayers
	}

	for i := range room.Players {
		room.Players[i].Score = 0
		room.Players[i].ResetTurn()
	}

	gs := &model.GameState{
		CurrentRound: 1,
		RoomState:    model.RoomStateWaiting,
		WordChoices:  []string{},
		DrawingData:  []model.DrawPoint{},
		Guesses:      []model.GuessItem{},
		RoundScores:  make(map[int][]model.ScoreEntry),
	}
	drawer := room.Players[m.random.Intn(len(room.Players))]
	gs.CurrentDrawerID = drawer.ID
	gs.DrawnThisRound = []model.PlayerID{drawer.ID}
	gs.WordChoices = m.words.Choose(words.ChoiceCount)

	if err := m.transition(gs, model.RoomStatePlayerChooseWord); err != nil {
		return err
	}
	room.GameState = gs

	m.logger.Info("game started",
		slog.String("room_id", string(room.ID)),
		slog.String("drawer_id", string(drawer.ID)),
		slog.Int("player_count", len(room.Players)),
		slog.Int("rounds", room.Settings.Rounds),
	)
	return nil
}

// SelectWord records the drawer's choice and starts the drawing phase.
// The caller arms the turn timer from GameState.TimerStartedAt.
func (m *Machine) SelectWord(room *model.Room, playerID model.PlayerID, word string) error {
	gs := room.GameState
	if gs == nil || gs.RoomState != model.RoomStatePlayerChooseWord {
		return model.ErrInvalidState
	}
	if playerID != gs.CurrentDrawerID {
		return model.ErrNotDrawer
	}
	if !slices.Contains(gs.WordChoices, word) {
		return model.ErrInvalidWord
	}

	if err := m.transition(gs, model.RoomStateDrawing); err != nil {
		return err
	}
	now := m.clock.Now()
	gs.CurrentWord = word
	gs.WordChoices = []string{}
	gs.TimerStartedAt = &now
	return nil
}

// SubmitGuess evaluates a guess and, if it completes the turn, awards the drawer and rotates
func (m *Machine) SubmitGuess(room *model.Room, playerID model.PlayerID, text string) (GuessResult, error) {
	var result GuessResult

	gs := room.GameState
	if gs == nil || gs.RoomState != model.RoomStateDrawing {
		return result, model.ErrInvalidState
	}
	player := room.Player(playerID)
	if player == nil {
		return result, model.ErrPlayerNotFound
	}
	if playerID == gs.CurrentDrawerID {
		return result, model.ErrDrawerCannotGuess
	}
	if player.Guessed {
		return result, model.ErrAlreadyGuessed
	}

	now := m.clock.Now()
	result.Correct = scoring.IsCorrect(text, gs.CurrentWord)
	gs.Guesses = append(gs.Guesses, model.GuessItem{
		PlayerID:  playerID,
		Guess:     text,
		Correct:   result.Correct,
		GuessedAt: now,
	})
	if !result.Correct {
		return result, nil
	}

	correct := gs.CorrectGuesses()
	result.Points = scoring.GuesserPoints(correct)
	player.Score += result.Points
	player.Guessed = true
	player.GuessedAt = &now
	gs.AddScore(playerID, result.Points)

	if !allGuessed(room) {
		return result, nil
	}

	if err := m.transition(gs, model.RoomStateGuessed); err != nil {
		return result, err
	}
	result.DrawerBonus = scoring.DrawerBonus(scoring.HighestAward(scoring.TurnAwards(correct)), correct)
	if drawer := room.Player(gs.CurrentDrawerID); drawer != nil && result.DrawerBonus > 0 {
		drawer.Score += result.DrawerBonus
		gs.AddScore(drawer.ID, result.DrawerBonus)
	}

	ended, err := m.finishTurn(room)
	if err != nil {
		return result, err
	}
	result.TurnEnded = true
	result.GameEnded = ended
	return result, nil
}

// EndTurnOnTimeout ends the drawing phase when the turn timer expires.
// It reports whether the rotation ended the game.
func (m *Machine) EndTurnOnTimeout(room *model.Room) (bool, error) {
	gs := room.GameState
	if gs == nil || gs.RoomState != model.RoomStateDrawing {
		return false, model.ErrInvalidState
	}
	return m.finishTurn(room)
}

// EndGame forces the game to ENDED. It returns false if no game was active.
func (m *Machine) EndGame(room *model.Room) bool {
	if !room.InGame() {
		return false
	}
	gs := room.GameState
	if err := m.transition(gs, model.RoomStateEnded); err != nil {
		return false
	}
	gs.TimerStartedAt = nil

	m.logger.Info("game ended",
		slog.String("room_id", string(room.ID)),
		slog.Int("round", gs.CurrentRound),
	)
	return true
}

// Draw applies a drawing action from the current drawer
func (m *Machine) Draw(room *model.Room, playerID model.PlayerID, action model.DrawAction, point *model.DrawPoint) error {
	gs := room.GameState
	if gs == nil {
		return model.ErrInvalidState
	}
	if playerID != gs.CurrentDrawerID {
		return model.ErrNotDrawer
	}
	if gs.RoomState != model.RoomStateDrawing {
		return model.ErrInvalidState
	}

	var entry *model.DrawPoint
	if point != nil {
		p := point.Clone()
		p.PlayerID = playerID
		if p.Timestamp.IsZero() {
			p.Timestamp = m.clock.Now()
		}
		entry = &p
	}

	log, err := drawing.Apply(gs.DrawingData, action, entry)
	if err != nil {
		return err
	}
	gs.DrawingData = log
	return nil
}

// RemovePlayer takes a player out of the room.
// Losing the host or dropping below two players ends the game and asks for teardown.
// Losing the drawer mid-turn ends the turn as a timeout would, handing over to the player who followed them.
func (m *Machine) RemovePlayer(room *model.Room, playerID model.PlayerID) (LeaveResult, error) {
	var result LeaveResult

	idx := room.PlayerIndex(playerID)
	if idx < 0 {
		return result, model.ErrPlayerNotFound
	}
	result.Player = room.Players[idx]

	drawerLeft := room.InGame() && room.GameState.CurrentDrawerID == playerID
	room.Players = slices.Delete(room.Players, idx, idx+1)

	switch {
	case playerID == room.HostID:
		m.EndGame(room)
		result.Reason = model.ReasonHostLeft
	case len(room.Players) < 2:
		m.EndGame(room)
		result.Reason = model.ReasonNotEnoughPlayers
	case drawerLeft:
		// idx now points at whoever followed the departed drawer
		ended, err := m.roundEnd(room, idx%len(room.Players))
		if err != nil {
			return result, err
		}
		result.TurnEnded = true
		result.GameEnded = ended
	}
	return result, nil
}

// finishTurn enters ROUND_END and rotates to the player after the current drawer
func (m *Machine) finishTurn(room *model.Room) (bool, error) {
	idx := room.PlayerIndex(room.GameState.CurrentDrawerID)
	return m.roundEnd(room, (idx+1)%len(room.Players))
}

func (m *Machine) roundEnd(room *model.Room, next int) (bool, error) {
	if err := m.transition(room.GameState, model.RoomStateRoundEnd); err != nil {
		return false, err
	}
	return m.advanceAfterRoundEnd(room, next)
}

// advanceAfterRoundEnd resets the turn and hands over to players[next].
// Reaching a player who already drew this round means the rotation wrapped, which starts a new round;
// running past the last round ends the game.
func (m *Machine) advanceAfterRoundEnd(room *model.Room, next int) (bool, error) {
	gs := room.GameState
	for i := range room.Players {
		room.Players[i].ResetTurn()
	}
	gs.Guesses = []model.GuessItem{}
	gs.DrawingData = []model.DrawPoint{}
	gs.LastWord = gs.CurrentWord
	gs.CurrentWord = ""
	gs.WordChoices = []string{}
	gs.TimerStartedAt = nil

	nextDrawer := room.Players[next].ID
	if slices.Contains(gs.DrawnThisRound, nextDrawer) {
		gs.CurrentRound++
		gs.DrawnThisRound = nil
	}
	if gs.CurrentRound > room.Settings.Rounds {
		gs.CurrentRound = room.Settings.Rounds
		if err := m.transition(gs, model.RoomStateEnded); err != nil {
			return false, err
		}
		m.logger.Info("game completed",
			slog.String("room_id", string(room.ID)),
			slog.Int("rounds", room.Settings.Rounds),
		)
		return true, nil
	}

	gs.CurrentDrawerID = nextDrawer
	gs.DrawnThisRound = append(gs.DrawnThisRound, nextDrawer)
	gs.WordChoices = m.words.Choose(words.ChoiceCount)
	if err := m.transition(gs, model.RoomStatePlayerChooseWord); err != nil {
		return false, err
	}

	m.logger.Debug("turn started",
		slog.String("room_id", string(room.ID)),
		slog.String("drawer_id", string(gs.CurrentDrawerID)),
		slog.Int("round", gs.CurrentRound),
	)
	return false, nil
}

// allGuessed reports whether every non-drawer player has guessed the word
func allGuessed(room *model.Room) bool {
	guessers := 0
	for _, p := range room.Players {
		if p.ID == room.GameState.CurrentDrawerID {
			continue
		}
		if !p.Guessed {
			return false
		}
		guessers++
	}
	return guessers > 0
}
