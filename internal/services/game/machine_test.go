package game

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/drawguess/internal/dependencies/mocks"
	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/services/words"
	"github.com/mcoot/drawguess/internal/testutil"
)

type MachineSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	words   *words.Service
	machine *Machine
}

func TestMachineSuite(t *testing.T) {
	suite.Run(t, new(MachineSuite))
}

func (s *MachineSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.words = words.New(s.random)
	s.Require().NoError(s.words.LoadWords([]string{"cat", "dog", "fish", "bird", "tree"}))
	s.machine = NewMachine(s.words, s.clock, s.random, testutil.NopLogger(), true)
}

// newRoom returns a lobby with players p1..pn, p1 hosting
func (s *MachineSuite) newRoom(n int) *model.Room {
	room := &model.Room{
		ID:       "room-1",
		HostID:   "p1",
		ConnID:   "conn-1",
		Settings: model.Settings{MaxPlayers: 8, DrawTime: 60, Rounds: 3},
	}
	for i := 1; i <= n; i++ {
		room.Players = append(room.Players, model.Player{
			ID:     model.PlayerID(fmt.Sprintf("p%d", i)),
			Name:   fmt.Sprintf("Player %d", i),
			ConnID: model.ConnID(fmt.Sprintf("conn-%d", i)),
			IsHost: i == 1,
		})
	}
	return room
}

// start begins a game with players[drawerIdx] drawing first.
// With no further queued randomness the word choices are always cat, dog, fish.
func (s *MachineSuite) start(room *model.Room, drawerIdx int) {
	s.random.Reset()
	s.random.QueueIntn(drawerIdx)
	s.Require().NoError(s.machine.StartGame(room, room.HostID))
}

func (s *MachineSuite) drawer(room *model.Room) model.PlayerID {
	return room.GameState.CurrentDrawerID
}

func (s *MachineSuite) selectCat(room *model.Room) {
	s.Require().NoError(s.machine.SelectWord(room, s.drawer(room), "cat"))
}

// timeoutTurn plays one turn that ends on the timer
func (s *MachineSuite) timeoutTurn(room *model.Room) bool {
	s.selectCat(room)
	ended, err := s.machine.EndTurnOnTimeout(room)
	s.Require().NoError(err)
	return ended
}

// StartGame tests

func (s *MachineSuite) TestStartGameSucceeds() {
	room := s.newRoom(3)
	s.start(room, 1)

	gs := room.GameState
	s.Require().NotNil(gs)
	s.Equal(model.RoomStatePlayerChooseWord, gs.RoomState)
	s.Equal(1, gs.CurrentRound)
	s.Equal(model.PlayerID("p2"), gs.CurrentDrawerID)
	s.Equal([]string{"cat", "dog", "fish"}, gs.WordChoices)
	s.Empty(gs.CurrentWord)
	s.Empty(gs.DrawingData)
	s.Empty(gs.Guesses)
}

func (s *MachineSuite) TestStartGameRequiresHost() {
	room := s.newRoom(3)
	err := s.machine.StartGame(room, "p2")
	s.ErrorIs(err, model.ErrNotHost)
	s.Nil(room.GameState)
}

func (s *MachineSuite) TestStartGameRequiresAnotherPlayer() {
	room := s.newRoom(1)
	err := s.machine.StartGame(room, "p1")
	s.ErrorIs(err, model.ErrNotEnoughPlayers)
}

func (s *MachineSuite) TestStartGameTwice() {
	room := s.newRoom(2)
	s.start(room, 0)

	err := s.machine.StartGame(room, "p1")
	s.ErrorIs(err, model.ErrGameAlreadyInProgress)
}

func (s *MachineSuite) TestStartGameResetsScores() {
	room := s.newRoom(2)
	room.Players[0].Score = 40
	room.Players[1].Guessed = true

	s.start(room, 0)
	s.Equal(0, room.Players[0].Score)
	s.False(room.Players[1].Guessed)
}

// SelectWord tests

func (s *MachineSuite) TestSelectWordSucceeds() {
	room := s.newRoom(2)
	s.start(room, 0)

	err := s.machine.SelectWord(room, "p1", "dog")
	s.Require().NoError(err)

	gs := room.GameState
	s.Equal(model.RoomStateDrawing, gs.RoomState)
	s.Equal("dog", gs.CurrentWord)
	s.Empty(gs.WordChoices)
	s.Require().NotNil(gs.TimerStartedAt)
	s.Equal(s.clock.Now(), *gs.TimerStartedAt)
}

func (s *MachineSuite) TestSelectWordWhileDrawingFails() {
	room := s.newRoom(2)
	s.start(room, 0)
	s.selectCat(room)

	err := s.machine.SelectWord(room, "p1", "cat")
	s.ErrorIs(err, model.ErrInvalidState)
}

func (s *MachineSuite) TestSelectWordByNonDrawerFails() {
	room := s.newRoom(2)
	s.start(room, 0)

	err := s.machine.SelectWord(room, "p2", "cat")
	s.ErrorIs(err, model.ErrNotDrawer)
	s.Equal(model.RoomStatePlayerChooseWord, room.GameState.RoomState)
}

func (s *MachineSuite) TestSelectWordNotOffered() {
	room := s.newRoom(2)
	s.start(room, 0)

	err := s.machine.SelectWord(room, "p1", "tree")
	s.ErrorIs(err, model.ErrInvalidWord)
}

func (s *MachineSuite) TestSelectWordWithoutGame() {
	room := s.newRoom(2)
	err := s.machine.SelectWord(room, "p1", "cat")
	s.ErrorIs(err, model.ErrInvalidState)
}

// SubmitGuess tests

func (s *MachineSuite) TestDrawerCannotGuess() {
	room := s.newRoom(3)
	s.start(room, 0)
	s.selectCat(room)

	_, err := s.machine.SubmitGuess(room, "p1", "cat")
	s.ErrorIs(err, model.ErrDrawerCannotGuess)
	s.Empty(room.GameState.Guesses)
}

func (s *MachineSuite) TestIncorrectGuessIsRecorded() {
	room := s.newRoom(3)
	s.start(room, 0)
	s.selectCat(room)

	result, err := s.machine.SubmitGuess(room, "p2", "dog")
	s.Require().NoError(err)
	s.False(result.Correct)
	s.Zero(result.Points)

	s.Require().Len(room.GameState.Guesses, 1)
	s.Equal(model.GuessItem{PlayerID: "p2", Guess: "dog", Correct: false, GuessedAt: s.clock.Now()}, room.GameState.Guesses[0])
	s.False(room.Player("p2").Guessed)
}

func (s *MachineSuite) TestGuessIsCaseInsensitive() {
	room := s.newRoom(3)
	s.start(room, 0)
	s.selectCat(room)

	result, err := s.machine.SubmitGuess(room, "p2", "CAT")
	s.Require().NoError(err)
	s.True(result.Correct)
	s.Equal(9, result.Points)
}

func (s *MachineSuite) TestPaddedGuessIsWrong() {
	room := s.newRoom(3)
	s.start(room, 0)
	s.selectCat(room)

	result, err := s.machine.SubmitGuess(room, "p2", " cat ")
	s.Require().NoError(err)
	s.False(result.Correct)
	s.False(room.Player("p2").Guessed)
	s.Equal(model.RoomStateDrawing, room.GameState.RoomState)
}

func (s *MachineSuite) TestAlreadyGuessed() {
	room := s.newRoom(3)
	s.start(room, 0)
	s.selectCat(room)

	_, err := s.machine.SubmitGuess(room, "p2", "cat")
	s.Require().NoError(err)

	_, err = s.machine.SubmitGuess(room, "p2", "cat")
	s.ErrorIs(err, model.ErrAlreadyGuessed)
	s.Equal(9, room.Player("p2").Score)
}

func (s *MachineSuite) TestGuessBeforeWordSelected() {
	room := s.newRoom(3)
	s.start(room, 0)

	_, err := s.machine.SubmitGuess(room, "p2", "cat")
	s.ErrorIs(err, model.ErrInvalidState)
}

func (s *MachineSuite) TestGuessFromUnknownPlayer() {
	room := s.newRoom(3)
	s.start(room, 0)
	s.selectCat(room)

	_, err := s.machine.SubmitGuess(room, "ghost", "cat")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *MachineSuite) TestGuessPointsDecreaseInOrder() {
	room := s.newRoom(5)
	s.start(room, 0)
	s.selectCat(room)

	for i, id := range []model.PlayerID{"p3", "p5", "p2"} {
		result, err := s.machine.SubmitGuess(room, id, "cat")
		s.Require().NoError(err)
		s.Equal(9-i, result.Points, "guesser %s", id)
		s.False(result.TurnEnded)
	}

	result, err := s.machine.SubmitGuess(room, "p4", "cat")
	s.Require().NoError(err)
	s.Equal(6, result.Points)
	s.True(result.TurnEnded)
	s.Equal(4*4, result.DrawerBonus)
}

func (s *MachineSuite) TestWrongGuessesDoNotAffectOrder() {
	room := s.newRoom(4)
	s.start(room, 0)
	s.selectCat(room)

	_, _ = s.machine.SubmitGuess(room, "p2", "dog")
	_, _ = s.machine.SubmitGuess(room, "p3", "bird")
	result, err := s.machine.SubmitGuess(room, "p3", "cat")
	s.Require().NoError(err)
	s.Equal(9, result.Points)
}

func (s *MachineSuite) TestEndToEndTurn() {
	room := s.newRoom(3)
	s.start(room, 0) // p1 (A) draws; p2 (B) and p3 (C) guess

	s.selectCat(room)

	b, err := s.machine.SubmitGuess(room, "p2", "cat")
	s.Require().NoError(err)
	s.Equal(9, b.Points)

	c, err := s.machine.SubmitGuess(room, "p3", "cat")
	s.Require().NoError(err)
	s.Equal(8, c.Points)
	s.True(c.TurnEnded)
	s.False(c.GameEnded)
	s.Equal(8, c.DrawerBonus)

	s.Equal(8, room.Player("p1").Score)
	s.Equal(9, room.Player("p2").Score)
	s.Equal(8, room.Player("p3").Score)

	gs := room.GameState
	s.Equal(model.RoomStatePlayerChooseWord, gs.RoomState)
	s.Equal(model.PlayerID("p2"), gs.CurrentDrawerID)
	s.Equal(1, gs.CurrentRound)
	s.Equal("cat", gs.LastWord)
	s.Empty(gs.CurrentWord)
	s.Len(gs.WordChoices, 3)
	s.Equal([]model.ScoreEntry{
		{PlayerID: "p2", Points: 9},
		{PlayerID: "p3", Points: 8},
		{PlayerID: "p1", Points: 8},
	}, gs.RoundScores[1])

	for _, p := range room.Players {
		s.False(p.Guessed, "player %s", p.ID)
		s.Nil(p.GuessedAt)
	}
}

func (s *MachineSuite) TestEndToEndTurnKeepsRoundForAnyFirstDrawer() {
	for first := 0; first < 3; first++ {
		room := s.newRoom(3)
		s.start(room, first)
		s.selectCat(room)

		for _, p := range room.Players {
			if p.ID == s.drawer(room) {
				continue
			}
			_, err := s.machine.SubmitGuess(room, p.ID, "cat")
			s.Require().NoError(err)
		}

		s.Equal(model.RoomStatePlayerChooseWord, room.GameState.RoomState, "first drawer %d", first)
		s.Equal(room.Players[(first+1)%3].ID, s.drawer(room), "first drawer %d", first)
		s.Equal(1, room.GameState.CurrentRound, "first drawer %d", first)
	}
}

// Rotation tests

func (s *MachineSuite) TestRotationReturnsToFirstDrawerAfterOneRound() {
	for n := 2; n <= 6; n++ {
		for first := 0; first < n; first++ {
			room := s.newRoom(n)
			room.Settings.Rounds = 5
			s.start(room, first)
			original := s.drawer(room)

			for turn := 1; turn < n; turn++ {
				s.Require().False(s.timeoutTurn(room))
				s.NotEqual(original, s.drawer(room), "n=%d first=%d turn=%d", n, first, turn)
				s.Equal(1, room.GameState.CurrentRound, "n=%d first=%d turn=%d", n, first, turn)
			}

			s.Require().False(s.timeoutTurn(room))
			s.Equal(original, s.drawer(room), "n=%d first=%d", n, first)
			s.Equal(2, room.GameState.CurrentRound, "n=%d first=%d", n, first)
		}
	}
}

func (s *MachineSuite) TestRotationFollowsJoinOrder() {
	room := s.newRoom(4)
	s.start(room, 2)

	var order []model.PlayerID
	for i := 0; i < 4; i++ {
		order = append(order, s.drawer(room))
		s.timeoutTurn(room)
	}
	s.Equal([]model.PlayerID{"p3", "p4", "p1", "p2"}, order)
}

func (s *MachineSuite) TestGameEndsAfterLastRound() {
	room := s.newRoom(2)
	room.Settings.Rounds = 2
	s.start(room, 0)

	s.False(s.timeoutTurn(room))
	s.False(s.timeoutTurn(room))
	s.False(s.timeoutTurn(room))
	s.Equal(2, room.GameState.CurrentRound)

	s.True(s.timeoutTurn(room))
	s.Equal(model.RoomStateEnded, room.GameState.RoomState)
	s.Equal(2, room.GameState.CurrentRound)
	s.Equal("cat", room.GameState.LastWord)
}

func (s *MachineSuite) TestLastGuessOfLastTurnEndsGame() {
	room := s.newRoom(2)
	room.Settings.Rounds = 1
	s.start(room, 0)
	s.timeoutTurn(room)
	s.selectCat(room)

	result, err := s.machine.SubmitGuess(room, "p1", "cat")
	s.Require().NoError(err)
	s.True(result.TurnEnded)
	s.True(result.GameEnded)
	s.Equal(model.RoomStateEnded, room.GameState.RoomState)
	s.Equal(9+4, room.Player("p1").Score+room.Player("p2").Score)
}

// EndTurnOnTimeout tests

func (s *MachineSuite) TestTimeoutClearsTurnLogs() {
	room := s.newRoom(3)
	s.start(room, 0)
	s.selectCat(room)
	s.Require().NoError(s.machine.Draw(room, "p1", model.DrawActionDraw, &model.DrawPoint{Tool: model.ToolBrush, Size: 2}))
	_, err := s.machine.SubmitGuess(room, "p2", "cat")
	s.Require().NoError(err)

	_, err = s.machine.EndTurnOnTimeout(room)
	s.Require().NoError(err)

	gs := room.GameState
	s.Empty(gs.DrawingData)
	s.Empty(gs.Guesses)
	s.Nil(gs.TimerStartedAt)
	s.False(room.Player("p2").Guessed)
	s.Equal(9, room.Player("p2").Score)
	s.Equal(0, room.Player("p1").Score, "no drawer bonus on timeout")
}

func (s *MachineSuite) TestTimeoutOutsideDrawing() {
	room := s.newRoom(2)
	s.start(room, 0)

	_, err := s.machine.EndTurnOnTimeout(room)
	s.ErrorIs(err, model.ErrInvalidState)
	s.Equal(model.RoomStatePlayerChooseWord, room.GameState.RoomState)
}

// EndGame tests

func (s *MachineSuite) TestEndGame() {
	room := s.newRoom(2)
	s.start(room, 0)

	s.True(s.machine.EndGame(room))
	s.Equal(model.RoomStateEnded, room.GameState.RoomState)

	s.False(s.machine.EndGame(room))
}

func (s *MachineSuite) TestEndGameWithoutGameIsNoop() {
	room := s.newRoom(2)
	s.False(s.machine.EndGame(room))
	s.Nil(room.GameState)
}

// Draw tests

func (s *MachineSuite) TestDrawAppendsAndClears() {
	room := s.newRoom(2)
	s.start(room, 0)
	s.selectCat(room)

	for i := 0; i < 3; i++ {
		s.Require().NoError(s.machine.Draw(room, "p1", model.DrawActionDraw, &model.DrawPoint{Tool: model.ToolBrush, Size: 2, X: float64(i)}))
	}
	s.Len(room.GameState.DrawingData, 3)

	s.Require().NoError(s.machine.Draw(room, "p1", model.DrawActionClear, nil))
	s.Empty(room.GameState.DrawingData)

	s.Require().NoError(s.machine.Draw(room, "p1", model.DrawActionDraw, &model.DrawPoint{Tool: model.ToolBrush, Size: 2, X: 4}))
	s.Require().Len(room.GameState.DrawingData, 1)
	s.Equal(float64(4), room.GameState.DrawingData[0].X)
}

func (s *MachineSuite) TestDrawStampsDrawerAndTime() {
	room := s.newRoom(2)
	s.start(room, 0)
	s.selectCat(room)

	s.Require().NoError(s.machine.Draw(room, "p1", model.DrawActionDraw, &model.DrawPoint{PlayerID: "p2", Tool: model.ToolBrush, Size: 2}))

	entry := room.GameState.DrawingData[0]
	s.Equal(model.PlayerID("p1"), entry.PlayerID)
	s.Equal(s.clock.Now(), entry.Timestamp)
}

func (s *MachineSuite) TestDrawByNonDrawer() {
	room := s.newRoom(2)
	s.start(room, 0)
	s.selectCat(room)

	err := s.machine.Draw(room, "p2", model.DrawActionClear, nil)
	s.ErrorIs(err, model.ErrNotDrawer)
}

func (s *MachineSuite) TestDrawBeforeWordSelected() {
	room := s.newRoom(2)
	s.start(room, 0)

	err := s.machine.Draw(room, "p1", model.DrawActionDraw, &model.DrawPoint{Tool: model.ToolBrush, Size: 2})
	s.ErrorIs(err, model.ErrInvalidState)
}

func (s *MachineSuite) TestDrawInvalidEntry() {
	room := s.newRoom(2)
	s.start(room, 0)
	s.selectCat(room)

	err := s.machine.Draw(room, "p1", model.DrawActionDraw, &model.DrawPoint{Tool: "laser", Size: 2})
	s.ErrorIs(err, model.ErrInvalidDrawAction)
	s.Empty(room.GameState.DrawingData)
}

// RemovePlayer tests

func (s *MachineSuite) TestHostLeavingEndsGame() {
	room := s.newRoom(5)
	s.start(room, 2)
	s.selectCat(room)

	result, err := s.machine.RemovePlayer(room, "p1")
	s.Require().NoError(err)
	s.Equal(model.ReasonHostLeft, result.Reason)
	s.Equal(model.PlayerID("p1"), result.Player.ID)
	s.Equal(model.RoomStateEnded, room.GameState.RoomState)
	s.Len(room.Players, 4)
}

func (s *MachineSuite) TestHostLeavingLobby() {
	room := s.newRoom(3)

	result, err := s.machine.RemovePlayer(room, "p1")
	s.Require().NoError(err)
	s.Equal(model.ReasonHostLeft, result.Reason)
	s.Nil(room.GameState)
}

func (s *MachineSuite) TestDroppingBelowTwoPlayers() {
	room := s.newRoom(2)
	s.start(room, 0)

	result, err := s.machine.RemovePlayer(room, "p2")
	s.Require().NoError(err)
	s.Equal(model.ReasonNotEnoughPlayers, result.Reason)
	s.Equal(model.RoomStateEnded, room.GameState.RoomState)
}

func (s *MachineSuite) TestGuesserLeavingKeepsTurn() {
	room := s.newRoom(4)
	s.start(room, 1)
	s.selectCat(room)

	result, err := s.machine.RemovePlayer(room, "p3")
	s.Require().NoError(err)
	s.Empty(result.Reason)
	s.False(result.TurnEnded)

	gs := room.GameState
	s.Equal(model.RoomStateDrawing, gs.RoomState)
	s.Equal(model.PlayerID("p2"), gs.CurrentDrawerID)
	s.Equal("cat", gs.CurrentWord)
}

func (s *MachineSuite) TestDrawerLeavingEndsTurn() {
	room := s.newRoom(4)
	s.start(room, 1)
	s.selectCat(room)

	result, err := s.machine.RemovePlayer(room, "p2")
	s.Require().NoError(err)
	s.Empty(result.Reason)
	s.True(result.TurnEnded)
	s.False(result.GameEnded)

	gs := room.GameState
	s.Equal(model.RoomStatePlayerChooseWord, gs.RoomState)
	s.Equal(model.PlayerID("p3"), gs.CurrentDrawerID)
	s.Equal(1, gs.CurrentRound)
	s.Equal("cat", gs.LastWord)
}

func (s *MachineSuite) TestDrawerLeavingWhileChoosing() {
	room := s.newRoom(3)
	s.start(room, 2)

	result, err := s.machine.RemovePlayer(room, "p3")
	s.Require().NoError(err)
	s.True(result.TurnEnded)
	s.Equal(model.PlayerID("p1"), room.GameState.CurrentDrawerID)
	s.Equal(1, room.GameState.CurrentRound)
}

func (s *MachineSuite) TestDrawerLeavingOnLastTurnEndsGame() {
	room := s.newRoom(3)
	room.Settings.Rounds = 1
	s.start(room, 0)
	s.timeoutTurn(room) // p2 draws next
	s.timeoutTurn(room) // p3 draws next, last turn of the round
	s.Require().Equal(model.PlayerID("p3"), s.drawer(room))

	// a late player who has not drawn yet sits after p3
	room.Players = append(room.Players, model.Player{ID: "p4"})
	result, err := s.machine.RemovePlayer(room, "p3")
	s.Require().NoError(err)
	s.True(result.TurnEnded)
	s.False(result.GameEnded, "p4 has not drawn yet")
	s.Equal(model.PlayerID("p4"), s.drawer(room))

	// p4 leaving wraps the rotation back to p1, who already drew
	result, err = s.machine.RemovePlayer(room, "p4")
	s.Require().NoError(err)
	s.True(result.GameEnded)
	s.Equal(model.RoomStateEnded, room.GameState.RoomState)
}

func (s *MachineSuite) TestRemoveUnknownPlayer() {
	room := s.newRoom(3)
	_, err := s.machine.RemovePlayer(room, "ghost")
	s.ErrorIs(err, model.ErrPlayerNotFound)
	s.Len(room.Players, 3)
}

// Transition table tests

func (s *MachineSuite) TestTransitionTable() {
	legal := []struct{ from, to model.RoomState }{
		{model.RoomStateWaiting, model.RoomStatePlayerChooseWord},
		{model.RoomStatePlayerChooseWord, model.RoomStateDrawing},
		{model.RoomStateDrawing, model.RoomStateGuessed},
		{model.RoomStateDrawing, model.RoomStateRoundEnd},
		{model.RoomStateDrawing, model.RoomStateEnded},
		{model.RoomStateGuessed, model.RoomStateRoundEnd},
		{model.RoomStateGuessed, model.RoomStateEnded},
		{model.RoomStateRoundEnd, model.RoomStatePlayerChooseWord},
		{model.RoomStateRoundEnd, model.RoomStateEnded},
	}
	for _, tt := range legal {
		s.True(CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}

	illegal := []struct{ from, to model.RoomState }{
		{model.RoomStateWaiting, model.RoomStateDrawing},
		{model.RoomStateDrawing, model.RoomStatePlayerChooseWord},
		{model.RoomStateRoundEnd, model.RoomStateDrawing},
		{model.RoomStateGuessed, model.RoomStateDrawing},
		{model.RoomStateEnded, model.RoomStateWaiting},
		{model.RoomStateEnded, model.RoomStatePlayerChooseWord},
	}
	for _, tt := range illegal {
		s.False(CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func (s *MachineSuite) TestInvalidTransitionPanicsInStrictMode() {
	gs := &model.GameState{RoomState: model.RoomStateEnded}
	s.Panics(func() {
		_ = s.machine.transition(gs, model.RoomStateDrawing)
	})
}

func (s *MachineSuite) TestInvalidTransitionReturnsErrorOtherwise() {
	lenient := NewMachine(s.words, s.clock, s.random, testutil.NopLogger(), false)
	gs := &model.GameState{RoomState: model.RoomStateEnded}

	err := lenient.transition(gs, model.RoomStateDrawing)
	s.ErrorIs(err, model.ErrInvalidTransition)
	s.Equal(model.RoomStateEnded, gs.RoomState)
}
