package game

import (
	"fmt"
	"log/slog"

	"github.com/mcoot/drawguess/internal/model"
)

// transitions lists every legal roomState change.
// PLAYER_CHOOSE_WORD -> ROUND_END/ENDED exist for a drawer leaving, or the game being ended, before a word is chosen.
var transitions = map[model.RoomState][]model.RoomState{
	model.RoomStateWaiting:          {model.RoomStatePlayerChooseWord},
	model.RoomStatePlayerChooseWord: {model.RoomStateDrawing, model.RoomStateRoundEnd, model.RoomStateEnded},
	model.RoomStateDrawing:          {model.RoomStateGuessed, model.RoomStateRoundEnd, model.RoomStateEnded},
	model.RoomStateGuessed:          {model.RoomStateRoundEnd, model.RoomStateEnded},
	model.RoomStateRoundEnd:         {model.RoomStatePlayerChooseWord, model.RoomStateEnded},
	model.RoomStateEnded:            {},
}

// CanTransition reports whether from -> to is in the transition table
func CanTransition(from, to model.RoomState) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// transition moves the game to a new state, enforcing the table.
// In strict mode an illegal transition panics.
func (m *Machine) transition(gs *model.GameState, to model.RoomState) error {
	from := gs.RoomState
	if !CanTransition(from, to) {
		err := fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, from, to)
		if m.strict {
			panic(err)
		}
		m.logger.Error("rejected state transition",
			slog.String("from", string(from)),
			slog.String("to", string(to)),
		)
		return err
	}
	gs.RoomState = to
	return nil
}
