package model

import "errors"

// Common errors used across the application
var (
	// Room errors
	ErrRoomNotFound          = errors.New("room not found")
	ErrRoomFull              = errors.New("room is full")
	ErrGameAlreadyInProgress = errors.New("game is already in progress")
	ErrInvalidSettings       = errors.New("invalid room settings")
	ErrAlreadyInRoom         = errors.New("connection is already in a room")

	// Player errors
	ErrPlayerNotFound = errors.New("player not found")
	ErrNotHost        = errors.New("player is not the host")
	ErrNotDrawer      = errors.New("player is not the current drawer")

	// Game errors
	ErrInvalidState      = errors.New("action not allowed in the current state")
	ErrInvalidWord       = errors.New("word is not one of the offered choices")
	ErrAlreadyGuessed    = errors.New("player has already guessed the word")
	ErrDrawerCannotGuess = errors.New("the drawer cannot guess")
	ErrNotEnoughPlayers  = errors.New("not enough players")

	// Drawing errors
	ErrInvalidDrawAction = errors.New("invalid drawing action")

	// Word bank errors
	ErrWordBankEmpty = errors.New("word bank is empty")

	// ErrInvalidTransition signals a state machine defect, never a user error
	ErrInvalidTransition = errors.New("invalid state transition")
)
