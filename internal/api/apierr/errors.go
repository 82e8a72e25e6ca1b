package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/services/session"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeRoomNotFound          = "ROOM_NOT_FOUND"
	CodeRoomFull              = "ROOM_FULL"
	CodeAlreadyInRoom         = "ALREADY_IN_ROOM"
	CodeGameAlreadyInProgress = "GAME_ALREADY_IN_PROGRESS"
	CodeInvalidSettings       = "INVALID_SETTINGS"
	CodePlayerNotFound        = "PLAYER_NOT_FOUND"
	CodeNotHost               = "NOT_HOST"
	CodeNotDrawer             = "NOT_DRAWER"
	CodeInvalidState          = "INVALID_STATE"
	CodeInvalidWord           = "INVALID_WORD"
	CodeAlreadyGuessed        = "ALREADY_GUESSED"
	CodeDrawerCannotGuess     = "DRAWER_CANNOT_GUESS"
	CodeNotEnoughPlayers      = "NOT_ENOUGH_PLAYERS"
	CodeInvalidDrawAction     = "INVALID_DRAW_ACTION"
	CodeRateLimited           = "RATE_LIMITED"
	CodeUnavailable           = "UNAVAILABLE"
	CodeInternalError         = "INTERNAL_ERROR"
)

// ErrRateLimited is reported when a connection sends faster than it is allowed to
var ErrRateLimited = errors.New("rate limit exceeded")

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Describe returns the client-facing code and message for an error.
// Errors with no mapping are reported as internal errors without leaking their text.
func Describe(err error) APIError {
	return toHTTPError(err).apiError
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "Room not found"}}
	case errors.Is(err, model.ErrRoomFull):
		return &httpError{http.StatusConflict, APIError{CodeRoomFull, "Room is full"}}
	case errors.Is(err, model.ErrAlreadyInRoom):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyInRoom, "Already in a room"}}
	case errors.Is(err, model.ErrGameAlreadyInProgress):
		return &httpError{http.StatusConflict, APIError{CodeGameAlreadyInProgress, "Game is already in progress"}}
	case errors.Is(err, model.ErrInvalidSettings):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidSettings, "Invalid room settings"}}
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrNotHost):
		return &httpError{http.StatusForbidden, APIError{CodeNotHost, "Only the host can perform this action"}}
	case errors.Is(err, model.ErrNotDrawer):
		return &httpError{http.StatusForbidden, APIError{CodeNotDrawer, "Only the drawer can perform this action"}}
	case errors.Is(err, model.ErrInvalidState):
		return &httpError{http.StatusConflict, APIError{CodeInvalidState, "Action not allowed right now"}}
	case errors.Is(err, model.ErrInvalidWord):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidWord, "Word is not one of the choices"}}
	case errors.Is(err, model.ErrAlreadyGuessed):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyGuessed, "Already guessed the word"}}
	case errors.Is(err, model.ErrDrawerCannotGuess):
		return &httpError{http.StatusForbidden, APIError{CodeDrawerCannotGuess, "The drawer cannot guess"}}
	case errors.Is(err, model.ErrNotEnoughPlayers):
		return &httpError{http.StatusConflict, APIError{CodeNotEnoughPlayers, "Not enough players to start"}}
	case errors.Is(err, model.ErrInvalidDrawAction):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidDrawAction, "Invalid drawing action"}}
	case errors.Is(err, ErrRateLimited):
		return &httpError{http.StatusTooManyRequests, APIError{CodeRateLimited, "Too many requests"}}
	case errors.Is(err, session.ErrClosed):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeUnavailable, "Service unavailable"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
