package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"

	"github.com/mcoot/drawguess/internal/api/response"
	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/services/drawing"
	"github.com/mcoot/drawguess/internal/services/session"
)

const (
	defaultInviteSize = 256
	maxInviteSize     = 1024
)

// RoomHandler serves read-only views of live rooms
type RoomHandler struct {
	engine    *session.Engine
	publicURL string
}

// NewRoomHandler creates a new room handler. publicURL is the base of the join links in invites.
func NewRoomHandler(engine *session.Engine, publicURL string) *RoomHandler {
	return &RoomHandler{
		engine:    engine,
		publicURL: publicURL,
	}
}

// List handles GET /api/v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	rooms := h.engine.Rooms()
	summaries := make([]response.RoomSummary, len(rooms))
	for i, room := range rooms {
		summaries[i] = response.RoomSummaryFromModel(room)
	}
	response.JSON(w, http.StatusOK, response.RoomList{Rooms: summaries})
}

// Get handles GET /api/v1/rooms/{id}
// The room is shown as a spectator would see it, with the word masked while drawing.
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, err := h.engine.Snapshot(roomID(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, room.ViewFor(""))
}

// Drawing handles GET /api/v1/rooms/{id}/drawing
func (h *RoomHandler) Drawing(w http.ResponseWriter, r *http.Request) {
	room, err := h.engine.Snapshot(roomID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	var log []model.DrawPoint
	if room.GameState != nil {
		log = room.GameState.DrawingData
	}
	response.JSON(w, http.StatusOK, response.DrawingFromLog(room.ID, drawing.Strokes(log, drawing.DefaultStrokeGap)))
}

// Invite handles GET /api/v1/rooms/{id}/invite.png
func (h *RoomHandler) Invite(w http.ResponseWriter, r *http.Request) {
	id := roomID(r)
	if _, err := h.engine.Snapshot(id); err != nil {
		WriteError(w, err)
		return
	}

	size := defaultInviteSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxInviteSize {
			WriteError(w, NewInvalidRequestError("size must be between 1 and 1024"))
			return
		}
		size = n
	}

	png, err := qrcode.Encode(h.JoinURL(id), qrcode.Medium, size)
	if err != nil {
		WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// JoinURL returns the link a player follows to join the room
func (h *RoomHandler) JoinURL(id model.RoomID) string {
	return h.publicURL + "/?room=" + url.QueryEscape(string(id))
}

func roomID(r *http.Request) model.RoomID {
	return model.RoomID(mux.Vars(r)["id"])
}
