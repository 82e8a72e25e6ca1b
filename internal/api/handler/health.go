package handler

import (
	"net/http"

	"github.com/mcoot/drawguess/internal/api/response"
	"github.com/mcoot/drawguess/internal/services/session"
)

// HealthHandler reports liveness
type HealthHandler struct {
	engine *session.Engine
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(engine *session.Engine) *HealthHandler {
	return &HealthHandler{engine: engine}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{
		Status: "ok",
		Rooms:  len(h.engine.Rooms()),
	})
}
