package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/drawguess/internal/api/handler"
	"github.com/mcoot/drawguess/internal/api/middleware"
	"github.com/mcoot/drawguess/internal/services/session"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger  *slog.Logger
	Engine  *session.Engine
	Gateway http.Handler

	// Base URL encoded into room invite QR codes
	PublicURL string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	healthHandler := handler.NewHealthHandler(cfg.Engine)
	roomHandler := handler.NewRoomHandler(cfg.Engine, cfg.PublicURL)

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)

	// Room routes are read-only; rooms are created and played over the websocket
	rooms := api.PathPrefix("/rooms").Subrouter()
	rooms.HandleFunc("", roomHandler.List).Methods(http.MethodGet)
	rooms.HandleFunc("/{id}", roomHandler.Get).Methods(http.MethodGet)
	rooms.HandleFunc("/{id}/drawing", roomHandler.Drawing).Methods(http.MethodGet)
	rooms.HandleFunc("/{id}/invite.png", roomHandler.Invite).Methods(http.MethodGet)

	// Websocket event channel
	if cfg.Gateway != nil {
		r.Handle("/ws", middleware.Logging(cfg.Logger)(cfg.Gateway)).Methods(http.MethodGet)
	}

	return r
}
