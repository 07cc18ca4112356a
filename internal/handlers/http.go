// internal/handlers/http.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/bidroom/bidroom/internal/middleware"
	"github.com/bidroom/bidroom/internal/room"
	"github.com/bidroom/bidroom/internal/session"
)

// Custom WebSocket close codes used by the room handler.
const (
	BadSubprotocolError = 3000 // Client connected with an unsupported subprotocol.
)

// roomSummary is the listing shape returned by /rooms.
type roomSummary struct {
	Code         string `json:"code"`
	Participants int    `json:"participants"`
	Topics       int    `json:"topics"`
	Locked       bool   `json:"locked"`
}

// NewRouter wires the HTTP surface: the auction WebSocket endpoint, a
// debugging room listing, and a health check.
func NewRouter(logger *logrus.Logger, store *room.Store, registry *session.Registry, originPatterns []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.LogMiddleware(logger))

	r.Get("/ws", WSHandler(logger, store, registry, originPatterns))
	r.Get("/rooms", ListRoomsHandler(store))
	r.Get("/healthz", Healthz)
	return r
}

// ListRoomsHandler returns the in-memory room set for debugging.
func ListRoomsHandler(store *room.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms := store.Rooms()
		summaries := make([]roomSummary, 0, len(rooms))
		for code, rm := range rooms {
			rm.Mu.Lock()
			summaries = append(summaries, roomSummary{
				Code:         code,
				Participants: len(rm.Participants),
				Topics:       len(rm.Topics),
				Locked:       rm.Locked,
			})
			rm.Mu.Unlock()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summaries)
	}
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
