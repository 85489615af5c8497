package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/payal-22/Collab-Canvas/pkg/session"
)

func (a *App) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (a *App) errorResponse(w http.ResponseWriter, status int, message string) {
	a.jsonResponse(w, status, map[string]string{"error": message})
}

func (a *App) healthzHandler(w http.ResponseWriter, r *http.Request) {
	a.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *App) statsHandler(w http.ResponseWriter, r *http.Request) {
	rooms, participants := a.sessions.Stats()
	a.jsonResponse(w, http.StatusOK, map[string]any{
		"rooms":        rooms,
		"participants": participants,
	})
}

type roomResponse struct {
	RoomID        string                `json:"roomId"`
	Members       []session.Participant `json:"members"`
	HistoryLength int                   `json:"historyLength"`
	HasSnapshot   bool                  `json:"hasSnapshot"`
}

func (a *App) roomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]
	room, ok := a.sessions.Get(roomID)
	if !ok {
		a.errorResponse(w, http.StatusNotFound, "room not found")
		return
	}

	a.jsonResponse(w, http.StatusOK, roomResponse{
		RoomID:        room.ID(),
		Members:       room.Members(),
		HistoryLength: room.HistoryLen(),
		HasSnapshot:   room.HasSnapshot(),
	})
}
