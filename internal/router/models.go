package router

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ClientMessage is the wire envelope for every event in both directions.
type ClientMessage struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound event names.
const (
	EventJoinRoom           = "join-room"
	EventDraw               = "draw"
	EventDrawText           = "draw-text"
	EventDrawImage          = "draw-image"
	EventCursorMove         = "cursor-move"
	EventClearCanvas        = "clear-canvas"
	EventSaveCanvas         = "save-canvas"
	EventRequestCanvasState = "request-canvas-state"
	EventPing               = "ping"
)

// Outbound event names.
const (
	EventCanvasState = "canvas-state"
	EventUsersUpdate = "users-update"
	EventUserLeft    = "user-left"
	EventPong        = "pong"
)

type cursorUpdate struct {
	UserID   uuid.UUID `json:"userId"`
	Username string    `json:"username"`
	Color    string    `json:"color"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
}

type userLeft struct {
	UserID uuid.UUID `json:"userId"`
}
