package session

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Conn is the transport capability the session core depends on: a way to
// deliver a message to one connection, best-effort. The concrete WebSocket
// wrapper in pkg/transport satisfies it.
type Conn interface {
	ID() uuid.UUID
	Send(message []byte)
}

// Participant is a connected identity within a room. The connection id is the
// only durable key; username and color are client-supplied free-form data,
// fixed for the lifetime of the connection.
type Participant struct {
	ID       uuid.UUID `json:"userId"`
	Username string    `json:"username"`
	Color    string    `json:"color"`
	JoinedAt time.Time `json:"-"`
}

// Cursor is the last reported pointer position for a participant, carrying the
// owner's display attributes so peers can render it without a member lookup.
// Cursors are ephemeral: last value wins, never recorded in history.
type Cursor struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Username string  `json:"username"`
	Color    string  `json:"color"`
}

// Operation variants sequenced into room history. Freehand strokes carry no
// type tag on the wire, matching the client protocol.
const (
	OpFreehand = ""
	OpText     = "text"
	OpImage    = "image"
)

// Operation is a single recorded edit appended to a room's history. Username
// is a snapshot taken at authorship, not a live reference. Timestamp is
// server-assigned milliseconds, monotonically non-decreasing within a room.
type Operation struct {
	Type      string          `json:"type,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	UserID    uuid.UUID       `json:"userId"`
	Username  string          `json:"username"`
	Timestamp int64           `json:"timestamp"`
}

// ImageGeometry is what history retains for an image placement. The pixel
// payload is deliberately dropped so unbounded history stays bounded by
// geometry-sized records; peers still receive the full payload live.
type ImageGeometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
