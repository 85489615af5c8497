package router

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/payal-22/Collab-Canvas/pkg/session"
	"github.com/tidwall/gjson"
)

// handleJoin transitions a connection from unjoined to joined. The joiner is
// fast-forwarded: current snapshot first (if any), then the member list goes
// to the whole room, then every existing peer cursor is replayed to the
// joiner only.
func (r *EventRouter) handleJoin(connID uuid.UUID, payload json.RawMessage) {
	r.mu.Lock()
	state, ok := r.states[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	if state.joined {
		// Must disconnect and rejoin to change rooms.
		r.mu.Unlock()
		r.logger.Warn("Ignoring join-room from already joined connection", slog.String("connID", connID.String()))
		return
	}

	roomID := gjson.GetBytes(payload, "roomId").String()
	username := gjson.GetBytes(payload, "username").String()
	color := gjson.GetBytes(payload, "color").String()

	room, _, err := r.sessions.Join(connID, roomID, username, color)
	if err != nil {
		r.mu.Unlock()
		r.logger.Error("Failed to join room", slog.String("connID", connID.String()), slog.Any("error", err))
		return
	}
	state.joined = true
	state.roomID = roomID
	state.username = username
	state.color = color
	r.mu.Unlock()

	r.logger.Info("Participant joined room",
		slog.String("connID", connID.String()),
		slog.String("roomID", roomID),
		slog.String("username", username),
	)

	if snapshot, ok := room.Snapshot(); ok {
		r.sendToConn(connID, EventCanvasState, snapshot)
	}
	r.sendUsersUpdate(room, uuid.Nil)
	for id, cursor := range room.Cursors() {
		if id == connID {
			continue
		}
		r.sendToConn(connID, EventCursorMove, cursorUpdate{
			UserID:   id,
			Username: cursor.Username,
			Color:    cursor.Color,
			X:        cursor.X,
			Y:        cursor.Y,
		})
	}
}

// handleDraw covers freehand strokes and text placements: the full payload is
// recorded as sent and broadcast with attribution injected.
func (r *EventRouter) handleDraw(room *session.Room, connID uuid.UUID, state connState, opType, event string, payload json.RawMessage) {
	room.Append(session.Operation{
		Type:     opType,
		Payload:  payload,
		UserID:   connID,
		Username: state.username,
	})
	r.sendToRoom(room, connID, event, attribute(payload, connID, state.username))
}

// handleDrawImage records only the bounding geometry; the pixel payload is
// broadcast to peers but never retained in history.
func (r *EventRouter) handleDrawImage(room *session.Room, connID uuid.UUID, state connState, payload json.RawMessage) {
	geometry := session.ImageGeometry{
		X:      gjson.GetBytes(payload, "x").Float(),
		Y:      gjson.GetBytes(payload, "y").Float(),
		Width:  gjson.GetBytes(payload, "width").Float(),
		Height: gjson.GetBytes(payload, "height").Float(),
	}
	historyPayload, err := json.Marshal(geometry)
	if err != nil {
		r.logger.Error("Failed to marshal image geometry", slog.Any("error", err))
		return
	}
	room.Append(session.Operation{
		Type:     session.OpImage,
		Payload:  historyPayload,
		UserID:   connID,
		Username: state.username,
	})
	r.sendToRoom(room, connID, EventDrawImage, attribute(payload, connID, state.username))
}

// handleCursorMove updates ephemeral presence only; cursor positions never
// enter history.
func (r *EventRouter) handleCursorMove(room *session.Room, connID uuid.UUID, state connState, payload json.RawMessage) {
	cursor := session.Cursor{
		X:        gjson.GetBytes(payload, "x").Float(),
		Y:        gjson.GetBytes(payload, "y").Float(),
		Username: state.username,
		Color:    state.color,
	}
	room.SetCursor(connID, cursor)
	r.sendToRoom(room, connID, EventCursorMove, cursorUpdate{
		UserID:   connID,
		Username: cursor.Username,
		Color:    cursor.Color,
		X:        cursor.X,
		Y:        cursor.Y,
	})
}

// handleClearCanvas truncates history and discards the snapshot. Whether the
// sender gets the clear echoed back is a configured policy.
func (r *EventRouter) handleClearCanvas(room *session.Room, connID uuid.UUID) {
	room.Clear()
	except := connID
	if r.rooms.ClearEcho {
		except = uuid.Nil
	}
	r.sendToRoom(room, except, EventClearCanvas, nil)
}

// handleSaveCanvas overwrites the room snapshot. A private checkpoint: no
// broadcast, consumed only by future joiners and explicit requests.
func (r *EventRouter) handleSaveCanvas(room *session.Room, connID uuid.UUID, payload json.RawMessage) {
	room.SaveSnapshot(payload)
	r.logger.Debug("Saved canvas snapshot",
		slog.String("roomID", room.ID()),
		slog.String("connID", connID.String()),
	)
}

func (r *EventRouter) handleRequestCanvasState(room *session.Room, connID uuid.UUID) {
	snapshot, ok := room.Snapshot()
	if !ok {
		return
	}
	r.sendToConn(connID, EventCanvasState, snapshot)
}

// attribute injects the author's identity into an object payload before
// fan-out. Non-object payloads pass through unchanged; the core does not
// validate client data.
func attribute(payload json.RawMessage, connID uuid.UUID, username string) json.RawMessage {
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return payload
	}
	if fields == nil {
		fields = make(map[string]any)
	}
	fields["userId"] = connID.String()
	fields["username"] = username
	out, err := json.Marshal(fields)
	if err != nil {
		return payload
	}
	return out
}
