package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/payal-22/Collab-Canvas/pkg/config"
	"github.com/payal-22/Collab-Canvas/pkg/session"
)

// EventRouter owns the per-connection join state machine and decides, for
// every inbound event, what mutates room state and what fans out to peers.
// Delivery is fire-and-forget: a peer's failure never aborts the rest and
// never rolls back an already-applied mutation.
type EventRouter struct {
	logger   *slog.Logger
	sessions session.Manager
	rooms    config.RoomConfig

	mu     sync.RWMutex
	states map[uuid.UUID]*connState
}

// connState tracks a connection through its two states: unjoined (zero value)
// and joined. Name and color are fixed once joined; a client must disconnect
// and rejoin to change rooms.
type connState struct {
	joined   bool
	roomID   string
	username string
	color    string
}

func NewEventRouter(logger *slog.Logger, sessions session.Manager, rooms config.RoomConfig) *EventRouter {
	return &EventRouter{
		logger:   logger.With(slog.String("component", "event_router")),
		sessions: sessions,
		rooms:    rooms,
		states:   make(map[uuid.UUID]*connState),
	}
}

// HandleConnect attaches a connection to the router in the unjoined state.
func (r *EventRouter) HandleConnect(conn session.Conn, ipAddr string) error {
	if err := r.sessions.RegisterConnection(conn, ipAddr); err != nil {
		return err
	}
	r.mu.Lock()
	r.states[conn.ID()] = &connState{}
	r.mu.Unlock()
	return nil
}

// HandleDisconnect is driven by the transport, not the client. It removes the
// participant from its room, notifies the remaining members and forgets the
// connection.
func (r *EventRouter) HandleDisconnect(connID uuid.UUID, cause error) {
	r.mu.Lock()
	state, ok := r.states[connID]
	delete(r.states, connID)
	r.mu.Unlock()

	defer r.sessions.DeregisterConnection(connID)
	if !ok || !state.joined {
		return
	}

	room, left := r.sessions.Leave(connID, state.roomID)
	if !left {
		return
	}
	r.logger.Debug("Participant disconnected",
		slog.String("connID", connID.String()),
		slog.String("roomID", state.roomID),
		slog.Any("cause", cause),
	)

	r.sendToRoom(room, uuid.Nil, EventUserLeft, userLeft{UserID: connID})
	r.sendUsersUpdate(room, uuid.Nil)
}

// HandleMessage dispatches one inbound event. Unknown events and operation
// events arriving before a join are dropped, not errors.
func (r *EventRouter) HandleMessage(ctx context.Context, connID uuid.UUID, msg []byte) {
	var clientMsg ClientMessage
	if err := json.Unmarshal(msg, &clientMsg); err != nil {
		r.logger.Warn("Failed to unmarshal client message", "connID", connID, "error", err)
		return
	}

	// The latency probe is independent of join state and must never be
	// dropped.
	if clientMsg.Event == EventPing {
		r.sendToConn(connID, EventPong, nil)
		return
	}

	if clientMsg.Event == EventJoinRoom {
		r.handleJoin(connID, clientMsg.Payload)
		return
	}

	state, joined := r.joinedState(connID)
	if !joined {
		r.logger.Debug("Dropping event from unjoined connection",
			slog.String("event", clientMsg.Event),
			slog.String("connID", connID.String()),
		)
		return
	}

	room, ok := r.sessions.Get(state.roomID)
	if !ok {
		// Room already reaped; treated as absent, never an error.
		r.logger.Debug("Dropping event for absent room",
			slog.String("event", clientMsg.Event),
			slog.String("roomID", state.roomID),
		)
		return
	}

	switch clientMsg.Event {
	case EventDraw:
		r.handleDraw(room, connID, state, session.OpFreehand, EventDraw, clientMsg.Payload)
	case EventDrawText:
		r.handleDraw(room, connID, state, session.OpText, EventDrawText, clientMsg.Payload)
	case EventDrawImage:
		r.handleDrawImage(room, connID, state, clientMsg.Payload)
	case EventCursorMove:
		r.handleCursorMove(room, connID, state, clientMsg.Payload)
	case EventClearCanvas:
		r.handleClearCanvas(room, connID)
	case EventSaveCanvas:
		r.handleSaveCanvas(room, connID, clientMsg.Payload)
	case EventRequestCanvasState:
		r.handleRequestCanvasState(room, connID)
	default:
		r.logger.Warn("Received unknown event", "event", clientMsg.Event, "connID", connID)
	}
}

func (r *EventRouter) joinedState(connID uuid.UUID) (connState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.states[connID]
	if !ok || !state.joined {
		return connState{}, false
	}
	return *state, true
}

// sendToConn marshals an envelope and delivers it to a single connection.
func (r *EventRouter) sendToConn(connID uuid.UUID, event string, payload any) {
	conn, ok := r.sessions.GetConnection(connID)
	if !ok {
		return
	}
	msg, err := marshalEnvelope(event, payload)
	if err != nil {
		r.logger.Error("Failed to marshal outbound message", slog.String("event", event), slog.Any("error", err))
		return
	}
	conn.Send(msg)
}

// sendToRoom fans an envelope out to every member except the given sender.
// Pass uuid.Nil to address the whole room.
func (r *EventRouter) sendToRoom(room *session.Room, except uuid.UUID, event string, payload any) {
	msg, err := marshalEnvelope(event, payload)
	if err != nil {
		r.logger.Error("Failed to marshal outbound message", slog.String("event", event), slog.Any("error", err))
		return
	}
	for _, conn := range room.Conns(except) {
		conn.Send(msg)
	}
}

func (r *EventRouter) sendUsersUpdate(room *session.Room, except uuid.UUID) {
	r.sendToRoom(room, except, EventUsersUpdate, room.Members())
}

func marshalEnvelope(event string, payload any) ([]byte, error) {
	msg := ClientMessage{Event: event}
	switch p := payload.(type) {
	case nil:
	case json.RawMessage:
		msg.Payload = p
	default:
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = raw
	}
	return json.Marshal(msg)
}
