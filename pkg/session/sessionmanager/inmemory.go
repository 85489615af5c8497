package sessionmanager

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/payal-22/Collab-Canvas/pkg/session"
)

// InMemoryManager holds every room and live connection in process memory.
// Nothing survives a restart; clients reconcile via snapshots instead.
type InMemoryManager struct {
	conns map[uuid.UUID]*connEntry
	rooms map[string]*session.Room

	// deletion timers for rooms currently in their post-empty grace period,
	// guarded by roomMu together with the rooms map.
	deleteTimers map[string]*time.Timer
	gracePeriod  time.Duration

	connMu sync.RWMutex
	roomMu sync.Mutex

	logger *slog.Logger
}

type connEntry struct {
	conn      session.Conn
	ipAddr    string
	createdAt time.Time
}

func NewInMemoryManager(logger *slog.Logger, gracePeriod time.Duration) *InMemoryManager {
	return &InMemoryManager{
		conns:        make(map[uuid.UUID]*connEntry),
		rooms:        make(map[string]*session.Room),
		deleteTimers: make(map[string]*time.Timer),
		gracePeriod:  gracePeriod,
		logger:       logger.With(slog.String("component", "session_manager_inmemory")),
	}
}

// compile-time check to ensure InMemoryManager implements Manager.
var _ session.Manager = (*InMemoryManager)(nil)

// --- Connection Lifecycle ---

func (m *InMemoryManager) RegisterConnection(conn session.Conn, ipAddr string) error {
	m.connMu.Lock()
	defer m.connMu.Unlock()

	connID := conn.ID()
	if _, exists := m.conns[connID]; exists {
		return errors.New("connection is already registered")
	}
	m.conns[connID] = &connEntry{
		conn:      conn,
		ipAddr:    ipAddr,
		createdAt: time.Now(),
	}
	m.logger.Debug("Connection registered", slog.String("connID", connID.String()))
	return nil
}

func (m *InMemoryManager) DeregisterConnection(connID uuid.UUID) {
	m.connMu.Lock()
	defer m.connMu.Unlock()

	if _, ok := m.conns[connID]; !ok {
		return
	}
	delete(m.conns, connID)
	m.logger.Debug("Connection deregistered", slog.String("connID", connID.String()))
}

func (m *InMemoryManager) GetConnection(connID uuid.UUID) (session.Conn, bool) {
	m.connMu.RLock()
	defer m.connMu.RUnlock()

	entry, ok := m.conns[connID]
	if !ok {
		return nil, false
	}
	return entry.conn, true
}

func (m *InMemoryManager) ConnectionCountByIP(ipAddr string) int {
	m.connMu.RLock()
	defer m.connMu.RUnlock()

	count := 0
	for _, entry := range m.conns {
		if entry.ipAddr == ipAddr {
			count++
		}
	}
	return count
}

func (m *InMemoryManager) FindOldestConnectionByIP(ipAddr string) (session.Conn, bool) {
	m.connMu.RLock()
	defer m.connMu.RUnlock()

	var oldest *connEntry
	for _, entry := range m.conns {
		if entry.ipAddr != ipAddr {
			continue
		}
		if oldest == nil || entry.createdAt.Before(oldest.createdAt) {
			oldest = entry
		}
	}
	if oldest == nil {
		return nil, false
	}
	return oldest.conn, true
}

func (m *InMemoryManager) AllConnections() []session.Conn {
	m.connMu.RLock()
	defer m.connMu.RUnlock()

	conns := make([]session.Conn, 0, len(m.conns))
	for _, entry := range m.conns {
		conns = append(conns, entry.conn)
	}
	return conns
}

// --- Room Lifecycle & Membership ---

func (m *InMemoryManager) Join(connID uuid.UUID, roomID, username, color string) (*session.Room, session.Participant, error) {
	m.connMu.RLock()
	entry, ok := m.conns[connID]
	m.connMu.RUnlock()
	if !ok {
		return nil, session.Participant{}, errors.New("cannot join room: connection not registered")
	}

	m.roomMu.Lock()
	room, exists := m.rooms[roomID]
	if !exists {
		room = session.NewRoom(roomID)
		m.rooms[roomID] = room
		m.logger.Debug("Created room", slog.String("roomID", roomID))
	}
	// A rejoin during the grace period keeps the room alive with its history
	// and snapshot intact.
	if timer, pending := m.deleteTimers[roomID]; pending {
		timer.Stop()
		delete(m.deleteTimers, roomID)
		m.logger.Debug("Cancelled pending room deletion", slog.String("roomID", roomID))
	}
	m.roomMu.Unlock()

	participant := session.Participant{
		ID:       connID,
		Username: username,
		Color:    color,
		JoinedAt: time.Now(),
	}
	room.AddMember(participant, entry.conn)

	m.logger.Debug("Participant joined room",
		slog.String("connID", connID.String()),
		slog.String("roomID", roomID),
		slog.String("username", username),
	)
	return room, participant, nil
}

func (m *InMemoryManager) Leave(connID uuid.UUID, roomID string) (*session.Room, bool) {
	m.roomMu.Lock()
	room, ok := m.rooms[roomID]
	m.roomMu.Unlock()
	if !ok {
		return nil, false
	}

	removed, remaining := room.RemoveMember(connID)
	if !removed {
		return room, false
	}

	if remaining == 0 {
		m.armDeleteTimer(roomID)
	}

	m.logger.Debug("Participant left room",
		slog.String("connID", connID.String()),
		slog.String("roomID", roomID),
		slog.Int("remaining", remaining),
	)
	return room, true
}

func (m *InMemoryManager) Get(roomID string) (*session.Room, bool) {
	m.roomMu.Lock()
	defer m.roomMu.Unlock()
	room, ok := m.rooms[roomID]
	return room, ok
}

func (m *InMemoryManager) Delete(roomID string) {
	m.roomMu.Lock()
	defer m.roomMu.Unlock()
	if timer, pending := m.deleteTimers[roomID]; pending {
		timer.Stop()
		delete(m.deleteTimers, roomID)
	}
	if _, ok := m.rooms[roomID]; ok {
		delete(m.rooms, roomID)
		m.logger.Debug("Deleted room", slog.String("roomID", roomID))
	}
}

func (m *InMemoryManager) Stats() (rooms, participants int) {
	m.roomMu.Lock()
	defer m.roomMu.Unlock()

	rooms = len(m.rooms)
	for _, room := range m.rooms {
		participants += room.MemberCount()
	}
	return rooms, participants
}

// armDeleteTimer schedules removal of an empty room after the grace period.
// An already pending timer is replaced.
func (m *InMemoryManager) armDeleteTimer(roomID string) {
	m.roomMu.Lock()
	defer m.roomMu.Unlock()

	if timer, pending := m.deleteTimers[roomID]; pending {
		timer.Stop()
	}
	m.deleteTimers[roomID] = time.AfterFunc(m.gracePeriod, func() {
		m.reapRoom(roomID)
	})
	m.logger.Debug("Armed room deletion timer",
		slog.String("roomID", roomID),
		slog.Duration("gracePeriod", m.gracePeriod),
	)
}

// reapRoom discards a room once its grace period has elapsed. Membership is
// re-checked under the lock; a join that raced the timer wins.
func (m *InMemoryManager) reapRoom(roomID string) {
	m.roomMu.Lock()
	defer m.roomMu.Unlock()

	delete(m.deleteTimers, roomID)
	room, ok := m.rooms[roomID]
	if !ok {
		return
	}
	if room.MemberCount() > 0 {
		return
	}
	delete(m.rooms, roomID)
	m.logger.Info("Removed room after grace period", slog.String("roomID", roomID))
}
