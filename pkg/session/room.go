package session

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Room is an isolated collaboration session. All four state structures
// (members, history, snapshot, cursors) are guarded by one lock so that no
// partially applied mutation is ever observable.
type Room struct {
	id string

	mu       sync.RWMutex
	members  map[uuid.UUID]*member
	history  []Operation
	snapshot json.RawMessage
	cursors  map[uuid.UUID]Cursor

	lastTimestamp int64
}

type member struct {
	Participant
	conn Conn
}

func NewRoom(id string) *Room {
	return &Room{
		id:      id,
		members: make(map[uuid.UUID]*member),
		cursors: make(map[uuid.UUID]Cursor),
	}
}

func (r *Room) ID() string {
	return r.id
}

// AddMember registers a participant and its transport handle.
func (r *Room) AddMember(p Participant, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[p.ID] = &member{Participant: p, conn: conn}
}

// RemoveMember drops a participant and its cursor atomically and reports
// whether the member existed plus how many members remain.
func (r *Room) RemoveMember(connID uuid.UUID) (removed bool, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[connID]; !ok {
		return false, len(r.members)
	}
	delete(r.members, connID)
	delete(r.cursors, connID)
	return true, len(r.members)
}

func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Members returns the current participants ordered by join time.
func (r *Room) Members() []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Participant, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m.Participant)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// Conns returns the transport handles of all members except the given one.
// Pass uuid.Nil to address the whole room.
func (r *Room) Conns(except uuid.UUID) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.members))
	for id, m := range r.members {
		if id == except {
			continue
		}
		conns = append(conns, m.conn)
	}
	return conns
}

// Append records an operation, assigning the server timestamp. Timestamps are
// clamped to be monotonically non-decreasing within the room even if the wall
// clock steps backwards.
func (r *Room) Append(op Operation) Operation {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := time.Now().UnixMilli()
	if ts < r.lastTimestamp {
		ts = r.lastTimestamp
	}
	r.lastTimestamp = ts
	op.Timestamp = ts
	r.history = append(r.history, op)
	return op
}

// History returns a copy of the operation log.
func (r *Room) History() []Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Operation, len(r.history))
	copy(out, r.history)
	return out
}

func (r *Room) HistoryLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.history)
}

// Clear truncates history and discards the snapshot in one step.
func (r *Room) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
	r.snapshot = nil
}

// SaveSnapshot overwrites the single retained full-surface snapshot.
func (r *Room) SaveSnapshot(data json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = data
}

// Snapshot returns the latest saved surface state verbatim, if any.
func (r *Room) Snapshot() (json.RawMessage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.snapshot == nil {
		return nil, false
	}
	return r.snapshot, true
}

func (r *Room) HasSnapshot() bool {
	_, ok := r.Snapshot()
	return ok
}

// SetCursor records the latest pointer position for a connection.
func (r *Room) SetCursor(connID uuid.UUID, c Cursor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// A cursor only exists for current members; a stale move that races a
	// disconnect must not resurrect the entry.
	if _, ok := r.members[connID]; !ok {
		return
	}
	r.cursors[connID] = c
}

// Cursors returns a copy of all live cursor positions keyed by connection id.
func (r *Room) Cursors() map[uuid.UUID]Cursor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uuid.UUID]Cursor, len(r.cursors))
	for id, c := range r.cursors {
		out[id] = c
	}
	return out
}
