package session_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/payal-22/Collab-Canvas/pkg/session"
)

type mockConn struct {
	id uuid.UUID
}

func (m *mockConn) ID() uuid.UUID { return m.id }

func (m *mockConn) Send(data []byte) {}

func newMockConn() *mockConn {
	return &mockConn{id: uuid.New()}
}

func TestMembersOrderedByJoinTime(t *testing.T) {
	room := session.NewRoom("r1")

	first := newMockConn()
	second := newMockConn()
	room.AddMember(session.Participant{ID: first.id, Username: "alice", JoinedAt: time.Now()}, first)
	room.AddMember(session.Participant{ID: second.id, Username: "bob", JoinedAt: time.Now().Add(time.Millisecond)}, second)

	members := room.Members()
	if len(members) != 2 {
		t.Fatalf("Expected 2 members, got %d", len(members))
	}
	if members[0].Username != "alice" || members[1].Username != "bob" {
		t.Errorf("Expected [alice bob], got [%s %s]", members[0].Username, members[1].Username)
	}
}

func TestRemoveMemberDropsCursorAtomically(t *testing.T) {
	room := session.NewRoom("r1")
	conn := newMockConn()
	room.AddMember(session.Participant{ID: conn.id, Username: "alice"}, conn)
	room.SetCursor(conn.id, session.Cursor{X: 5, Y: 5, Username: "alice"})

	removed, remaining := room.RemoveMember(conn.id)
	if !removed {
		t.Fatal("Expected member to be removed")
	}
	if remaining != 0 {
		t.Errorf("Expected 0 remaining members, got %d", remaining)
	}
	if len(room.Cursors()) != 0 {
		t.Error("Expected cursor to be removed together with the member")
	}
}

func TestSetCursorIgnoredForNonMember(t *testing.T) {
	room := session.NewRoom("r1")
	room.SetCursor(uuid.New(), session.Cursor{X: 1, Y: 2})

	if len(room.Cursors()) != 0 {
		t.Error("Expected no cursor entry for a connection that is not a member")
	}
}

func TestAppendAssignsMonotonicTimestamps(t *testing.T) {
	room := session.NewRoom("r1")
	author := uuid.New()

	var last int64
	for i := 0; i < 10; i++ {
		op := room.Append(session.Operation{UserID: author, Payload: json.RawMessage(`{}`)})
		if op.Timestamp < last {
			t.Fatalf("Timestamp went backwards: %d < %d", op.Timestamp, last)
		}
		last = op.Timestamp
	}
	if room.HistoryLen() != 10 {
		t.Errorf("Expected 10 history entries, got %d", room.HistoryLen())
	}
}

func TestClearTruncatesHistoryAndSnapshot(t *testing.T) {
	room := session.NewRoom("r1")
	room.Append(session.Operation{Payload: json.RawMessage(`{"x":1}`)})
	room.SaveSnapshot(json.RawMessage(`"data:image/png;base64,AAAA"`))

	room.Clear()

	if room.HistoryLen() != 0 {
		t.Errorf("Expected empty history after clear, got %d entries", room.HistoryLen())
	}
	if _, ok := room.Snapshot(); ok {
		t.Error("Expected no snapshot after clear")
	}
}

func TestSnapshotOverwriteAndVerbatimReturn(t *testing.T) {
	room := session.NewRoom("r1")
	if _, ok := room.Snapshot(); ok {
		t.Fatal("Expected no snapshot on a fresh room")
	}

	room.SaveSnapshot(json.RawMessage(`"first"`))
	room.SaveSnapshot(json.RawMessage(`"second"`))

	snap, ok := room.Snapshot()
	if !ok {
		t.Fatal("Expected snapshot to be present")
	}
	if string(snap) != `"second"` {
		t.Errorf("Expected snapshot to be overwritten verbatim, got %s", snap)
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	room := session.NewRoom("r1")
	room.Append(session.Operation{Payload: json.RawMessage(`{"x":1}`)})

	history := room.History()
	history[0].Username = "mutated"

	if room.History()[0].Username == "mutated" {
		t.Error("Mutating the returned history must not affect room state")
	}
}
