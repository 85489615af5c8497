package session

import (
	"github.com/google/uuid"
)

// Manager owns the connection registry and the room registry. Room creation
// is serialized: two simultaneous first joins to the same unknown room id
// produce exactly one Room. An empty room survives for a grace period and is
// discarded only if nobody rejoins before the timer fires.
type Manager interface {
	// --- Connection Lifecycle ---
	RegisterConnection(conn Conn, ipAddr string) error
	DeregisterConnection(connID uuid.UUID)
	GetConnection(connID uuid.UUID) (Conn, bool)
	ConnectionCountByIP(ipAddr string) int
	FindOldestConnectionByIP(ipAddr string) (Conn, bool)
	AllConnections() []Conn

	// --- Room Lifecycle & Membership ---
	// Join adds the connection to a room, creating the room if it doesn't
	// exist and cancelling any pending grace-period deletion.
	Join(connID uuid.UUID, roomID, username, color string) (*Room, Participant, error)
	// Leave removes the connection from the room's members and cursors. When
	// the room becomes empty its deletion grace timer is armed. The room is
	// returned (still alive, possibly in grace) so callers can notify the
	// remaining members.
	Leave(connID uuid.UUID, roomID string) (*Room, bool)
	Get(roomID string) (*Room, bool)
	Delete(roomID string)

	// Stats reports room count and aggregate participant count.
	Stats() (rooms, participants int)
}
